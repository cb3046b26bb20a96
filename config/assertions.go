package config

import (
	"github.com/antithesishq/antithesis-sdk-go/assert"
)

var antithesisEnabled bool

// SetAntithesisMode turns the deployment invariants below into Antithesis
// assertions. Off by default.
func SetAntithesisMode(enabled bool) {
	antithesisEnabled = enabled
}

func AssertAlways(condition bool, message string, details map[string]interface{}) {
	if antithesisEnabled {
		assert.Always(condition, message, details)
	}
}

func AssertSometimes(condition bool, message string, details map[string]interface{}) {
	if antithesisEnabled {
		assert.Sometimes(condition, message, details)
	}
}

// AssertUnreachable flags a branch a correct deployment never takes.
func AssertUnreachable(message string, details map[string]interface{}) {
	if antithesisEnabled {
		assert.Unreachable(message, details)
	}
}
