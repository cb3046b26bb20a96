package config

import "fmt"

// ConfigurationError reports inputs that make a deployment impossible:
// missing files, contracts marked as reused without an address, or names
// the deployment does not know how to produce.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Msg, e.Err)
	}
	return "configuration error: " + e.Msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// InvalidInputError reports a malformed critical input such as the
// deployer or oracle address.
type InvalidInputError struct {
	Field string
	Value string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s %q (please check your inputs)", e.Field, e.Value)
}
