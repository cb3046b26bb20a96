package deployment

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// OwnerAction is a write the deployer account was not allowed to send,
// left for the contract owner to perform.
type OwnerAction struct {
	Target   string `json:"target"`
	Action   string `json:"action"`
	Data     string `json:"data"`
	Complete bool   `json:"complete"`
	Link     string `json:"link,omitempty"`
}

// OwnerActions is the persisted list of pending owner actions, keyed by a
// description of the call.
type OwnerActions struct {
	actions map[string]*OwnerAction
	path    string
}

func LoadOwnerActions(path string) (*OwnerActions, error) {
	o := &OwnerActions{actions: make(map[string]*OwnerAction), path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return o, nil
		}
		return nil, fmt.Errorf("failed to read owner actions: %w", err)
	}
	if err := json.Unmarshal(data, &o.actions); err != nil {
		return nil, fmt.Errorf("failed to parse owner actions %s: %w", path, err)
	}
	if o.actions == nil {
		o.actions = make(map[string]*OwnerAction)
	}
	return o, nil
}

// Append stores action under key and flushes the file.
func (o *OwnerActions) Append(key string, action OwnerAction) error {
	o.actions[key] = &action
	return o.Save()
}

func (o *OwnerActions) Save() error {
	data, err := json.MarshalIndent(o.actions, "", "\t")
	if err != nil {
		return fmt.Errorf("failed to marshal owner actions: %w", err)
	}
	return writeFileAtomic(o.path, append(data, '\n'))
}

func (o *OwnerActions) Get(key string) (OwnerAction, bool) {
	a, ok := o.actions[key]
	if !ok {
		return OwnerAction{}, false
	}
	return *a, true
}

// Pending returns the keys of incomplete actions in lexical order.
func (o *OwnerActions) Pending() []string {
	var keys []string
	for key, a := range o.actions {
		if !a.Complete {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (o *OwnerActions) Len() int { return len(o.actions) }
