package util

import (
	"gopkg.in/yaml.v3"
)

// ApplyDefaults fills the members of obj that were left empty with the values
// of defaults. Members are compared through their YAML form, so only fields
// tagged omitempty are treated as unset when zero.
func ApplyDefaults[T any](obj *T, defaults T) error {
	var withDefaults T

	// 1. Marshal the defaults
	b, err := yaml.Marshal(&defaults)
	if err != nil {
		return err
	}

	// 2. Unmarshal defaults
	if err := yaml.Unmarshal(b, &withDefaults); err != nil {
		return err
	}

	// 3. Overlay user-provided values
	b2, err := yaml.Marshal(obj)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(b2, &withDefaults); err != nil {
		return err
	}

	// 4. Copy back into original pointer
	*obj = withDefaults
	return nil
}
