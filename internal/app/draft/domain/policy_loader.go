package domain

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// policyFile is the on-disk layout of a field policy file:
//
//	fields:
//	  title:  {class: text, debounce_ms: 2000, priority: 2}
//	  market: {class: select, debounce_ms: 1500, priority: 1}
type policyFile struct {
	Fields map[string]policyEntry `yaml:"fields"`
}

type policyEntry struct {
	Class      string `yaml:"class"`
	DebounceMs int    `yaml:"debounce_ms"`
	Priority   int    `yaml:"priority"`
}

// LoadPolicies reads a YAML policy file into a registry.
func LoadPolicies(path string) (*PolicyRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load policies %q: %w", path, err)
	}
	reg, err := ParsePolicies(data)
	if err != nil {
		return nil, fmt.Errorf("load policies %q: %w", path, err)
	}
	return reg, nil
}

// ParsePolicies decodes YAML policy data into a registry.
func ParsePolicies(data []byte) (*PolicyRegistry, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse policies: %w", err)
	}

	policies := make(map[string]FieldPolicy, len(file.Fields))
	for field, entry := range file.Fields {
		class := SensitivityClass(entry.Class)
		if !class.Valid() {
			return nil, fmt.Errorf("field %q: %w: %q", field, ErrUnknownSensitivityClass, entry.Class)
		}
		if entry.DebounceMs <= 0 {
			return nil, fmt.Errorf("field %q: %w", field, ErrInvalidDebounce)
		}
		policies[field] = FieldPolicy{
			Class:    class,
			Debounce: time.Duration(entry.DebounceMs) * time.Millisecond,
			Priority: entry.Priority,
		}
	}
	return NewPolicyRegistry(policies), nil
}
