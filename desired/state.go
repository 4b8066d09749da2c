// Package desired describes what a bootstrapped board should look like: the
// fields it must carry and the work items to seed into it.
//
// A State is plain data. The reconciler and seeder receive it as a parameter,
// so tests can run against arbitrary fixtures.
package desired

import (
	"fmt"
	"sort"
	"strings"

	"github.com/c360studio/boardseed/tracker"
)

// SprintField is the field that receives the configured sprint label when
// the state declares it.
const SprintField = "Sprint"

// FieldSpec is a required board field.
type FieldSpec struct {
	Name    string            `yaml:"name" json:"name" toml:"name"`
	Kind    tracker.FieldKind `yaml:"kind" json:"kind" toml:"kind"`
	Options []string          `yaml:"options,omitempty" json:"options,omitempty" toml:"options,omitempty"`
}

// WorkItem is one issue to create and tag.
type WorkItem struct {
	Title string `yaml:"title" json:"title" toml:"title"`
	Body  string `yaml:"body" json:"body" toml:"body"`
	// Tags maps field name to a select label or raw text.
	Tags map[string]string `yaml:"tags,omitempty" json:"tags,omitempty" toml:"tags,omitempty"`
}

// State is the complete desired content of a board.
type State struct {
	Fields []FieldSpec `yaml:"fields" json:"fields" toml:"fields"`
	Items  []WorkItem  `yaml:"items" json:"items" toml:"items"`
	// Defaults are tags applied to every item that does not set them itself.
	Defaults map[string]string `yaml:"defaults,omitempty" json:"defaults,omitempty" toml:"defaults,omitempty"`
}

// ParseKind accepts the spellings used by manifests and the gh CLI.
func ParseKind(s string) (tracker.FieldKind, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	switch norm {
	case "SINGLE_SELECT", "SINGLESELECT", "SELECT":
		return tracker.KindSingleSelect, nil
	case "TEXT":
		return tracker.KindText, nil
	}
	return "", fmt.Errorf("unsupported field kind %q", s)
}

// Field returns the field with the given name.
func (s State) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// FieldNames returns field names in declaration order.
func (s State) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// SetDefault sets a default tag for every item.
func (s *State) SetDefault(field, value string) {
	if s.Defaults == nil {
		s.Defaults = make(map[string]string)
	}
	s.Defaults[field] = value
}

// ResolvedItems returns the items with default tags filled in. The receiver
// is not modified.
func (s State) ResolvedItems() []WorkItem {
	out := make([]WorkItem, len(s.Items))
	for i, item := range s.Items {
		tags := make(map[string]string, len(item.Tags)+len(s.Defaults))
		for k, v := range s.Defaults {
			tags[k] = v
		}
		for k, v := range item.Tags {
			tags[k] = v
		}
		out[i] = WorkItem{Title: item.Title, Body: item.Body, Tags: tags}
	}
	return out
}

// Validate checks field and item invariants. Tag violations are reported as
// *tracker.ReferenceError.
func (s State) Validate() error {
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("field name is required")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		if err := f.validate(); err != nil {
			return err
		}
	}

	for i, item := range s.ResolvedItems() {
		if strings.TrimSpace(item.Title) == "" {
			return fmt.Errorf("item %d: title is required", i+1)
		}
		for _, name := range sortedKeys(item.Tags) {
			spec, ok := s.Field(name)
			if !ok {
				return &tracker.ReferenceError{Item: item.Title, Field: name, Reason: "not a declared field"}
			}
			if spec.Kind == tracker.KindSingleSelect && !spec.HasOption(item.Tags[name]) {
				return &tracker.ReferenceError{Item: item.Title, Field: name, Value: item.Tags[name], Reason: "not a declared option"}
			}
		}
	}
	return nil
}

// HasOption reports whether label is one of the field's options.
func (f FieldSpec) HasOption(label string) bool {
	for _, opt := range f.Options {
		if opt == label {
			return true
		}
	}
	return false
}

func (f FieldSpec) validate() error {
	switch f.Kind {
	case tracker.KindSingleSelect:
		if len(f.Options) == 0 {
			return fmt.Errorf("field %q: single-select requires options", f.Name)
		}
		opts := make(map[string]bool, len(f.Options))
		for _, opt := range f.Options {
			if strings.TrimSpace(opt) == "" {
				return fmt.Errorf("field %q: empty option", f.Name)
			}
			if strings.Contains(opt, ",") {
				// gh takes options as a comma separated list
				return fmt.Errorf("field %q: option %q contains a comma", f.Name, opt)
			}
			if opts[opt] {
				return fmt.Errorf("field %q: duplicate option %q", f.Name, opt)
			}
			opts[opt] = true
		}
	case tracker.KindText:
		if len(f.Options) > 0 {
			return fmt.Errorf("field %q: text fields take no options", f.Name)
		}
	default:
		return fmt.Errorf("field %q: unsupported kind %q", f.Name, f.Kind)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
