package reconcile

import (
	"github.com/c360studio/boardseed/tracker"
)

// Target is a tag resolved to the identifiers needed for one field-edit call.
type Target struct {
	Field    string
	Kind     tracker.FieldKind
	FieldID  string
	OptionID string // set for single-select fields
	Text     string // set for text fields
}

// Lookup is a read-only snapshot of a board's fields keyed by name. It is
// built once per run from a fresh list-fields call.
type Lookup struct {
	order  []string
	fields map[string]tracker.RemoteField
}

// NewLookup indexes fields by name. The first occurrence of a duplicated
// name wins.
func NewLookup(fields []tracker.RemoteField) Lookup {
	l := Lookup{fields: make(map[string]tracker.RemoteField, len(fields))}
	for _, f := range fields {
		if _, dup := l.fields[f.Name]; dup {
			continue
		}
		l.fields[f.Name] = f
		l.order = append(l.order, f.Name)
	}
	return l
}

// Field returns the remote field with the given name.
func (l Lookup) Field(name string) (tracker.RemoteField, bool) {
	f, ok := l.fields[name]
	return f, ok
}

// Names returns field names in lookup order.
func (l Lookup) Names() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

// Len returns the number of fields.
func (l Lookup) Len() int {
	return len(l.order)
}

// Resolve maps a (field, value) tag onto remote identifiers. An unknown field
// or select label yields a *tracker.ReferenceError.
func (l Lookup) Resolve(field, value string) (Target, error) {
	f, ok := l.fields[field]
	if !ok {
		return Target{}, &tracker.ReferenceError{Field: field, Value: value, Reason: "field not present on board"}
	}

	switch f.Kind {
	case tracker.KindSingleSelect:
		optionID, ok := f.Options[value]
		if !ok {
			return Target{}, &tracker.ReferenceError{Field: field, Value: value, Reason: "option not present on board field"}
		}
		return Target{Field: field, Kind: f.Kind, FieldID: f.ID, OptionID: optionID}, nil
	case tracker.KindText:
		return Target{Field: field, Kind: f.Kind, FieldID: f.ID, Text: value}, nil
	}
	return Target{}, &tracker.ReferenceError{Field: field, Value: value, Reason: "unsupported field kind " + string(f.Kind)}
}

// reorder returns a copy of l whose order lists preferred names first, then
// the remaining fields in their original order.
func (l Lookup) reorder(preferred []string) Lookup {
	out := Lookup{fields: l.fields}
	placed := make(map[string]bool, len(l.order))
	for _, name := range preferred {
		if _, ok := l.fields[name]; ok && !placed[name] {
			out.order = append(out.order, name)
			placed[name] = true
		}
	}
	for _, name := range l.order {
		if !placed[name] {
			out.order = append(out.order, name)
		}
	}
	return out
}
