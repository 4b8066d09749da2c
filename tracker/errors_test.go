package tracker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want func(error) bool
	}{
		{"prerequisite", NewPrerequisiteError("gh is required"), IsPrerequisite},
		{"resolution", &ResolutionError{Remote: "ftp://x/y/z"}, IsResolution},
		{"adapter", &AdapterError{Op: OpCreateBoard, Err: errors.New("exit status 1")}, IsAdapter},
		{"reference", &ReferenceError{Field: "Track", Reason: "unknown field"}, IsReference},
		{"conflict", &ConflictError{Field: "Track", Reason: "kind is TEXT, want SINGLE_SELECT"}, IsConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want(tt.err))
			assert.True(t, tt.want(fmt.Errorf("wrapped: %w", tt.err)), "predicate should see through wrapping")
		})
	}

	assert.False(t, IsAdapter(errors.New("plain")))
	assert.False(t, IsReference(&AdapterError{Op: OpListFields}))
	assert.False(t, IsReference(&ConflictError{Field: "Track"}), "field conflicts are not tag references")
	assert.False(t, IsConflict(&ReferenceError{Field: "Track"}))
}

func TestAdapterErrorMessage(t *testing.T) {
	cause := errors.New("exit status 1")
	err := &AdapterError{
		Op:      OpCreateField,
		Command: "gh project field-create 3",
		Output:  "GraphQL: field already exists\n",
		Err:     cause,
	}

	assert.Equal(t, "create-field failed: gh project field-create 3: exit status 1: GraphQL: field already exists", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestReferenceErrorMessage(t *testing.T) {
	err := &ReferenceError{Item: "Order book", Field: "Priority", Value: "P9", Reason: "unknown option"}
	assert.Equal(t, `item "Order book": field "Priority" value "P9": unknown option`, err.Error())
}

func TestConflictErrorMessage(t *testing.T) {
	err := &ConflictError{Field: "Sprint", Reason: "kind is NUMBER, want TEXT"}
	assert.Equal(t, `field "Sprint" conflicts with existing board field: kind is NUMBER, want TEXT`, err.Error())
}

func TestFieldKindValid(t *testing.T) {
	assert.True(t, KindSingleSelect.Valid())
	assert.True(t, KindText.Valid())
	assert.False(t, FieldKind("NUMBER").Valid())
}
