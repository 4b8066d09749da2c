// Package tracker defines the boundary between boardseed and the external
// issue-tracking service. Every state-changing or state-reading call made
// during a bootstrap run goes through the Adapter interface.
package tracker

import "context"

// FieldKind is the data type of a board field.
type FieldKind string

const (
	// KindSingleSelect is a field with a closed set of labels.
	KindSingleSelect FieldKind = "SINGLE_SELECT"
	// KindText is a free text field.
	KindText FieldKind = "TEXT"
)

// Valid reports whether k is one of the supported field kinds.
func (k FieldKind) Valid() bool {
	return k == KindSingleSelect || k == KindText
}

// Board is a project board created by a run. It is immutable once created.
type Board struct {
	// ID is the opaque identifier used by field-edit calls.
	ID string `json:"id"`
	// Number is the numeric handle used to list and create fields and items.
	Number int `json:"number"`
	// URL is for reporting only.
	URL string `json:"url"`
}

// RemoteField is a field as reported by the external system.
type RemoteField struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Kind FieldKind `json:"kind"`
	// Options maps option label to option ID. Only populated for single-select fields.
	Options map[string]string `json:"options,omitempty"`
}

// BoardItem is the attachment of an issue to a board.
type BoardItem struct {
	ID string `json:"id"`
}

// Adapter is the narrow contract to the tracking service.
//
// Implementations return an *AdapterError for any failure of the underlying
// transport (non-zero exit, HTTP failure, unparseable output).
type Adapter interface {
	// CreateBoard creates a new board owned by owner.
	CreateBoard(ctx context.Context, owner, title string) (Board, error)
	// ListFields returns the board's current fields in the order the service reports them.
	ListFields(ctx context.Context, owner string, boardNumber int) ([]RemoteField, error)
	// CreateField creates a field. Options must be empty for text fields.
	CreateField(ctx context.Context, owner string, boardNumber int, name string, kind FieldKind, options []string) error
	// CreateItem creates an issue in owner/repo and returns its URL.
	CreateItem(ctx context.Context, owner, repo, title, body string) (string, error)
	// AttachItem adds the issue at itemURL to the board.
	AttachItem(ctx context.Context, owner string, boardNumber int, itemURL string) (BoardItem, error)
	// SetSelectValue sets a single-select field value on a board item.
	SetSelectValue(ctx context.Context, boardID, itemID, fieldID, optionID string) error
	// SetTextValue sets a text field value on a board item.
	SetTextValue(ctx context.Context, boardID, itemID, fieldID, text string) error
}

// Operation names used in errors, logs and metrics.
const (
	OpCreateBoard    = "create-board"
	OpListFields     = "list-fields"
	OpCreateField    = "create-field"
	OpCreateItem     = "create-item"
	OpAttachItem     = "attach-item"
	OpSetSelectValue = "set-select-value"
	OpSetTextValue   = "set-text-value"
)
