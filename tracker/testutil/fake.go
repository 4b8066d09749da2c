// Package testutil provides an in-memory tracker.Adapter for tests.
//
// Usage:
//
//	fake := testutil.NewFakeAdapter()
//	fake.Fields = []tracker.RemoteField{{ID: "F1", Name: "Track", Kind: tracker.KindText}}
//	fake.FailOn(tracker.OpSetTextValue, 1, errors.New("boom"))
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/c360studio/boardseed/tracker"
)

// Call records one adapter invocation.
type Call struct {
	Op   string
	Args []string
}

type fault struct {
	nth int
	err error
}

// FakeAdapter is a thread-safe scripted adapter. It keeps a single board's
// field list in memory and hands out deterministic identifiers.
type FakeAdapter struct {
	mu sync.Mutex

	// Fields is the board's current field list. CreateField appends to it.
	Fields []tracker.RemoteField
	// BoardURL is returned by CreateBoard.
	BoardURL string

	calls   []Call
	counts  map[string]int
	faults  map[string]fault
	nextID  int
	issues  int
	boardID string
}

// NewFakeAdapter creates an empty fake.
func NewFakeAdapter() *FakeAdapter {
	return &FakeAdapter{
		BoardURL: "https://example.test/projects/1",
		counts:   make(map[string]int),
		faults:   make(map[string]fault),
	}
}

// FailOn makes the nth call (1-based) of op return err.
func (f *FakeAdapter) FailOn(op string, nth int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = fault{nth: nth, err: err}
}

// Calls returns a copy of the call log.
func (f *FakeAdapter) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Ops returns the operation names of the call log in order.
func (f *FakeAdapter) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Op
	}
	return out
}

// Count returns how many times op was called.
func (f *FakeAdapter) Count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[op]
}

func (f *FakeAdapter) record(op string, args ...string) error {
	f.calls = append(f.calls, Call{Op: op, Args: args})
	f.counts[op]++
	if flt, ok := f.faults[op]; ok && flt.nth == f.counts[op] {
		return &tracker.AdapterError{Op: op, Command: "fake " + op, Err: flt.err}
	}
	return nil
}

func (f *FakeAdapter) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s_%d", prefix, f.nextID)
}

// CreateBoard implements tracker.Adapter.
func (f *FakeAdapter) CreateBoard(_ context.Context, owner, title string) (tracker.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(tracker.OpCreateBoard, owner, title); err != nil {
		return tracker.Board{}, err
	}
	f.boardID = f.id("PVT")
	return tracker.Board{ID: f.boardID, Number: 1, URL: f.BoardURL}, nil
}

// ListFields implements tracker.Adapter. The returned slice is a deep copy.
func (f *FakeAdapter) ListFields(_ context.Context, owner string, boardNumber int) ([]tracker.RemoteField, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(tracker.OpListFields, owner, fmt.Sprint(boardNumber)); err != nil {
		return nil, err
	}
	out := make([]tracker.RemoteField, len(f.Fields))
	for i, field := range f.Fields {
		out[i] = field
		if field.Options != nil {
			out[i].Options = make(map[string]string, len(field.Options))
			for k, v := range field.Options {
				out[i].Options[k] = v
			}
		}
	}
	return out, nil
}

// CreateField implements tracker.Adapter.
func (f *FakeAdapter) CreateField(_ context.Context, owner string, boardNumber int, name string, kind tracker.FieldKind, options []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	args := append([]string{owner, fmt.Sprint(boardNumber), name, string(kind)}, options...)
	if err := f.record(tracker.OpCreateField, args...); err != nil {
		return err
	}
	field := tracker.RemoteField{ID: f.id("PVTF"), Name: name, Kind: kind}
	if kind == tracker.KindSingleSelect {
		field.Options = make(map[string]string, len(options))
		for _, opt := range options {
			field.Options[opt] = f.id("OPT")
		}
	}
	f.Fields = append(f.Fields, field)
	return nil
}

// CreateItem implements tracker.Adapter.
func (f *FakeAdapter) CreateItem(_ context.Context, owner, repo, title, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(tracker.OpCreateItem, owner, repo, title, body); err != nil {
		return "", err
	}
	f.issues++
	return fmt.Sprintf("https://example.test/%s/%s/issues/%d", owner, repo, f.issues), nil
}

// AttachItem implements tracker.Adapter.
func (f *FakeAdapter) AttachItem(_ context.Context, owner string, boardNumber int, itemURL string) (tracker.BoardItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(tracker.OpAttachItem, owner, fmt.Sprint(boardNumber), itemURL); err != nil {
		return tracker.BoardItem{}, err
	}
	return tracker.BoardItem{ID: f.id("PVTI")}, nil
}

// SetSelectValue implements tracker.Adapter.
func (f *FakeAdapter) SetSelectValue(_ context.Context, boardID, itemID, fieldID, optionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record(tracker.OpSetSelectValue, boardID, itemID, fieldID, optionID)
}

// SetTextValue implements tracker.Adapter.
func (f *FakeAdapter) SetTextValue(_ context.Context, boardID, itemID, fieldID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record(tracker.OpSetTextValue, boardID, itemID, fieldID, text)
}

var _ tracker.Adapter = (*FakeAdapter)(nil)
