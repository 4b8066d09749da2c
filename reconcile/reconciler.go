// Package reconcile converges a board's fields toward the desired field set.
//
// Reconciliation only ever creates fields. A field already present by name is
// left untouched; if its kind or options disagree with the desired field the
// mismatch is logged, or returned as an error in strict mode.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/c360studio/boardseed/desired"
	"github.com/c360studio/boardseed/tracker"
)

// Conflict describes an existing field that does not match its spec.
type Conflict struct {
	Field  string
	Reason string
}

// Reconciler creates missing board fields.
type Reconciler struct {
	adapter tracker.Adapter
	owner   string
	strict  bool
	logger  *slog.Logger
}

// New creates a reconciler for boards owned by owner.
func New(adapter tracker.Adapter, owner string) *Reconciler {
	return &Reconciler{adapter: adapter, owner: owner, logger: slog.Default()}
}

// WithStrict makes field conflicts fatal.
func (r *Reconciler) WithStrict(strict bool) *Reconciler {
	r.strict = strict
	return r
}

// WithLogger sets the logger.
func (r *Reconciler) WithLogger(logger *slog.Logger) *Reconciler {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Reconcile creates every field in specs that the board lacks, then re-reads
// the board's fields and returns them. The returned lookup lists the desired
// fields first, in declaration order.
//
// Any adapter failure aborts immediately; fields created before the failure
// remain on the board, and a re-run will skip them.
func (r *Reconciler) Reconcile(ctx context.Context, board tracker.Board, specs []desired.FieldSpec) (Lookup, error) {
	current, err := r.adapter.ListFields(ctx, r.owner, board.Number)
	if err != nil {
		return Lookup{}, fmt.Errorf("list fields: %w", err)
	}
	existing := NewLookup(current)

	conflicts := Check(existing, specs)
	for _, c := range conflicts {
		r.logger.Warn("Existing field does not match desired field", "field", c.Field, "reason", c.Reason)
	}
	if r.strict && len(conflicts) > 0 {
		c := conflicts[0]
		return Lookup{}, &tracker.ConflictError{Field: c.Field, Reason: c.Reason}
	}

	for _, spec := range specs {
		if _, ok := existing.Field(spec.Name); ok {
			r.logger.Debug("Field already present", "field", spec.Name)
			continue
		}
		var options []string
		if spec.Kind == tracker.KindSingleSelect {
			options = spec.Options
		}
		if err := r.adapter.CreateField(ctx, r.owner, board.Number, spec.Name, spec.Kind, options); err != nil {
			return Lookup{}, fmt.Errorf("create field %q: %w", spec.Name, err)
		}
		r.logger.Info("Created field", "field", spec.Name, "kind", spec.Kind, "options", len(options))
	}

	refreshed, err := r.adapter.ListFields(ctx, r.owner, board.Number)
	if err != nil {
		return Lookup{}, fmt.Errorf("list fields: %w", err)
	}
	lookup := NewLookup(refreshed)

	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name
		if _, ok := lookup.Field(spec.Name); !ok {
			return Lookup{}, &tracker.AdapterError{
				Op:  tracker.OpListFields,
				Err: fmt.Errorf("field %q not listed after creation", spec.Name),
			}
		}
	}
	return lookup.reorder(names), nil
}

// Check compares existing fields against specs and reports each same-name
// field whose kind differs or which lacks a desired option. Kinds outside
// SINGLE_SELECT and TEXT (NUMBER, DATE, ITERATION, built-ins) conflict with
// every desired field.
func Check(existing Lookup, specs []desired.FieldSpec) []Conflict {
	var conflicts []Conflict
	for _, spec := range specs {
		f, ok := existing.Field(spec.Name)
		if !ok {
			continue
		}
		if f.Kind != spec.Kind {
			conflicts = append(conflicts, Conflict{
				Field:  spec.Name,
				Reason: fmt.Sprintf("kind is %s, want %s", f.Kind, spec.Kind),
			})
			continue
		}
		if spec.Kind != tracker.KindSingleSelect {
			continue
		}
		var missing []string
		for _, opt := range spec.Options {
			if _, ok := f.Options[opt]; !ok {
				missing = append(missing, opt)
			}
		}
		if len(missing) > 0 {
			sort.Strings(missing)
			conflicts = append(conflicts, Conflict{
				Field:  spec.Name,
				Reason: "missing options " + strings.Join(missing, ", "),
			})
		}
	}
	return conflicts
}
