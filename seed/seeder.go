// Package seed creates work items, attaches them to a board and applies
// their field values.
//
// Seeding is a fail-fast batch: items are processed one at a time in input
// order and the first error stops the run. Nothing is rolled back.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/c360studio/boardseed/desired"
	"github.com/c360studio/boardseed/reconcile"
	"github.com/c360studio/boardseed/tracker"
)

// Seeded is one fully applied work item.
type Seeded struct {
	Title string
	URL   string
}

// Observer is called after each item is fully applied.
type Observer func(index int, s Seeded)

// Seeder applies work items to a board.
type Seeder struct {
	adapter  tracker.Adapter
	owner    string
	repo     string
	logger   *slog.Logger
	observer Observer
}

// New creates a seeder that opens issues in owner/repo.
func New(adapter tracker.Adapter, owner, repo string) *Seeder {
	return &Seeder{adapter: adapter, owner: owner, repo: repo, logger: slog.Default()}
}

// WithLogger sets the logger.
func (s *Seeder) WithLogger(logger *slog.Logger) *Seeder {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithObserver registers a callback for each completed item.
func (s *Seeder) WithObserver(o Observer) *Seeder {
	s.observer = o
	return s
}

// Seed creates every item in order. It returns the items completed so far
// together with the first error.
func (s *Seeder) Seed(ctx context.Context, board tracker.Board, lookup reconcile.Lookup, items []desired.WorkItem) ([]Seeded, error) {
	done := make([]Seeded, 0, len(items))
	for i, item := range items {
		url, err := s.seedOne(ctx, board, lookup, item)
		if err != nil {
			return done, err
		}
		seeded := Seeded{Title: item.Title, URL: url}
		done = append(done, seeded)
		s.logger.Info("Seeded item", "title", item.Title, "url", url)
		if s.observer != nil {
			s.observer(i, seeded)
		}
	}
	return done, nil
}

func (s *Seeder) seedOne(ctx context.Context, board tracker.Board, lookup reconcile.Lookup, item desired.WorkItem) (string, error) {
	url, err := s.adapter.CreateItem(ctx, s.owner, s.repo, item.Title, item.Body)
	if err != nil {
		return "", fmt.Errorf("item %q: create issue: %w", item.Title, err)
	}

	attached, err := s.adapter.AttachItem(ctx, s.owner, board.Number, url)
	if err != nil {
		return "", fmt.Errorf("item %q: attach %s: %w", item.Title, url, err)
	}

	for _, name := range tagOrder(lookup, item.Tags) {
		value := item.Tags[name]
		target, err := lookup.Resolve(name, value)
		if err != nil {
			var ref *tracker.ReferenceError
			if errors.As(err, &ref) {
				ref.Item = item.Title
			}
			return "", err
		}

		switch target.Kind {
		case tracker.KindSingleSelect:
			err = s.adapter.SetSelectValue(ctx, board.ID, attached.ID, target.FieldID, target.OptionID)
		default:
			err = s.adapter.SetTextValue(ctx, board.ID, attached.ID, target.FieldID, target.Text)
		}
		if err != nil {
			return "", fmt.Errorf("item %q: set %s: %w", item.Title, name, err)
		}
	}
	return url, nil
}

// tagOrder lists tag names in lookup order; tags naming fields the board does
// not have come last, sorted.
func tagOrder(lookup reconcile.Lookup, tags map[string]string) []string {
	order := make([]string, 0, len(tags))
	for _, name := range lookup.Names() {
		if _, ok := tags[name]; ok {
			order = append(order, name)
		}
	}
	var unknown []string
	for name := range tags {
		if _, ok := lookup.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return append(order, unknown...)
}
