package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/boardseed/desired"
	"github.com/c360studio/boardseed/journal"
	"github.com/c360studio/boardseed/metrics"
	"github.com/c360studio/boardseed/tracker"
	"github.com/c360studio/boardseed/tracker/testutil"
)

func scenarioState() desired.State {
	return desired.State{
		Fields: []desired.FieldSpec{
			{Name: "Track", Kind: tracker.KindSingleSelect, Options: []string{"hot"}},
			{Name: "Priority", Kind: tracker.KindSingleSelect, Options: []string{"P1", "P2"}},
			{Name: "Sprint", Kind: tracker.KindText},
		},
		Items: []desired.WorkItem{
			{
				Title: "Order book skeleton",
				Body:  "Implement add, cancel and top of book.",
				Tags:  map[string]string{"Track": "hot", "Priority": "P1", "Sprint": "Sprint 1"},
			},
		},
	}
}

func scenarioOptions() Options {
	return Options{
		RunID: "run-1",
		Owner: "acme",
		Repo:  "widgets",
		Title: "risk_hotpath_hft",
		State: scenarioState(),
	}
}

func openJournal(t *testing.T) *journal.Store {
	t.Helper()
	s, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunEndToEnd(t *testing.T) {
	fake := testutil.NewFakeAdapter()

	rep, err := New(fake).Run(context.Background(), scenarioOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{
		tracker.OpCreateBoard,
		tracker.OpListFields,
		tracker.OpCreateField,
		tracker.OpCreateField,
		tracker.OpCreateField,
		tracker.OpListFields,
		tracker.OpCreateItem,
		tracker.OpAttachItem,
		tracker.OpSetSelectValue,
		tracker.OpSetSelectValue,
		tracker.OpSetTextValue,
	}, fake.Ops())

	assert.Equal(t, "https://example.test/projects/1", rep.BoardURL)
	assert.Equal(t, []string{"https://example.test/acme/widgets/issues/1"}, rep.URLs())
	assert.Equal(t, "run-1", rep.RunID)
}

func TestRunDefaultBoard(t *testing.T) {
	fake := testutil.NewFakeAdapter()
	opts := scenarioOptions()
	opts.State = desired.Default("Sprint 4")

	rep, err := New(fake).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.Count(tracker.OpCreateBoard))
	assert.Equal(t, 2, fake.Count(tracker.OpListFields))
	assert.Equal(t, 5, fake.Count(tracker.OpCreateField))
	assert.Equal(t, 4, fake.Count(tracker.OpCreateItem))
	assert.Equal(t, 4, fake.Count(tracker.OpAttachItem))
	assert.Equal(t, 16, fake.Count(tracker.OpSetSelectValue))
	assert.Equal(t, 4, fake.Count(tracker.OpSetTextValue))
	require.Len(t, rep.Items, 4)
	assert.Equal(t, "Rust workspace and simulator scaffold", rep.Items[0].Title)
	assert.Equal(t, "ClickHouse tables and writer stub", rep.Items[3].Title)

	for _, c := range fake.Calls() {
		if c.Op == tracker.OpSetTextValue {
			assert.Equal(t, "Sprint 4", c.Args[3], "sprint label applied to every item")
		}
	}
}

func TestRunRerunCreatesNoFields(t *testing.T) {
	fake := testutil.NewFakeAdapter()
	ctx := context.Background()

	_, err := New(fake).Run(ctx, scenarioOptions())
	require.NoError(t, err)
	require.Equal(t, 3, fake.Count(tracker.OpCreateField))

	_, err = New(fake).Run(ctx, scenarioOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, fake.Count(tracker.OpCreateField), "second run creates no fields")
	assert.Equal(t, 2, fake.Count(tracker.OpCreateItem), "items are not deduplicated")
}

func TestRunInvalidStateMakesNoCalls(t *testing.T) {
	fake := testutil.NewFakeAdapter()
	opts := scenarioOptions()
	opts.State.Items[0].Tags["Stage"] = "build"

	_, err := New(fake).Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, tracker.IsReference(err))
	assert.Empty(t, fake.Calls())
}

func TestRunRequiresOwnerAndRepo(t *testing.T) {
	fake := testutil.NewFakeAdapter()
	opts := scenarioOptions()
	opts.Repo = ""

	_, err := New(fake).Run(context.Background(), opts)
	require.Error(t, err)
	assert.Empty(t, fake.Calls())
}

func TestRunStrictConflictStopsBeforeSeeding(t *testing.T) {
	fake := testutil.NewFakeAdapter()
	fake.Fields = []tracker.RemoteField{{ID: "F1", Name: "Track", Kind: tracker.KindText}}
	opts := scenarioOptions()
	opts.Strict = true

	rep, err := New(fake).Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, tracker.IsConflict(err))
	assert.Equal(t, []string{tracker.OpCreateBoard, tracker.OpListFields}, fake.Ops())
	assert.Equal(t, "https://example.test/projects/1", rep.BoardURL, "board is reported even on failure")
	assert.Empty(t, rep.Items)
}

func TestRunPermissiveConflictContinues(t *testing.T) {
	fake := testutil.NewFakeAdapter()
	fake.Fields = []tracker.RemoteField{{
		ID: "F1", Name: "Priority", Kind: tracker.KindSingleSelect,
		Options: map[string]string{"P1": "O1"},
	}}

	_, err := New(fake).Run(context.Background(), scenarioOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Count(tracker.OpCreateField), "existing field left untouched")
}

func TestRunAdapterFailure(t *testing.T) {
	fake := testutil.NewFakeAdapter()
	fake.FailOn(tracker.OpCreateBoard, 1, errors.New("exit status 1"))

	rep, err := New(fake).Run(context.Background(), scenarioOptions())
	require.Error(t, err)
	assert.True(t, tracker.IsAdapter(err))
	assert.Empty(t, rep.BoardURL)
	assert.Equal(t, []string{tracker.OpCreateBoard}, fake.Ops())
}

func TestRunJournalsProgress(t *testing.T) {
	store := openJournal(t)
	fake := testutil.NewFakeAdapter()
	ctx := context.Background()

	_, err := New(fake).WithJournal(store).Run(ctx, scenarioOptions())
	require.NoError(t, err)

	runs, err := store.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, journal.StatusSucceeded, runs[0].Status)
	assert.Equal(t, "https://example.test/projects/1", runs[0].BoardURL)

	items, err := store.Items(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "https://example.test/acme/widgets/issues/1", items[0].URL)
}

func TestRunJournalsPartialFailure(t *testing.T) {
	store := openJournal(t)
	fake := testutil.NewFakeAdapter()
	fake.FailOn(tracker.OpCreateItem, 2, errors.New("exit status 1"))
	ctx := context.Background()

	opts := scenarioOptions()
	opts.State.Items = append(opts.State.Items, desired.WorkItem{Title: "Second", Body: "b"})

	rep, err := New(fake).WithJournal(store).Run(ctx, opts)
	require.Error(t, err)
	require.Len(t, rep.Items, 1)

	runs, err := store.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, journal.StatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "Second")

	items, err := store.Items(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, items, 1, "items created before the failure are journaled")
}

func TestRunDuplicateRunIDRejectedBeforeCalls(t *testing.T) {
	store := openJournal(t)
	ctx := context.Background()
	require.NoError(t, store.StartRun(ctx, "run-1", "acme", "widgets", "t"))

	fake := testutil.NewFakeAdapter()
	_, err := New(fake).WithJournal(store).Run(ctx, scenarioOptions())
	require.Error(t, err)
	assert.Empty(t, fake.Calls())
}

func TestRunWritesMetricsOnFailure(t *testing.T) {
	fake := testutil.NewFakeAdapter()
	fake.FailOn(tracker.OpSetTextValue, 1, errors.New("exit status 1"))
	path := filepath.Join(t.TempDir(), "boardseed.prom")

	_, err := New(fake).WithMetrics(metrics.New(), path).Run(context.Background(), scenarioOptions())
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `boardseed_adapter_calls_total{op="create-field"} 3`)
	assert.Contains(t, text, `boardseed_adapter_failures_total{op="set-text-value"} 1`)
	assert.Contains(t, text, "boardseed_last_run_success 0")
}
