package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/boardseed/desired"
	"github.com/c360studio/boardseed/tracker"
	"github.com/c360studio/boardseed/tracker/testutil"
)

var board = tracker.Board{ID: "PVT_1", Number: 1, URL: "https://example.test/projects/1"}

func specs() []desired.FieldSpec {
	return []desired.FieldSpec{
		{Name: "Track", Kind: tracker.KindSingleSelect, Options: []string{"hot"}},
		{Name: "Priority", Kind: tracker.KindSingleSelect, Options: []string{"P1", "P2"}},
		{Name: "Sprint", Kind: tracker.KindText},
	}
}

func TestReconcileCreatesMissingFields(t *testing.T) {
	fake := testutil.NewFakeAdapter()

	lookup, err := New(fake, "acme").Reconcile(context.Background(), board, specs())
	require.NoError(t, err)

	assert.Equal(t, []string{
		tracker.OpListFields,
		tracker.OpCreateField, tracker.OpCreateField, tracker.OpCreateField,
		tracker.OpListFields,
	}, fake.Ops())

	calls := fake.Calls()
	assert.Equal(t, []string{"acme", "1", "Track", "SINGLE_SELECT", "hot"}, calls[1].Args)
	assert.Equal(t, []string{"acme", "1", "Priority", "SINGLE_SELECT", "P1", "P2"}, calls[2].Args)
	assert.Equal(t, []string{"acme", "1", "Sprint", "TEXT"}, calls[3].Args)

	assert.Equal(t, []string{"Track", "Priority", "Sprint"}, lookup.Names())
}

func TestReconcileIsIdempotent(t *testing.T) {
	fake := testutil.NewFakeAdapter()
	ctx := context.Background()

	_, err := New(fake, "acme").Reconcile(ctx, board, specs())
	require.NoError(t, err)
	require.Equal(t, 3, fake.Count(tracker.OpCreateField))

	second, err := New(fake, "acme").Reconcile(ctx, board, specs())
	require.NoError(t, err)

	assert.Equal(t, 3, fake.Count(tracker.OpCreateField), "second run must not create fields")
	assert.Equal(t, 4, fake.Count(tracker.OpListFields))
	assert.Equal(t, 3, second.Len())
}

func TestReconcileOptionRoundTrip(t *testing.T) {
	fake := testutil.NewFakeAdapter()

	lookup, err := New(fake, "acme").Reconcile(context.Background(), board, specs())
	require.NoError(t, err)

	priority, ok := lookup.Field("Priority")
	require.True(t, ok)
	require.Len(t, priority.Options, 2)
	assert.Contains(t, priority.Options, "P1")
	assert.Contains(t, priority.Options, "P2")
	assert.NotEqual(t, priority.Options["P1"], priority.Options["P2"])
	assert.NotEmpty(t, priority.Options["P1"])

	sprint, ok := lookup.Field("Sprint")
	require.True(t, ok)
	assert.Empty(t, sprint.Options)
}

func TestReconcileKeepsExistingFields(t *testing.T) {
	fake := testutil.NewFakeAdapter()
	fake.Fields = []tracker.RemoteField{
		{ID: "F_title", Name: "Title", Kind: tracker.KindText},
		{ID: "F_track", Name: "Track", Kind: tracker.KindSingleSelect, Options: map[string]string{"hot": "o_hot"}},
	}

	lookup, err := New(fake, "acme").Reconcile(context.Background(), board, specs())
	require.NoError(t, err)

	assert.Equal(t, 2, fake.Count(tracker.OpCreateField))
	track, _ := lookup.Field("Track")
	assert.Equal(t, "F_track", track.ID)
	assert.Equal(t, []string{"Track", "Priority", "Sprint", "Title"}, lookup.Names())
}

func TestReconcileAbortsOnAdapterFailure(t *testing.T) {
	tests := []struct {
		name string
		op   string
		nth  int
		want []string
	}{
		{
			name: "initial list",
			op:   tracker.OpListFields, nth: 1,
			want: []string{tracker.OpListFields},
		},
		{
			name: "second create",
			op:   tracker.OpCreateField, nth: 2,
			want: []string{tracker.OpListFields, tracker.OpCreateField, tracker.OpCreateField},
		},
		{
			name: "refresh",
			op:   tracker.OpListFields, nth: 2,
			want: []string{tracker.OpListFields, tracker.OpCreateField, tracker.OpCreateField, tracker.OpCreateField, tracker.OpListFields},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeAdapter()
			fake.FailOn(tt.op, tt.nth, errors.New("exit status 1"))

			_, err := New(fake, "acme").Reconcile(context.Background(), board, specs())
			require.Error(t, err)
			assert.True(t, tracker.IsAdapter(err))
			assert.Equal(t, tt.want, fake.Ops())
		})
	}
}

func TestReconcileResumesAfterPartialCreation(t *testing.T) {
	fake := testutil.NewFakeAdapter()
	fake.FailOn(tracker.OpCreateField, 2, errors.New("exit status 1"))
	ctx := context.Background()

	_, err := New(fake, "acme").Reconcile(ctx, board, specs())
	require.Error(t, err)
	require.Len(t, fake.Fields, 1)

	lookup, err := New(fake, "acme").Reconcile(ctx, board, specs())
	require.NoError(t, err)
	assert.Equal(t, 3, lookup.Len())

	var created []string
	for _, c := range fake.Calls() {
		if c.Op == tracker.OpCreateField {
			created = append(created, c.Args[2])
		}
	}
	assert.Equal(t, []string{"Track", "Priority", "Priority", "Sprint"}, created)
}

func TestReconcileConflicts(t *testing.T) {
	existing := func() *testutil.FakeAdapter {
		fake := testutil.NewFakeAdapter()
		fake.Fields = []tracker.RemoteField{
			{ID: "F_track", Name: "Track", Kind: tracker.KindText},
			{ID: "F_prio", Name: "Priority", Kind: tracker.KindSingleSelect, Options: map[string]string{"P1": "o1"}},
		}
		return fake
	}

	t.Run("permissive", func(t *testing.T) {
		fake := existing()
		lookup, err := New(fake, "acme").Reconcile(context.Background(), board, specs())
		require.NoError(t, err)
		assert.Equal(t, 1, fake.Count(tracker.OpCreateField))

		track, _ := lookup.Field("Track")
		assert.Equal(t, tracker.KindText, track.Kind, "existing fields are never modified")
	})

	t.Run("strict", func(t *testing.T) {
		fake := existing()
		_, err := New(fake, "acme").WithStrict(true).Reconcile(context.Background(), board, specs())
		require.Error(t, err)
		assert.True(t, tracker.IsConflict(err))
		assert.False(t, tracker.IsReference(err))
		assert.Equal(t, `field "Track" conflicts with existing board field: kind is TEXT, want SINGLE_SELECT`, err.Error())
		assert.Equal(t, 0, fake.Count(tracker.OpCreateField), "strict mode fails before creating anything")
	})
}

func TestCheck(t *testing.T) {
	existing := NewLookup([]tracker.RemoteField{
		{ID: "1", Name: "Track", Kind: tracker.KindText},
		{ID: "2", Name: "Priority", Kind: tracker.KindSingleSelect, Options: map[string]string{"P2": "b", "P0": "z"}},
		{ID: "3", Name: "Sprint", Kind: tracker.KindText},
	})

	conflicts := Check(existing, specs())
	assert.Equal(t, []Conflict{
		{Field: "Track", Reason: "kind is TEXT, want SINGLE_SELECT"},
		{Field: "Priority", Reason: "missing options P1"},
	}, conflicts)
}

func TestCheckNonTextKindConflicts(t *testing.T) {
	existing := NewLookup([]tracker.RemoteField{
		{ID: "3", Name: "Sprint", Kind: tracker.FieldKind("NUMBER")},
	})

	conflicts := Check(existing, specs())
	assert.Equal(t, []Conflict{{Field: "Sprint", Reason: "kind is NUMBER, want TEXT"}}, conflicts)
}
