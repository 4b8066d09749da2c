package desired

import "github.com/c360studio/boardseed/tracker"

// DefaultBoardTitle is the board title used when none is configured.
const DefaultBoardTitle = "risk_hotpath_hft"

// DefaultSprint is the sprint label applied when none is configured.
const DefaultSprint = "Sprint 1"

// Default returns the built-in board: the risk hot-path fields and its first
// four build issues, every item tagged with sprint.
func Default(sprint string) State {
	s := State{
		Fields: []FieldSpec{
			{Name: "Track", Kind: tracker.KindSingleSelect, Options: []string{"hot"}},
			{Name: "Priority", Kind: tracker.KindSingleSelect, Options: []string{"P1", "P2"}},
			{Name: "Size", Kind: tracker.KindSingleSelect, Options: []string{"S", "M"}},
			{Name: "Stage", Kind: tracker.KindSingleSelect, Options: []string{"build"}},
			{Name: SprintField, Kind: tracker.KindText},
		},
		Items: []WorkItem{
			{
				Title: "Rust workspace and simulator scaffold",
				Body: "Title: Rust workspace and simulator scaffold\n" +
					"  Body:\n" +
					"  - Create Cargo workspace, risk_core crate, simulator that emits ticks at a fixed rate and logs counters\n" +
					"  - Acceptance: cargo test passes, make run_sim prints increasing counters\n" +
					"  Labels: track hot, stage build, priority P1, size M",
				Tags: map[string]string{"Track": "hot", "Priority": "P1", "Size": "M", "Stage": "build"},
			},
			{
				Title: "Order book skeleton",
				Body: "Title: Order book skeleton\n" +
					"  Body:\n" +
					"  - Implement a minimal price time order book with add, cancel, and top of book snapshot\n" +
					"  - Acceptance: unit tests cover add and cancel and top of book, cargo test passes\n" +
					"  Labels: track hot, stage build, priority P1, size M",
				Tags: map[string]string{"Track": "hot", "Priority": "P1", "Size": "M", "Stage": "build"},
			},
			{
				Title: "Price collar and credit checks with tests",
				Body: "Title: Price collar and credit checks with tests\n" +
					"  Body:\n" +
					"  - Implement price_collar(limit_px, ref_px, pct) and a simple credit limit check\n" +
					"  - Acceptance: unit tests pass including boundary cases\n" +
					"  Labels: track hot, stage build, priority P1, size S",
				Tags: map[string]string{"Track": "hot", "Priority": "P1", "Size": "S", "Stage": "build"},
			},
			{
				Title: "ClickHouse tables and writer stub",
				Body: "Title: ClickHouse tables and writer stub\n" +
					"  Body:\n" +
					"  - Create tables ticks and risk_outcomes and add a writer stub behind a feature flag\n" +
					"  - Acceptance: ClickHouse up in compose, writer creates tables and inserts one sample row\n" +
					"  Labels: track hot, stage build, priority P2, size S",
				Tags: map[string]string{"Track": "hot", "Priority": "P2", "Size": "S", "Stage": "build"},
			},
		},
	}
	if sprint == "" {
		sprint = DefaultSprint
	}
	s.SetDefault(SprintField, sprint)
	return s
}
