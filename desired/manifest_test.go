package desired

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/boardseed/tracker"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadManifestFormats(t *testing.T) {
	dir := t.TempDir()

	yamlPath := writeFile(t, dir, "board.yaml", `
fields:
  - name: Track
    kind: single_select
    options: [hot]
  - name: Sprint
    kind: text
items:
  - title: Order book skeleton
    body: add, cancel, top of book
    tags:
      Track: hot
defaults:
  Sprint: Sprint 1
`)
	jsonPath := writeFile(t, dir, "board.json", `{
  "fields": [{"name": "Track", "kind": "SINGLE_SELECT", "options": ["hot"]}, {"name": "Sprint", "kind": "TEXT"}],
  "items": [{"title": "Order book skeleton", "body": "add, cancel, top of book", "tags": {"Track": "hot"}}],
  "defaults": {"Sprint": "Sprint 1"}
}`)
	tomlPath := writeFile(t, dir, "board.toml", `
[defaults]
Sprint = "Sprint 1"

[[fields]]
name = "Track"
kind = "SingleSelect"
options = ["hot"]

[[fields]]
name = "Sprint"
kind = "text"

[[items]]
title = "Order book skeleton"
body = "add, cancel, top of book"
[items.tags]
Track = "hot"
`)

	for _, path := range []string{yamlPath, jsonPath, tomlPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			s, err := LoadManifest(path)
			require.NoError(t, err)
			require.NoError(t, s.Validate())

			require.Len(t, s.Fields, 2)
			assert.Equal(t, tracker.KindSingleSelect, s.Fields[0].Kind)
			assert.Equal(t, []string{"hot"}, s.Fields[0].Options)
			assert.Equal(t, tracker.KindText, s.Fields[1].Kind)

			items := s.ResolvedItems()
			require.Len(t, items, 1)
			assert.Equal(t, "Order book skeleton", items[0].Title)
			assert.Equal(t, map[string]string{"Track": "hot", "Sprint": "Sprint 1"}, items[0].Tags)
		})
	}
}

func TestLoadManifestErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown yaml key", "a.yaml", "fields: []\nboards: []\n"},
		{"unknown json key", "a.json", `{"fields": [], "extra": 1}`},
		{"unknown toml key", "a.toml", "extra = 1\n"},
		{"bad kind", "b.yaml", "fields:\n  - name: Due\n    kind: date\n"},
		{"unsupported extension", "a.ini", "x=1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			_, err := LoadManifest(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadManifest(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadManifestsGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "plans/01-fields.yaml", `
fields:
  - name: Track
    kind: SINGLE_SELECT
    options: [hot]
`)
	writeFile(t, dir, "plans/hot/02-items.yaml", `
items:
  - title: first
    tags: {Track: hot}
`)
	writeFile(t, dir, "plans/hot/03-items.json", `{"items": [{"title": "second", "tags": {"Track": "hot"}}]}`)
	writeFile(t, dir, "plans/notes.txt", "ignored")

	s, err := LoadManifests(filepath.Join(dir, "plans", "**", "*.{yaml,json}"))
	require.NoError(t, err)
	require.NoError(t, s.Validate())

	assert.Equal(t, []string{"Track"}, s.FieldNames())
	require.Len(t, s.Items, 2)
	assert.Equal(t, "first", s.Items[0].Title)
	assert.Equal(t, "second", s.Items[1].Title)
}

func TestLoadManifestsNoMatch(t *testing.T) {
	_, err := LoadManifests(filepath.Join(t.TempDir(), "*.yaml"))
	assert.ErrorContains(t, err, "no manifest matches")
}

func TestMergeDuplicateField(t *testing.T) {
	a := State{Fields: []FieldSpec{{Name: "Track", Kind: tracker.KindText}}}
	b := State{Fields: []FieldSpec{{Name: "Track", Kind: tracker.KindText}}}

	_, err := Merge(a, b)
	assert.ErrorContains(t, err, `field "Track" declared more than once`)
}

func TestMarshalRoundTrip(t *testing.T) {
	s := Default("Sprint 3")
	data, err := s.Marshal()
	require.NoError(t, err)

	path := writeFile(t, t.TempDir(), "out.yaml", string(data))
	loaded, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}
