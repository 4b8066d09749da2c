package desired

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// LoadManifest reads a single manifest. The format is chosen by extension:
// .yaml/.yml, .json or .toml. Unknown keys are rejected.
func LoadManifest(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, fmt.Errorf("read manifest: %w", err)
	}

	var s State
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			return State{}, fmt.Errorf("parse manifest %s: %w", path, err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return State{}, fmt.Errorf("parse manifest %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &s)
		if err != nil {
			return State{}, fmt.Errorf("parse manifest %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return State{}, fmt.Errorf("parse manifest %s: unknown key %q", path, undecoded[0].String())
		}
	default:
		return State{}, fmt.Errorf("manifest %s: unsupported format %q", path, filepath.Ext(path))
	}

	for i := range s.Fields {
		kind, err := ParseKind(string(s.Fields[i].Kind))
		if err != nil {
			return State{}, fmt.Errorf("manifest %s: field %q: %w", path, s.Fields[i].Name, err)
		}
		s.Fields[i].Kind = kind
	}
	return s, nil
}

// LoadManifests loads every file matching pattern (a doublestar glob, or a
// plain path) in lexical order and merges them.
func LoadManifests(pattern string) (State, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return State{}, fmt.Errorf("glob %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return State{}, fmt.Errorf("no manifest matches %q", pattern)
	}
	sort.Strings(matches)

	states := make([]State, 0, len(matches))
	for _, path := range matches {
		s, err := LoadManifest(path)
		if err != nil {
			return State{}, err
		}
		states = append(states, s)
	}
	return Merge(states...)
}

// Merge combines states in order. Field names must be unique across all of
// them; items are appended; later defaults override earlier ones.
func Merge(states ...State) (State, error) {
	var out State
	for _, s := range states {
		for _, f := range s.Fields {
			if _, dup := out.Field(f.Name); dup {
				return State{}, fmt.Errorf("field %q declared more than once", f.Name)
			}
			out.Fields = append(out.Fields, f)
		}
		out.Items = append(out.Items, s.Items...)
		for k, v := range s.Defaults {
			out.SetDefault(k, v)
		}
	}
	return out, nil
}

// Marshal renders the state as YAML.
func (s State) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return buf.Bytes(), nil
}
