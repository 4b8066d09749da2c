// Package report accumulates the outcome of a bootstrap run for display.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/c360studio/boardseed/tracker"
)

// Entry is one created item.
type Entry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Report is the board URL plus every created item, in creation order.
type Report struct {
	RunID       string  `json:"run_id,omitempty"`
	Owner       string  `json:"owner"`
	Repo        string  `json:"repo"`
	BoardURL    string  `json:"board_url"`
	BoardNumber int     `json:"board_number"`
	Items       []Entry `json:"items"`
}

// New creates an empty report for a run.
func New(runID, owner, repo string) *Report {
	return &Report{RunID: runID, Owner: owner, Repo: repo, Items: []Entry{}}
}

// SetBoard records the created board.
func (r *Report) SetBoard(b tracker.Board) {
	r.BoardURL = b.URL
	r.BoardNumber = b.Number
}

// Add appends a created item.
func (r *Report) Add(title, url string) {
	r.Items = append(r.Items, Entry{Title: title, URL: url})
}

// URLs returns the item URLs in insertion order.
func (r *Report) URLs() []string {
	out := make([]string, len(r.Items))
	for i, e := range r.Items {
		out[i] = e.URL
	}
	return out
}

// WriteText writes the board URL followed by one item URL per line.
func (r *Report) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintln(w, r.BoardURL); err != nil {
		return err
	}
	for _, e := range r.Items {
		if _, err := fmt.Fprintln(w, e.URL); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Write renders the report in format ("text" or "json").
func (r *Report) Write(w io.Writer, format string) error {
	switch format {
	case "", "text":
		return r.WriteText(w)
	case "json":
		return r.WriteJSON(w)
	}
	return fmt.Errorf("invalid format %q: must be one of text, json", format)
}
