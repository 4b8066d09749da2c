// Package github implements tracker.Adapter on top of the GitHub CLI (gh).
// Every operation is a single gh invocation; operations that return data
// request JSON output.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/c360studio/boardseed/tracker"
)

// DefaultBinary is the gh executable name looked up on PATH.
const DefaultBinary = "gh"

// Client talks to GitHub Projects through the gh CLI.
type Client struct {
	binary   string
	repoRoot string
	runner   Runner
	logger   *slog.Logger
}

// NewClient creates a client that runs gh in repoRoot.
func NewClient(repoRoot string) *Client {
	return &Client{
		binary:   DefaultBinary,
		repoRoot: repoRoot,
		runner:   ExecRunner{},
		logger:   slog.Default(),
	}
}

// WithBinary overrides the gh executable.
func (c *Client) WithBinary(binary string) *Client {
	if binary != "" {
		c.binary = binary
	}
	return c
}

// WithRunner replaces the subprocess runner.
func (c *Client) WithRunner(r Runner) *Client {
	c.runner = r
	return c
}

// WithLogger sets the logger used for per-call debug output.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// projectJSON is the subset of `gh project create --format json` we use.
type projectJSON struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	URL    string `json:"url"`
}

type optionJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type fieldJSON struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Type     string       `json:"type"`
	DataType string       `json:"dataType"`
	Options  []optionJSON `json:"options"`
}

type itemJSON struct {
	ID string `json:"id"`
}

// CreateBoard implements tracker.Adapter.
func (c *Client) CreateBoard(ctx context.Context, owner, title string) (tracker.Board, error) {
	args := []string{"project", "create", "--owner", owner, "--title", title, "--format", "json"}
	out, err := c.runGH(ctx, tracker.OpCreateBoard, args...)
	if err != nil {
		return tracker.Board{}, err
	}

	var p projectJSON
	if err := c.decode(tracker.OpCreateBoard, args, out, &p); err != nil {
		return tracker.Board{}, err
	}
	if p.ID == "" || p.Number == 0 {
		return tracker.Board{}, c.parseError(tracker.OpCreateBoard, args, out, fmt.Errorf("missing project id or number"))
	}
	return tracker.Board{ID: p.ID, Number: p.Number, URL: p.URL}, nil
}

// ListFields implements tracker.Adapter. gh returns either an object with a
// "fields" array or, in older releases, a bare array. Plain fields without a
// data type cost one extra `gh api graphql` call.
func (c *Client) ListFields(ctx context.Context, owner string, boardNumber int) ([]tracker.RemoteField, error) {
	args := []string{"project", "field-list", strconv.Itoa(boardNumber), "--owner", owner, "--format", "json"}
	out, err := c.runGH(ctx, tracker.OpListFields, args...)
	if err != nil {
		return nil, err
	}

	var raw []fieldJSON
	trimmed := strings.TrimSpace(string(out))
	if strings.HasPrefix(trimmed, "[") {
		if err := c.decode(tracker.OpListFields, args, out, &raw); err != nil {
			return nil, err
		}
	} else {
		var wrapper struct {
			Fields []fieldJSON `json:"fields"`
		}
		if err := c.decode(tracker.OpListFields, args, out, &wrapper); err != nil {
			return nil, err
		}
		raw = wrapper.Fields
	}
	if err := c.fillDataTypes(ctx, raw); err != nil {
		return nil, err
	}

	fields := make([]tracker.RemoteField, 0, len(raw))
	for _, f := range raw {
		rf := tracker.RemoteField{ID: f.ID, Name: f.Name, Kind: kindFromGH(f.DataType, f.Type)}
		if len(f.Options) > 0 {
			rf.Options = make(map[string]string, len(f.Options))
			for _, opt := range f.Options {
				rf.Options[opt.Name] = opt.ID
			}
		}
		fields = append(fields, rf)
	}
	return fields, nil
}

// fillDataTypes looks up the data type of every plain ProjectV2Field that
// field-list reported without one. Recent gh releases only print the type
// name, which is shared by TEXT, NUMBER, DATE and the built-in fields.
func (c *Client) fillDataTypes(ctx context.Context, raw []fieldJSON) error {
	var ids []string
	for _, f := range raw {
		if f.DataType == "" && f.Type == "ProjectV2Field" {
			ids = append(ids, f.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	quoted, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode field ids: %w", err)
	}
	query := fmt.Sprintf("query{nodes(ids:%s){... on ProjectV2Field{id dataType}}}", quoted)
	args := []string{"api", "graphql", "-f", "query=" + query}
	out, err := c.runGH(ctx, tracker.OpListFields, args...)
	if err != nil {
		return err
	}

	var resp struct {
		Data struct {
			Nodes []struct {
				ID       string `json:"id"`
				DataType string `json:"dataType"`
			} `json:"nodes"`
		} `json:"data"`
	}
	if err := c.decode(tracker.OpListFields, args, out, &resp); err != nil {
		return err
	}
	types := make(map[string]string, len(resp.Data.Nodes))
	for _, n := range resp.Data.Nodes {
		types[n.ID] = n.DataType
	}
	for i := range raw {
		if dt, ok := types[raw[i].ID]; ok && raw[i].DataType == "" {
			raw[i].DataType = dt
		}
	}
	return nil
}

// CreateField implements tracker.Adapter.
func (c *Client) CreateField(ctx context.Context, owner string, boardNumber int, name string, kind tracker.FieldKind, options []string) error {
	args := []string{
		"project", "field-create", strconv.Itoa(boardNumber),
		"--owner", owner,
		"--name", name,
		"--data-type", string(kind),
		"--format", "json",
	}
	if len(options) > 0 {
		args = append(args, "--single-select-options", strings.Join(options, ","))
	}
	_, err := c.runGH(ctx, tracker.OpCreateField, args...)
	return err
}

// CreateItem implements tracker.Adapter. gh prints the new issue URL as the
// last line of its output.
func (c *Client) CreateItem(ctx context.Context, owner, repo, title, body string) (string, error) {
	args := []string{"issue", "create", "--repo", owner + "/" + repo, "--title", title, "--body", body}
	out, err := c.runGH(ctx, tracker.OpCreateItem, args...)
	if err != nil {
		return "", err
	}

	url := lastLine(string(out))
	if !strings.HasPrefix(url, "http") {
		return "", c.parseError(tracker.OpCreateItem, args, out, fmt.Errorf("no issue URL in output"))
	}
	return url, nil
}

// AttachItem implements tracker.Adapter.
func (c *Client) AttachItem(ctx context.Context, owner string, boardNumber int, itemURL string) (tracker.BoardItem, error) {
	args := []string{"project", "item-add", strconv.Itoa(boardNumber), "--owner", owner, "--url", itemURL, "--format", "json"}
	out, err := c.runGH(ctx, tracker.OpAttachItem, args...)
	if err != nil {
		return tracker.BoardItem{}, err
	}

	var item itemJSON
	if err := c.decode(tracker.OpAttachItem, args, out, &item); err != nil {
		return tracker.BoardItem{}, err
	}
	if item.ID == "" {
		return tracker.BoardItem{}, c.parseError(tracker.OpAttachItem, args, out, fmt.Errorf("missing item id"))
	}
	return tracker.BoardItem{ID: item.ID}, nil
}

// SetSelectValue implements tracker.Adapter.
func (c *Client) SetSelectValue(ctx context.Context, boardID, itemID, fieldID, optionID string) error {
	_, err := c.runGH(ctx, tracker.OpSetSelectValue,
		"project", "item-edit",
		"--id", itemID,
		"--project-id", boardID,
		"--field-id", fieldID,
		"--single-select-option-id", optionID,
	)
	return err
}

// SetTextValue implements tracker.Adapter.
func (c *Client) SetTextValue(ctx context.Context, boardID, itemID, fieldID, text string) error {
	_, err := c.runGH(ctx, tracker.OpSetTextValue,
		"project", "item-edit",
		"--id", itemID,
		"--project-id", boardID,
		"--field-id", fieldID,
		"--text", text,
	)
	return err
}

// runGH executes a gh command in the repo directory and returns stdout.
func (c *Client) runGH(ctx context.Context, op string, args ...string) ([]byte, error) {
	c.logger.Debug("gh call", "op", op, "args", strings.Join(args, " "))

	stdout, stderr, err := c.runner.Run(ctx, c.repoRoot, c.binary, args...)
	if err != nil {
		output := string(stderr)
		if strings.TrimSpace(output) == "" {
			output = string(stdout)
		}
		return nil, &tracker.AdapterError{
			Op:      op,
			Command: c.commandLine(args),
			Output:  output,
			Err:     err,
		}
	}
	return stdout, nil
}

func (c *Client) decode(op string, args []string, out []byte, v any) error {
	if err := json.Unmarshal(out, v); err != nil {
		return c.parseError(op, args, out, fmt.Errorf("parse output: %w", err))
	}
	return nil
}

func (c *Client) parseError(op string, args []string, out []byte, err error) error {
	return &tracker.AdapterError{Op: op, Command: c.commandLine(args), Output: string(out), Err: err}
}

func (c *Client) commandLine(args []string) string {
	return c.binary + " " + strings.Join(args, " ")
}

// kindFromGH maps gh's field descriptors onto tracker kinds. The type name
// is only consulted when no data type is known.
func kindFromGH(dataType, typeName string) tracker.FieldKind {
	switch strings.ToUpper(dataType) {
	case "SINGLE_SELECT":
		return tracker.KindSingleSelect
	case "TEXT":
		return tracker.KindText
	case "":
	default:
		return tracker.FieldKind(strings.ToUpper(dataType))
	}

	switch typeName {
	case "ProjectV2SingleSelectField":
		return tracker.KindSingleSelect
	case "ProjectV2Field":
		return tracker.KindText
	}
	return tracker.FieldKind(typeName)
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

var _ tracker.Adapter = (*Client)(nil)
