// Package git resolves the target owner and repository from the local git
// checkout.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/c360studio/boardseed/tracker"
)

// allowedSchemes are the URL-style remote schemes we accept.
var allowedSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ssh":   true,
	"git":   true,
}

var (
	// user@host:owner/repo
	scpPattern = regexp.MustCompile(`^(?:[^@/\s]+@)?[^:/\s]+:(?P<owner>[^/\s]+)/(?P<repo>[^/\s]+)$`)
	// scheme://[user@]host[:port]/owner/repo
	urlPattern = regexp.MustCompile(`^(?P<scheme>[a-zA-Z][a-zA-Z0-9+.-]*)://(?:[^@/\s]+@)?[^/\s]+/(?P<owner>[^/\s]+)/(?P<repo>[^/\s]+)$`)
)

// ParseRemote splits a remote location into owner and repo. A trailing
// ".git" and trailing slashes are ignored.
func ParseRemote(remote string) (owner, repo string, err error) {
	trimmed := strings.TrimSpace(remote)
	trimmed = strings.TrimRight(trimmed, "/")
	trimmed = strings.TrimSuffix(trimmed, ".git")

	if m := urlPattern.FindStringSubmatch(trimmed); m != nil {
		scheme := strings.ToLower(m[urlPattern.SubexpIndex("scheme")])
		if !allowedSchemes[scheme] {
			return "", "", &tracker.ResolutionError{Remote: remote}
		}
		return m[urlPattern.SubexpIndex("owner")], m[urlPattern.SubexpIndex("repo")], nil
	}
	if strings.Contains(trimmed, "://") {
		return "", "", &tracker.ResolutionError{Remote: remote}
	}
	if m := scpPattern.FindStringSubmatch(trimmed); m != nil {
		return m[scpPattern.SubexpIndex("owner")], m[scpPattern.SubexpIndex("repo")], nil
	}
	return "", "", &tracker.ResolutionError{Remote: remote}
}

// Resolver reads the origin remote of a checkout.
type Resolver struct {
	repoRoot string
	remote   string
}

// NewResolver creates a resolver for the checkout at repoRoot. An empty
// repoRoot uses the working directory.
func NewResolver(repoRoot string) *Resolver {
	return &Resolver{repoRoot: repoRoot, remote: "origin"}
}

// RemoteURL returns the configured URL of the origin remote.
func (r *Resolver) RemoteURL(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "config", "--get", fmt.Sprintf("remote.%s.url", r.remote))
	cmd.Dir = r.repoRoot
	output, err := cmd.Output()
	if err != nil {
		return "", &tracker.ResolutionError{Err: fmt.Errorf("git config remote.%s.url: %w", r.remote, err)}
	}
	return strings.TrimSpace(string(output)), nil
}

// Resolve returns the target owner and repo. Non-empty overrides win; git is
// only consulted when at least one part is missing.
func (r *Resolver) Resolve(ctx context.Context, ownerOverride, repoOverride string) (owner, repo string, err error) {
	if ownerOverride != "" && repoOverride != "" {
		return ownerOverride, repoOverride, nil
	}

	remote, err := r.RemoteURL(ctx)
	if err != nil {
		return "", "", err
	}
	owner, repo, err = ParseRemote(remote)
	if err != nil {
		return "", "", err
	}

	if ownerOverride != "" {
		owner = ownerOverride
	}
	if repoOverride != "" {
		repo = repoOverride
	}
	return owner, repo, nil
}
