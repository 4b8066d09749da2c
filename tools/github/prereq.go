package github

import (
	"os"
	"os/exec"
	"strings"

	"github.com/c360studio/boardseed/tracker"
)

// DefaultTokenEnv is the variable gh reads its credential from.
const DefaultTokenEnv = "GITHUB_TOKEN"

var lookPath = exec.LookPath

// CheckPrerequisites verifies that binary is on PATH and tokenEnv is set.
// It makes no state-changing call.
func CheckPrerequisites(binary, tokenEnv string) error {
	if binary == "" {
		binary = DefaultBinary
	}
	if tokenEnv == "" {
		tokenEnv = DefaultTokenEnv
	}

	if _, err := lookPath(binary); err != nil {
		return tracker.NewPrerequisiteError("GitHub CLI (%s) is required on PATH", binary)
	}
	if strings.TrimSpace(os.Getenv(tokenEnv)) == "" {
		return tracker.NewPrerequisiteError("%s must be set for GitHub CLI authentication", tokenEnv)
	}
	return nil
}
