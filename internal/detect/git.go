package detect

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/joescharf/tribunal/internal/models"
)

// GitClient defines the git operations the repo investigator needs.
type GitClient interface {
	Clone(repoRef, dest string) error
	Log(path string) ([]models.Commit, error)
}

// RealGitClient implements GitClient using real git commands.
type RealGitClient struct{}

// NewGitClient returns a new RealGitClient.
func NewGitClient() *RealGitClient {
	return &RealGitClient{}
}

func gitCmd(path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	out, err := exec.Command("git", fullArgs...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Clone clones repoRef into dest. Local paths and remote URLs both work.
func (c *RealGitClient) Clone(repoRef, dest string) error {
	out, err := exec.Command("git", "clone", "--quiet", repoRef, dest).CombinedOutput()
	if err != nil {
		return fmt.Errorf("git clone %s: %s", repoRef, strings.TrimSpace(string(out)))
	}
	return nil
}

// logFormat renders one commit per line with unit separators:
// hash, author, author date (ISO), subject.
const logFormat = "%H%x1f%an%x1f%aI%x1f%s"

// Log returns the full commit history of the repository at path, oldest
// first.
func (c *RealGitClient) Log(path string) ([]models.Commit, error) {
	out, err := gitCmd(path, "log", "--reverse", "--format="+logFormat)
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	var commits []models.Commit
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, "\x1f", 4)
		if len(parts) != 4 {
			continue
		}
		ts, err := time.Parse(time.RFC3339, parts[2])
		if err != nil {
			ts = time.Time{}
		}
		commits = append(commits, models.Commit{
			Hash:      parts[0],
			Author:    parts[1],
			Timestamp: ts,
			Message:   parts[3],
		})
	}
	return commits, nil
}
