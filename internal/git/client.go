package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const commandTimeout = 30 * time.Second

// Client handles git interactions through the git CLI.
type Client struct{}

// NewClient creates a new Git client.
func NewClient() *Client {
	return &Client{}
}

func (c *Client) output(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var outBuf, errBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	// Enforce no prompting
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s failed: %w\nStderr: %s", args[0], err, strings.TrimSpace(errBuf.String()))
	}
	return strings.TrimSpace(outBuf.String()), nil
}

// RepoExists reports whether dir is inside a git work tree.
func (c *Client) RepoExists(dir string) bool {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return false
	}
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// CurrentBranch returns the name of the current branch, or "HEAD" when
// detached.
func (c *Client) CurrentBranch(ctx context.Context, dir string) (string, error) {
	branch, err := c.output(ctx, dir, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	if branch == "" {
		return "HEAD", nil
	}
	return branch, nil
}

// CurrentCommitSHA returns the full SHA of HEAD.
func (c *Client) CurrentCommitSHA(ctx context.Context, dir string) (string, error) {
	return c.output(ctx, dir, "rev-parse", "HEAD")
}

// IsDirty reports whether the work tree has uncommitted changes.
func (c *Client) IsDirty(ctx context.Context, dir string) (bool, error) {
	status, err := c.output(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return status != "", nil
}

// Revision identifies the checkout a run was made from.
type Revision struct {
	Branch string
	Commit string
	Dirty  bool
}

// ShortCommit returns the abbreviated commit SHA.
func (r Revision) ShortCommit() string {
	if len(r.Commit) > 12 {
		return r.Commit[:12]
	}
	return r.Commit
}

// Label returns the short commit, marked when the checkout had local
// changes.
func (r Revision) Label() string {
	if r.Dirty {
		return r.ShortCommit() + " (dirty)"
	}
	return r.ShortCommit()
}

// Describe collects the revision of dir. Outside a repository it returns
// a zero Revision and no error.
func Describe(ctx context.Context, c IClient, dir string) (Revision, error) {
	if !c.RepoExists(dir) {
		return Revision{}, nil
	}

	var (
		rev Revision
		err error
	)
	if rev.Branch, err = c.CurrentBranch(ctx, dir); err != nil {
		return Revision{}, err
	}
	if rev.Commit, err = c.CurrentCommitSHA(ctx, dir); err != nil {
		return Revision{}, err
	}
	if rev.Dirty, err = c.IsDirty(ctx, dir); err != nil {
		return Revision{}, err
	}
	return rev, nil
}
