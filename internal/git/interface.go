package git

import "context"

// IClient is the subset of git the harness needs to label a run.
type IClient interface {
	RepoExists(directory string) bool
	CurrentBranch(ctx context.Context, directory string) (string, error)
	CurrentCommitSHA(ctx context.Context, directory string) (string, error)
	IsDirty(ctx context.Context, directory string) (bool, error)
}
