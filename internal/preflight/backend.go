// Package preflight turns a repository URL and branch into the
// material a run needs before reasoning starts: a file tree, a
// condensed source context, a predicted tech stack, and a clone
// session that can be cleaned up afterwards.
package preflight

import "context"

// Backend provides access to a cloned repository. The remote cloning
// microservice and the in-process git clone both satisfy it.
type Backend interface {
	// Clone fetches the repository and returns a session id for
	// subsequent file access.
	Clone(ctx context.Context, repoURL, branch string) (string, error)

	// ListFiles returns relative paths of regular files in the clone,
	// version-control metadata excluded.
	ListFiles(ctx context.Context, session string) ([]string, error)

	// ReadFile returns the content of one file in the clone.
	ReadFile(ctx context.Context, session, path string) ([]byte, error)

	// Cleanup releases the clone session.
	Cleanup(ctx context.Context, session string) error
}
