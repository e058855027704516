// Package blob stores email attachments and returns retrievable URLs.
//
// Two backends exist: the repository contents API (attachments live next to
// the issues that reference them, prunable by the cleanup job) and an
// S3-compatible object store.
package blob

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Store uploads one attachment and returns a URL the tracker can embed.
type Store interface {
	Upload(ctx context.Context, data []byte, filename string, issueNumber int) (string, error)
}

// TrackerFiles is the contents-API slice RepoStore needs.
type TrackerFiles interface {
	PutFile(ctx context.Context, path, message string, data []byte) (string, error)
}

// RepoStore commits attachments under attachments/issue-N/ in the tracker
// repository.
type RepoStore struct {
	Tracker TrackerFiles
}

// IssueDir returns the attachment directory for an issue, shared with the
// cleanup job.
func IssueDir(issueNumber int) string {
	return fmt.Sprintf("attachments/issue-%d", issueNumber)
}

// Upload commits the attachment and returns its raw download URL. A short
// random prefix keeps same-named attachments from colliding.
func (s *RepoStore) Upload(ctx context.Context, data []byte, filename string, issueNumber int) (string, error) {
	name := uuid.NewString()[:8] + "-" + sanitizeFilename(filename)
	p := path.Join(IssueDir(issueNumber), name)
	msg := fmt.Sprintf("Add attachment %s for issue #%d", filename, issueNumber)
	return s.Tracker.PutFile(ctx, p, msg, data)
}

// sanitizeFilename strips path separators and whitespace a mail client may
// have left in the attachment name.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 32:
			return -1
		default:
			return r
		}
	}, name)
}
