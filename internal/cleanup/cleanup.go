// Package cleanup prunes attachment folders belonging to long-closed
// conversations from the tracker repository.
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/maildesk/maildesk/internal/tracker"
)

var issueDirRe = regexp.MustCompile(`^issue-(\d+)$`)

// Tracker is the slice of the tracker client the pruner needs.
type Tracker interface {
	SearchIssues(ctx context.Context, query string) ([]tracker.Issue, error)
	ListContents(ctx context.Context, path string) ([]tracker.ContentEntry, error)
	DeleteFile(ctx context.Context, path, message, sha string) error
}

// Pruner deletes attachments of conversations closed longer than MinAge.
type Pruner struct {
	Tracker    Tracker
	QueueLabel string
	MinAge     time.Duration
	DryRun     bool
	Log        *slog.Logger
}

// Result summarizes one pruning run.
type Result struct {
	FoldersExamined int `json:"folders_examined"`
	FoldersPruned   int `json:"folders_pruned"`
	FilesDeleted    int `json:"files_deleted"`
}

// Run removes every attachments/issue-N folder whose issue is closed and
// older than the cutoff. Folders for unknown or still-open issues are left
// alone.
func (p *Pruner) Run(ctx context.Context) (*Result, error) {
	cutoff := time.Now().UTC().Add(-p.MinAge)

	issues, err := p.Tracker.SearchIssues(ctx, fmt.Sprintf("label:%s is:closed", p.QueueLabel))
	if err != nil {
		return nil, fmt.Errorf("search closed conversations: %w", err)
	}

	prunable := make(map[int]bool, len(issues))
	for _, issue := range issues {
		if issue.ClosedAt == "" {
			continue
		}
		closedAt, err := time.Parse(time.RFC3339, issue.ClosedAt)
		if err != nil {
			p.Log.Warn("unparseable closed_at", "issue", issue.Number, "value", issue.ClosedAt)
			continue
		}
		if closedAt.Before(cutoff) {
			prunable[issue.Number] = true
		}
	}
	p.Log.Info("closed conversations past cutoff", "count", len(prunable), "cutoff", cutoff.Format(time.RFC3339))

	folders, err := p.Tracker.ListContents(ctx, "attachments")
	if err != nil {
		return nil, fmt.Errorf("list attachment folders: %w", err)
	}

	result := &Result{}
	for _, folder := range folders {
		if folder.Type != "dir" {
			continue
		}
		m := issueDirRe.FindStringSubmatch(folder.Name)
		if m == nil {
			continue
		}
		number, _ := strconv.Atoi(m[1])
		result.FoldersExamined++
		if !prunable[number] {
			continue
		}

		deleted, err := p.pruneFolder(ctx, folder.Path, number)
		if err != nil {
			p.Log.Warn("pruning folder failed", "path", folder.Path, "error", err)
			continue
		}
		result.FoldersPruned++
		result.FilesDeleted += deleted
	}

	return result, nil
}

func (p *Pruner) pruneFolder(ctx context.Context, path string, issueNumber int) (int, error) {
	files, err := p.Tracker.ListContents(ctx, path)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, f := range files {
		if f.Type != "file" {
			continue
		}
		if p.DryRun {
			p.Log.Info("would delete", "path", f.Path)
			deleted++
			continue
		}
		msg := fmt.Sprintf("Remove attachment for closed issue #%d", issueNumber)
		if err := p.Tracker.DeleteFile(ctx, f.Path, msg, f.SHA); err != nil {
			return deleted, err
		}
		p.Log.Info("deleted", "path", f.Path)
		deleted++
	}
	return deleted, nil
}
