package syncer

import (
	"context"
	"fmt"
	"strings"

	"github.com/maildesk/maildesk/internal/types"
)

// maxBodyLength caps the text mirrored into an issue or comment.
const maxBodyLength = 50000

const truncationNotice = "\n\n[Content truncated...]"

// imageTypes are attachment media types embedded inline instead of listed.
var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/webp": true,
}

// sanitizeBody escapes markup-significant characters and truncates overly
// long bodies with a visible notice.
func sanitizeBody(body string) string {
	body = strings.ReplaceAll(body, "<", "&lt;")
	body = strings.ReplaceAll(body, ">", "&gt;")
	if len(body) > maxBodyLength {
		body = body[:maxBodyLength] + truncationNotice
	}
	return body
}

// attachmentSection uploads every attachment and renders the markdown
// section: images embedded inline, everything else as a linked list entry.
// A single upload failure degrades that entry to plain text instead of
// failing the message.
func (s *Inbound) attachmentSection(ctx context.Context, attachments []types.Attachment, issueNumber int) string {
	if len(attachments) == 0 {
		return ""
	}

	var images, files []types.Attachment
	for _, att := range attachments {
		if imageTypes[att.ContentType] {
			images = append(images, att)
		} else {
			files = append(files, att)
		}
	}

	var sections []string

	if len(images) > 0 {
		sections = append(sections, "### 📷 Attached Images\n")
		for _, img := range images {
			url, err := s.Blobs.Upload(ctx, img.Data, img.Filename, issueNumber)
			if err != nil {
				s.Log.Warn("image upload failed, listing as file", "filename", img.Filename, "error", err)
				files = append(files, img)
				continue
			}
			sections = append(sections, fmt.Sprintf("![%s](%s)\n", img.Filename, url))
		}
	}

	if len(files) > 0 {
		sections = append(sections, "### 📎 Other Attachments\n")
		for _, f := range files {
			sizeKB := float64(f.Size) / 1024
			url, err := s.Blobs.Upload(ctx, f.Data, f.Filename, issueNumber)
			if err != nil {
				s.Log.Warn("attachment upload failed", "filename", f.Filename, "error", err)
				sections = append(sections, fmt.Sprintf("- `%s` (%.1f KB) - ⚠️ Upload failed, check original email\n", f.Filename, sizeKB))
				continue
			}
			sections = append(sections, fmt.Sprintf("- [%s](%s) (%.1f KB)\n", f.Filename, url, sizeKB))
		}
	}

	return strings.Join(sections, "\n")
}

// composeBody joins the sanitized body with optional sections, skipping
// empty ones.
func composeBody(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
