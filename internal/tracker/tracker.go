// Package tracker is the GitHub issue client for maildesk.
//
// It covers the small slice of the REST v3 API the bridge needs (issues,
// comments, search, repository contents) plus the single GraphQL mutation
// used to attach an issue to a Projects V2 board.
package tracker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultBaseURL = "https://api.github.com"
	graphqlURL     = "https://api.github.com/graphql"
)

// Label is an issue label.
type Label struct {
	Name string `json:"name"`
}

// User is the author of an issue or comment.
type User struct {
	Login string `json:"login"`
	Type  string `json:"type"` // "User" or "Bot"
}

// Issue is the subset of GitHub issue fields maildesk cares about.
type Issue struct {
	Number   int     `json:"number"`
	NodeID   string  `json:"node_id,omitempty"`
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	State    string  `json:"state"`
	Labels   []Label `json:"labels,omitempty"`
	ClosedAt string  `json:"closed_at,omitempty"`
	User     *User   `json:"user,omitempty"`
}

// HasLabel reports whether the issue carries the named label.
func (i *Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if l.Name == name {
			return true
		}
	}
	return false
}

// Comment is an issue comment.
type Comment struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
	User User   `json:"user"`
}

// IssueUpdate carries the optional fields of an issue PATCH. Nil fields are
// left untouched on the server.
type IssueUpdate struct {
	Title  *string  `json:"title,omitempty"`
	Body   *string  `json:"body,omitempty"`
	State  *string  `json:"state,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// Client talks to the GitHub API for a single repository.
type Client struct {
	httpClient *http.Client
	baseURL    string
	repo       string // "owner/repo"
}

// NewClient builds a client authenticated with a personal access token.
func NewClient(ctx context.Context, token, repo string) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	hc := oauth2.NewClient(ctx, src)
	hc.Timeout = 30 * time.Second
	return &Client{httpClient: hc, baseURL: defaultBaseURL, repo: repo}
}

// Repo returns the "owner/repo" slug this client is bound to.
func (c *Client) Repo() string { return c.repo }

// do performs a request and decodes the JSON response into out (when out is
// non-nil). Non-2xx responses become errors carrying the response body.
func (c *Client) do(ctx context.Context, method, u string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: %s: %s", method, u, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) repoURL(format string, args ...any) string {
	return c.baseURL + "/repos/" + c.repo + fmt.Sprintf(format, args...)
}

// CreateIssue opens a new issue and returns it.
func (c *Client) CreateIssue(ctx context.Context, title, body string, labels []string) (*Issue, error) {
	in := map[string]any{"title": title, "body": body}
	if len(labels) > 0 {
		in["labels"] = labels
	}
	var issue Issue
	if err := c.do(ctx, http.MethodPost, c.repoURL("/issues"), in, &issue); err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}
	return &issue, nil
}

// GetIssue fetches one issue by number.
func (c *Client) GetIssue(ctx context.Context, number int) (*Issue, error) {
	var issue Issue
	if err := c.do(ctx, http.MethodGet, c.repoURL("/issues/%d", number), nil, &issue); err != nil {
		return nil, fmt.Errorf("get issue #%d: %w", number, err)
	}
	return &issue, nil
}

// UpdateIssue patches an issue and returns the updated copy.
func (c *Client) UpdateIssue(ctx context.Context, number int, upd IssueUpdate) (*Issue, error) {
	var issue Issue
	if err := c.do(ctx, http.MethodPatch, c.repoURL("/issues/%d", number), upd, &issue); err != nil {
		return nil, fmt.Errorf("update issue #%d: %w", number, err)
	}
	return &issue, nil
}

// ReopenIssue flips a closed issue back to open.
func (c *Client) ReopenIssue(ctx context.Context, number int) error {
	state := "open"
	_, err := c.UpdateIssue(ctx, number, IssueUpdate{State: &state})
	return err
}

// AddComment appends a comment to an issue.
func (c *Client) AddComment(ctx context.Context, number int, body string) (*Comment, error) {
	var comment Comment
	in := map[string]string{"body": body}
	if err := c.do(ctx, http.MethodPost, c.repoURL("/issues/%d/comments", number), in, &comment); err != nil {
		return nil, fmt.Errorf("comment on issue #%d: %w", number, err)
	}
	return &comment, nil
}

// SearchIssues runs an issue search scoped to the client's repository and
// returns results in the API's default order.
func (c *Client) SearchIssues(ctx context.Context, query string) ([]Issue, error) {
	q := url.Values{}
	q.Set("q", query+" repo:"+c.repo)
	q.Set("per_page", "100")

	var result struct {
		TotalCount int     `json:"total_count"`
		Items      []Issue `json:"items"`
	}
	u := c.baseURL + "/search/issues?" + q.Encode()
	if err := c.do(ctx, http.MethodGet, u, nil, &result); err != nil {
		return nil, fmt.Errorf("search issues %q: %w", query, err)
	}
	return result.Items, nil
}

// NextIssueNumber predicts the number the next created issue will receive.
// Best effort: a concurrent creation can still take the number first, so
// callers must reconcile against the number actually assigned.
func (c *Client) NextIssueNumber(ctx context.Context) (int, error) {
	u := c.repoURL("/issues") + "?state=all&per_page=1&sort=created&direction=desc"
	var issues []Issue
	if err := c.do(ctx, http.MethodGet, u, nil, &issues); err != nil {
		return 0, fmt.Errorf("predict next issue number: %w", err)
	}
	if len(issues) == 0 {
		return 1, nil
	}
	return issues[0].Number + 1, nil
}

// AddToProject attaches an issue (by node id) to a Projects V2 board.
func (c *Client) AddToProject(ctx context.Context, issueNodeID, projectID string) error {
	const mutation = `mutation($projectId: ID!, $contentId: ID!) {
	  addProjectV2ItemById(input: {projectId: $projectId, contentId: $contentId}) {
	    item { id }
	  }
	}`

	in := map[string]any{
		"query": mutation,
		"variables": map[string]string{
			"projectId": projectID,
			"contentId": issueNodeID,
		},
	}
	var result struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := c.do(ctx, http.MethodPost, graphqlURL, in, &result); err != nil {
		return fmt.Errorf("add to project %s: %w", projectID, err)
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("add to project %s: %s", projectID, result.Errors[0].Message)
	}
	return nil
}

// ContentEntry is one file or directory in the repository contents API.
type ContentEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	SHA  string `json:"sha"`
	Type string `json:"type"` // "file" or "dir"
}

// PutFile commits data at path and returns the raw download URL.
func (c *Client) PutFile(ctx context.Context, path, message string, data []byte) (string, error) {
	in := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(data),
	}
	var result struct {
		Content struct {
			DownloadURL string `json:"download_url"`
		} `json:"content"`
	}
	if err := c.do(ctx, http.MethodPut, c.repoURL("/contents/%s", path), in, &result); err != nil {
		return "", fmt.Errorf("put %s: %w", path, err)
	}
	return result.Content.DownloadURL, nil
}

// ListContents returns the entries of a repository directory. A missing
// directory yields an empty list.
func (c *Client) ListContents(ctx context.Context, path string) ([]ContentEntry, error) {
	var entries []ContentEntry
	err := c.do(ctx, http.MethodGet, c.repoURL("/contents/%s", path), nil, &entries)
	if err != nil {
		if strings.Contains(err.Error(), "404") {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	return entries, nil
}

// DeleteFile removes a committed file. The blob SHA comes from ListContents.
func (c *Client) DeleteFile(ctx context.Context, path, message, sha string) error {
	in := map[string]string{"message": message, "sha": sha}
	if err := c.do(ctx, http.MethodDelete, c.repoURL("/contents/%s", path), in, nil); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}
