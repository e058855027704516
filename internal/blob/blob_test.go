package blob

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFiles struct {
	paths []string
}

func (f *fakeFiles) PutFile(_ context.Context, p, _ string, _ []byte) (string, error) {
	f.paths = append(f.paths, p)
	return "https://raw.example.com/" + p, nil
}

func TestRepoStoreUpload(t *testing.T) {
	files := &fakeFiles{}
	store := &RepoStore{Tracker: files}

	url, err := store.Upload(context.Background(), []byte("png bytes"), "shot.png", 42)
	require.NoError(t, err)
	require.Len(t, files.paths, 1)

	assert.True(t, strings.HasPrefix(files.paths[0], "attachments/issue-42/"))
	assert.True(t, strings.HasSuffix(files.paths[0], "-shot.png"))
	assert.Equal(t, "https://raw.example.com/"+files.paths[0], url)
}

func TestRepoStoreUniqueKeys(t *testing.T) {
	files := &fakeFiles{}
	store := &RepoStore{Tracker: files}

	_, err := store.Upload(context.Background(), []byte("a"), "same.txt", 1)
	require.NoError(t, err)
	_, err = store.Upload(context.Background(), []byte("b"), "same.txt", 1)
	require.NoError(t, err)
	assert.NotEqual(t, files.paths[0], files.paths[1])
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"shot.png", "shot.png"},
		{"my screenshot.png", "my_screenshot.png"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\jane\doc.pdf`, "doc.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), "input %q", tt.in)
	}
}
