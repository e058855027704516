package blob

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config selects and authenticates an S3-compatible bucket.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicBaseURL is the prefix objects are readable under, e.g. a CDN or
	// the bucket website endpoint. Object keys are appended to it.
	PublicBaseURL string
}

// S3Store uploads attachments to an S3-compatible object store.
type S3Store struct {
	client *minio.Client
	cfg    S3Config
}

// NewS3Store connects to the object store.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to object store %s: %w", cfg.Endpoint, err)
	}
	return &S3Store{client: client, cfg: cfg}, nil
}

// Upload puts the attachment under attachments/issue-N/ and returns its
// public URL.
func (s *S3Store) Upload(ctx context.Context, data []byte, filename string, issueNumber int) (string, error) {
	key := path.Join(IssueDir(issueNumber), uuid.NewString()[:8]+"-"+sanitizeFilename(filename))

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return strings.TrimSuffix(s.cfg.PublicBaseURL, "/") + "/" + key, nil
}
