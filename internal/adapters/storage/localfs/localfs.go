package localfs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mediabridge/internal/ports"
)

// LocalFS implements ports.StorageProvider on a directory that some web
// server publishes under publicBaseURL.
type LocalFS struct {
	root          string
	publicBaseURL string
}

func New(root, publicBaseURL string) *LocalFS {
	return &LocalFS{root: root, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (l *LocalFS) Provider() string { return "localfs" }

func (l *LocalFS) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	dst, err := l.path(in.ObjectKey)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return ports.PutObjectOutput{}, err
	}

	outF, err := os.Create(dst)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}
	defer outF.Close()

	n, err := io.Copy(outF, in.Reader)
	if err != nil {
		return ports.PutObjectOutput{}, err
	}

	return ports.PutObjectOutput{ObjectKey: in.ObjectKey, Size: n}, nil
}

// GetSignedURL returns the public URL of objectKey. Local files do not
// expire; ExpiresAt only reports the requested window.
func (l *LocalFS) GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (ports.SignedURLOutput, error) {
	if _, err := l.path(objectKey); err != nil {
		return ports.SignedURLOutput{}, err
	}

	segments := strings.Split(objectKey, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return ports.SignedURLOutput{
		URL:       l.publicBaseURL + "/" + strings.Join(segments, "/"),
		ExpiresAt: time.Now().UTC().Add(expiresIn),
	}, nil
}

func (l *LocalFS) path(objectKey string) (string, error) {
	if objectKey == "" {
		return "", fmt.Errorf("object_key is required")
	}
	p := filepath.Join(l.root, filepath.FromSlash(objectKey))
	rel, err := filepath.Rel(l.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("object_key escapes storage root: %s", objectKey)
	}
	return p, nil
}
