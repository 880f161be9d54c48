package gdrive

import (
	"context"
	"fmt"
	"time"

	"mediabridge/internal/ports"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// Client implements ports.StorageProvider backed by Google Drive.
// Uploads use the object key as the file name; the returned ObjectKey is
// the Drive fileId.
type Client struct {
	srv      *drive.Service
	folderID string
}

func NewClient(srv *drive.Service, folderID string) *Client {
	return &Client{srv: srv, folderID: folderID}
}

func (c *Client) Provider() string { return "gdrive" }

func (c *Client) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	if in.ObjectKey == "" {
		return ports.PutObjectOutput{}, fmt.Errorf("object_key is required")
	}

	file := &drive.File{Name: in.ObjectKey, MimeType: in.ContentType}
	if c.folderID != "" {
		file.Parents = []string{c.folderID}
	}

	call := c.srv.Files.Create(file).SupportsAllDrives(true).Fields("id", "size")
	if in.ContentType != "" {
		call = call.Media(in.Reader, googleapi.ContentType(in.ContentType))
	} else {
		call = call.Media(in.Reader)
	}

	created, err := call.Context(ctx).Do()
	if err != nil {
		return ports.PutObjectOutput{}, fmt.Errorf("gdrive upload failed: %w", err)
	}

	size := in.Size
	if created.Size > 0 {
		size = created.Size
	}
	return ports.PutObjectOutput{ObjectKey: created.Id, Size: size}, nil
}

// GetSignedURL returns the Drive download link for a fileId. Drive links
// do not expire; access is governed by the file's sharing settings.
func (c *Client) GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (ports.SignedURLOutput, error) {
	f, err := c.srv.Files.Get(objectKey).
		SupportsAllDrives(true).
		Fields("id", "webContentLink").
		Context(ctx).
		Do()
	if err != nil {
		return ports.SignedURLOutput{}, fmt.Errorf("gdrive lookup failed: %w", err)
	}

	link := f.WebContentLink
	if link == "" {
		link = "https://drive.google.com/uc?export=download&id=" + f.Id
	}
	return ports.SignedURLOutput{URL: link, ExpiresAt: time.Now().UTC().Add(expiresIn)}, nil
}
