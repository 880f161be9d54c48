package processor

import (
	"bytes"
	"context"
	"encoding/base64"
	"time"

	"mediabridge/internal/pkg/errors"
	"mediabridge/internal/ports"
)

// Encoder turns a resolved artifact into the success message of a job.
type Encoder interface {
	Encode(ctx context.Context, jobID string, a *Artifact) (string, error)
}

// NewEncoder returns the storage-backed encoder when sp is set and the
// inline base64 encoder otherwise.
func NewEncoder(sp ports.StorageProvider) Encoder {
	if sp == nil {
		return InlineEncoder{}
	}
	return &StorageEncoder{sp: sp, urlTTL: 7 * 24 * time.Hour}
}

// InlineEncoder returns the artifact bytes as standard base64.
type InlineEncoder struct{}

func (InlineEncoder) Encode(_ context.Context, _ string, a *Artifact) (string, error) {
	return base64.StdEncoding.EncodeToString(a.Data), nil
}

// StorageEncoder uploads the artifact under {jobID}/{filename} and returns
// its URL.
type StorageEncoder struct {
	sp     ports.StorageProvider
	urlTTL time.Duration
}

func (e *StorageEncoder) Encode(ctx context.Context, jobID string, a *Artifact) (string, error) {
	key := SanitizeFilename(jobID) + "/" + SanitizeFilename(a.Ref.Filename)

	out, err := e.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   key,
		ContentType: ContentTypeFor(a.Ref.Filename),
		Reader:      bytes.NewReader(a.Data),
		Size:        int64(len(a.Data)),
	})
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeStorage, "processor.encode", "failed to upload artifact").
			WithField("provider", e.sp.Provider())
	}

	signed, err := e.sp.GetSignedURL(ctx, out.ObjectKey, e.urlTTL)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeStorage, "processor.encode", "failed to get artifact url").
			WithField("provider", e.sp.Provider())
	}
	return signed.URL, nil
}
