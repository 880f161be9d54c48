package storage

import (
	"context"
	"fmt"

	"mediabridge/internal/adapters/storage/gdrive"
	"mediabridge/internal/adapters/storage/localfs"
	"mediabridge/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// NewProvider builds the artifact storage selected by cfg. Inline mode has
// no provider and returns nil.
func NewProvider(ctx context.Context, cfg config.Storage) (Provider, error) {
	switch cfg.Provider {
	case config.StorageInline, "":
		return nil, nil

	case config.StorageLocalFS:
		return localfs.New(cfg.LocalRoot, cfg.PublicBaseURL), nil

	case config.StorageGDrive:
		return newGDriveProvider(ctx, cfg.GDrive)

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}

func newGDriveProvider(ctx context.Context, g config.GDrive) (Provider, error) {
	conf := &oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}

	tok := &oauth2.Token{RefreshToken: g.RefreshToken}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	return gdrive.NewClient(srv, g.FolderID), nil
}
