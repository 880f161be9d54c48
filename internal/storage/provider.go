package storage

import "mediabridge/internal/ports"

// Provider is the storage contract used by the artifact encoder.
// It is an alias to ports.StorageProvider to keep call-sites simple.
type Provider = ports.StorageProvider
