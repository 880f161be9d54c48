package processor

import (
	"os"
	"path/filepath"

	"mediabridge/internal/pkg/errors"
)

// Cleanup empties the engine output area between jobs so no artifact
// outlives the job that produced it.
type Cleanup struct {
	outputRoot string
}

func NewCleanup(outputRoot string) *Cleanup {
	return &Cleanup{outputRoot: outputRoot}
}

// Purge removes the top-level regular files of the output area.
// Subdirectories are left alone. A missing directory is already clean.
func (c *Cleanup) Purge() (int, error) {
	entries, err := os.ReadDir(c.outputRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.WrapWithCode(err, errors.CodeInternal, "processor.cleanup", "failed to list output folder")
	}

	var (
		removed  int
		firstErr error
	)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		err := os.Remove(filepath.Join(c.outputRoot, e.Name()))
		if err == nil || os.IsNotExist(err) {
			removed++
			continue
		}
		if firstErr == nil {
			firstErr = errors.WrapWithCode(err, errors.CodeInternal, "processor.cleanup", "failed to remove "+e.Name())
		}
	}
	return removed, firstErr
}
