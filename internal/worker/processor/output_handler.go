package processor

import (
	"cmp"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	v0 "mediabridge/internal/contracts/engine/v0"
	"mediabridge/internal/pkg/errors"
)

// Artifact is a generated file located in the output area.
type Artifact struct {
	Ref  v0.ArtifactRef
	Path string
	Data []byte
}

// Resolver finds the generated artifact referenced by a history entry.
type Resolver struct {
	outputRoot string
	field      string
}

func NewResolver(outputRoot, artifactField string) *Resolver {
	return &Resolver{outputRoot: outputRoot, field: artifactField}
}

// Resolve scans every node output for the artifact list field and keeps the
// last descriptor seen. Nodes are visited in ascending id order so "last"
// does not depend on map iteration.
func (r *Resolver) Resolve(outputs map[string]v0.NodeOutput) (*Artifact, error) {
	var (
		found bool
		last  v0.ArtifactRef
	)

	for _, nodeID := range sortedNodeIDs(outputs) {
		refs, err := outputs[nodeID].Artifacts(r.field)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeResolution, "processor.resolve",
				"malformed "+r.field+" list in node "+nodeID)
		}
		for _, ref := range refs {
			if strings.TrimSpace(ref.Filename) == "" {
				continue
			}
			last = ref
			found = true
		}
	}

	if !found {
		return nil, errors.Newf(errors.CodeResolution, "no %s artifact found in pipeline outputs", r.field)
	}

	path, err := r.localPath(last)
	if err != nil {
		return nil, err
	}

	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		return nil, errors.New(errors.CodeResolution, "the artifact does not exist in the specified output folder: "+path).
			WithField("path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeResolution, "processor.resolve", "failed to read artifact")
	}

	return &Artifact{Ref: last, Path: path, Data: data}, nil
}

func (r *Resolver) localPath(ref v0.ArtifactRef) (string, error) {
	root := filepath.Clean(r.outputRoot)
	p := filepath.Join(root, filepath.FromSlash(ref.Subfolder), filepath.FromSlash(ref.Filename))

	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Newf(errors.CodeResolution, "artifact path escapes output folder: %s/%s", ref.Subfolder, ref.Filename)
	}
	return p, nil
}

// sortedNodeIDs orders ids numerically when both are integers, otherwise
// lexically; integer ids sort before the rest.
func sortedNodeIDs(outputs map[string]v0.NodeOutput) []string {
	ids := make([]string, 0, len(outputs))
	for id := range outputs {
		ids = append(ids, id)
	}

	slices.SortFunc(ids, func(a, b string) int {
		na, errA := strconv.Atoi(a)
		nb, errB := strconv.Atoi(b)
		switch {
		case errA == nil && errB == nil:
			return cmp.Compare(na, nb)
		case errA == nil:
			return -1
		case errB == nil:
			return 1
		default:
			return strings.Compare(a, b)
		}
	})
	return ids
}
