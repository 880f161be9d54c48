package processor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	v0 "mediabridge/internal/contracts/engine/v0"
	"mediabridge/internal/pkg/errors"
)

func outputsFromJSON(t *testing.T, raw string) map[string]v0.NodeOutput {
	t.Helper()
	var out map[string]v0.NodeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("bad fixture: %v", err)
	}
	return out
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/out.mp4", "A")
	writeFile(t, root, "b/out.mp4", "B")
	writeFile(t, root, "top.gif", "T")

	tests := []struct {
		name     string
		outputs  string
		wantPath string
		wantData string
	}{
		{
			name:     "single descriptor",
			outputs:  `{"9": {"gifs": [{"subfolder": "a", "filename": "out.mp4"}]}}`,
			wantPath: "a/out.mp4",
			wantData: "A",
		},
		{
			name:     "last descriptor in a list wins",
			outputs:  `{"9": {"gifs": [{"subfolder": "a", "filename": "out.mp4"}, {"subfolder": "b", "filename": "out.mp4"}]}}`,
			wantPath: "b/out.mp4",
			wantData: "B",
		},
		{
			name:     "higher node id wins numerically",
			outputs:  `{"10": {"gifs": [{"subfolder": "b", "filename": "out.mp4"}]}, "9": {"gifs": [{"subfolder": "a", "filename": "out.mp4"}]}}`,
			wantPath: "b/out.mp4",
			wantData: "B",
		},
		{
			name:     "nodes without the field are skipped",
			outputs:  `{"3": {"images": [{"filename": "x.png"}]}, "4": {"gifs": [{"subfolder": "", "filename": "top.gif"}]}}`,
			wantPath: "top.gif",
			wantData: "T",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(root, "gifs")
			a, err := r.Resolve(outputsFromJSON(t, tt.outputs))
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if want := filepath.Join(root, filepath.FromSlash(tt.wantPath)); a.Path != want {
				t.Errorf("Path = %s, expected %s", a.Path, want)
			}
			if string(a.Data) != tt.wantData {
				t.Errorf("Data = %q, expected %q", a.Data, tt.wantData)
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/dir/keep", "")

	tests := []struct {
		name     string
		outputs  string
		contains string
	}{
		{"no outputs", `{}`, "no gifs artifact"},
		{"field absent", `{"9": {"images": [{"filename": "x.png"}]}}`, "no gifs artifact"},
		{"empty filename", `{"9": {"gifs": [{"subfolder": "a", "filename": ""}]}}`, "no gifs artifact"},
		{"malformed list", `{"9": {"gifs": "out.mp4"}}`, "malformed gifs list"},
		{"missing file", `{"9": {"gifs": [{"subfolder": "a", "filename": "gone.mp4"}]}}`, "does not exist in the specified output folder"},
		{"directory instead of file", `{"9": {"gifs": [{"subfolder": "a", "filename": "dir"}]}}`, "does not exist"},
		{"escaping path", `{"9": {"gifs": [{"subfolder": "../..", "filename": "etc/passwd"}]}}`, "escapes output folder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(root, "gifs").Resolve(outputsFromJSON(t, tt.outputs))
			if !errors.IsCode(err, errors.CodeResolution) {
				t.Fatalf("expected resolution error, got %v", err)
			}
			if !strings.Contains(errors.Message(err), tt.contains) {
				t.Errorf("message %q does not contain %q", errors.Message(err), tt.contains)
			}
		})
	}
}

func TestSortedNodeIDs(t *testing.T) {
	outputs := map[string]v0.NodeOutput{
		"b": nil, "10": nil, "2": nil, "a": nil, "111": nil,
	}
	want := []string{"2", "10", "111", "a", "b"}
	if diff := cmp.Diff(want, sortedNodeIDs(outputs)); diff != "" {
		t.Errorf("sortedNodeIDs mismatch (-want +got):\n%s", diff)
	}
}
