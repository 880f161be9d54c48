package v0

import "encoding/json"

// PromptRequest is the body of POST /prompt. The engine requires the
// pipeline under the single top-level "prompt" key.
type PromptRequest struct {
	Prompt any `json:"prompt"`
}

// PromptResponse is the part of the POST /prompt answer the bridge reads.
type PromptResponse struct {
	PromptID   string         `json:"prompt_id"`
	Number     int            `json:"number,omitempty"`
	NodeErrors map[string]any `json:"node_errors,omitempty"`
}

// History is the body of GET /history/{prompt_id}: prompt id -> entry.
type History map[string]HistoryEntry

// HistoryEntry is one prompt's record. Outputs stay empty while the
// engine is still working on it.
type HistoryEntry struct {
	Outputs map[string]NodeOutput `json:"outputs"`
	Status  *HistoryStatus        `json:"status,omitempty"`
}

type HistoryStatus struct {
	StatusStr string `json:"status_str"`
	Completed bool   `json:"completed"`
}

// NodeOutput keeps every field raw; only the artifact list field is decoded.
type NodeOutput map[string]json.RawMessage

// ArtifactRef locates a generated file inside the engine output area.
type ArtifactRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type,omitempty"`
	Format    string `json:"format,omitempty"`
}

// Complete reports whether the entry exposes a non-empty outputs section.
func (e HistoryEntry) Complete() bool {
	return len(e.Outputs) > 0
}

// Artifacts decodes field as a list of artifact references. A missing
// field yields nil; a field of another shape is an error.
func (o NodeOutput) Artifacts(field string) ([]ArtifactRef, error) {
	raw, ok := o[field]
	if !ok {
		return nil, nil
	}
	var refs []ArtifactRef
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}
