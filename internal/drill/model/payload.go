package model

import (
	"encoding/json"
	"fmt"
)

// Stage payloads are stored opaquely on the Attempt; these views decode the
// fields each handler cares about. Unknown fields are preserved in the raw
// payload, never dropped.

// ClarifyPayload carries the three free-text clarify fields.
type ClarifyPayload struct {
	InputsOutputs string `json:"inputs_outputs"`
	Constraints   string `json:"constraints"`
	Examples      string `json:"examples"`
}

// TextPayload carries a single free-text body (approach, pseudocode).
type TextPayload struct {
	Text string `json:"text"`
}

// CodePayload carries submitted source for the code stages.
type CodePayload struct {
	Language string `json:"language,omitempty"` // defaults to the session language
	Code     string `json:"code"`
}

// OptimizePayload extends CodePayload with the learner's complexity and
// trade-off analysis.
type OptimizePayload struct {
	Language        string `json:"language,omitempty"`
	Code            string `json:"code"`
	TimeComplexity  string `json:"time_complexity"`
	SpaceComplexity string `json:"space_complexity"`
	Tradeoffs       string `json:"tradeoffs"`
}

// PayloadMeta carries cross-stage metadata embedded in any payload.
type PayloadMeta struct {
	ElapsedMs int64 `json:"elapsed_ms,omitempty"`
}

// DecodePayload unmarshals a raw stage payload into the given view.
func DecodePayload(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("payload is empty")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload failed: %w", err)
	}
	return nil
}
