package store

import (
	"encoding/json"
	"fmt"

	"github.com/jesseboth/autocross/models"
)

// Fields the Run struct models directly. Anything else in an incoming
// payload survives in the extension map.
var knownRunFields = map[string]bool{
	"runId":     true,
	"lapTime":   true,
	"telemetry": true,
	"cones":     true,
	"isValid":   true,
	"carId":     true,
	"timestamp": true,
	"name":      true,
	"imported":  true,
	"extra":     true,
}

// DecodeRun parses a raw run payload. Recognized fields land on the Run;
// unrecognized ones are kept verbatim in Extra so newer recorder versions
// round-trip without a schema change here.
func DecodeRun(raw json.RawMessage) (*models.Run, error) {
	run := new(models.Run)
	if err := json.Unmarshal(raw, run); err != nil {
		return nil, fmt.Errorf("decoding run payload: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding run payload: %w", err)
	}
	for k := range fields {
		if knownRunFields[k] {
			delete(fields, k)
		}
	}
	if len(fields) > 0 {
		run.Extra = fields
	}
	return run, nil
}
