package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cuemby/hostbroker/pkg/boundary"
)

// envelopeInput is the scheduler-facing JSON input shape (spec.md §6): a
// single struct covers every operation's input since each subcommand only
// reads the fields it needs and ignores the rest.
type envelopeInput struct {
	Template *struct {
		TemplateID   string `json:"templateId"`
		MachineCount int    `json:"machineCount"`
	} `json:"template,omitempty"`
	Requests []struct {
		RequestID string `json:"requestId"`
	} `json:"requests,omitempty"`
	Machines []struct {
		MachineID string `json:"machineId"`
	} `json:"machines,omitempty"`
	All bool `json:"all,omitempty"`
}

func readEnvelope(r io.Reader) (envelopeInput, error) {
	var in envelopeInput
	dec := json.NewDecoder(r)
	if err := dec.Decode(&in); err != nil {
		if err == io.EOF {
			return in, nil
		}
		return in, fmt.Errorf("decode input envelope: %w", err)
	}
	return in, nil
}

// writeSuccess prints out (a success payload) as JSON, or — behind
// --human — the matching boundary.Human* plain-text rendering.
func writeSuccess(out any, human string) {
	if human != "" {
		fmt.Fprint(os.Stdout, human)
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

// writeFailure prints the failure envelope as JSON and exits non-zero,
// matching a script-mode caller's expectation that a failed operation is
// distinguishable from a successful one by exit code, not only payload.
func writeFailure(failure *boundary.FailureEnvelope) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(failure)
	os.Exit(1)
}
