// Package trigger holds abnormal-trigger descriptions and the workbook
// parser that extracts them from the requirements spreadsheet.
package trigger

import (
	"fmt"
	"strings"

	"github.com/stargate-qa/faultgen/internal/scenario"
)

// Description is one abnormal trigger requirement: a signal, the value to
// force, and the action type that injects it.
type Description struct {
	JamaID          string
	RequirementName string
	SignalName      string
	Value           any
	ActionType      string
	Target          string
	Remarks         string
}

// Fault converts the description to the mutator's input record.
func (d Description) Fault() scenario.TriggerDescription {
	return scenario.TriggerDescription{
		SignalName: d.SignalName,
		Value:      d.Value,
		ActionType: d.ActionType,
		Target:     d.Target,
		Remarks:    d.Remarks,
	}
}

// knownActionTypes are the action types the injection engine shapes
// parameters for. Unknown types still generate (with the default layout);
// validation only reports hard omissions.
var knownActionTypes = []string{
	"can_communication_error",
	"brake",
	"accelerator",
	"steering",
	"sensor_fault",
	"powertrain_fault",
	"environmental_fault",
	"shift",
	"appcssw",
	"sw_turn_signal",
	"engine_startup_operation",
	"MM_display_touched_coord",
}

// Validate reports missing required fields. An action type that matches
// no known type, not even by substring, is tolerated but unusual; the
// caller may surface it separately via KnownActionType.
func (d Description) Validate() []string {
	var problems []string
	id := d.JamaID
	if id == "" {
		id = "UNKNOWN"
	}
	if d.SignalName == "" {
		problems = append(problems, fmt.Sprintf("requirement %s: signal name is not set", id))
	}
	if d.Value == nil || d.Value == "" {
		problems = append(problems, fmt.Sprintf("requirement %s: value is not set", id))
	}
	if d.ActionType == "" {
		problems = append(problems, fmt.Sprintf("requirement %s: action type is not set", id))
	}
	return problems
}

// KnownActionType reports whether the action type matches a known type,
// exactly or by substring (e.g. can_brake_communication_error).
func (d Description) KnownActionType() bool {
	if d.ActionType == "" {
		return false
	}
	for _, known := range knownActionTypes {
		if d.ActionType == known || strings.Contains(d.ActionType, known) {
			return true
		}
	}
	return false
}
