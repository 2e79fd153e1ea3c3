// Package scenario holds the test-scenario data model, the fault-event
// mutator, and the post-mutation validator. The JSON field names are the
// stored document contract and must not change.
package scenario

import (
	"encoding/json"
	"fmt"
)

// Condition kinds and well-known parameter names used in start triggers.
const (
	ConditionEventState = "event_state"

	ParamEventNo = "event_no"
	ParamState   = "state"

	RuleEqualTo = "equalTo"

	// StateCompleted is the lifecycle state a referenced event must reach
	// before a dependent event may start.
	StateCompleted = "completeState"

	// SentinelNoEvent marks an event_no parameter as purely time-based,
	// carrying no dependency on another event.
	SentinelNoEvent = 0
)

// Scenario is the root document: a labelled set of actor timelines.
type Scenario struct {
	Summary   string          `json:"scenario_summary"`
	Variation string          `json:"variation,omitempty"`
	Story     []ActorTimeline `json:"story"`
}

// ActorTimeline is the ordered event sequence belonging to one actor.
// Event numbers within a timeline form a contiguous ascending run from 1.
type ActorTimeline struct {
	ActorName string  `json:"actor_name"`
	Events    []Event `json:"events"`
}

// Event is the atomic unit of a timeline. Number is the identity other
// events reference; ProceduralOrder is cosmetic and equals the event's
// 1-based position after every mutation.
type Event struct {
	Number          int           `json:"no"`
	Times           int           `json:"times,omitempty"`
	Action          Action        `json:"action"`
	StartTrigger    *StartTrigger `json:"start_trigger,omitempty"`
	Criteria        []Criterion   `json:"criteria,omitempty"`
	Remarks         []string      `json:"remarks,omitempty"`
	ProceduralOrder int           `json:"test_procedure_order"`
}

// Action is a tagged value: a type string plus an ordered parameter list
// whose shape depends on the type.
type Action struct {
	Type   string  `json:"type"`
	Params []Param `json:"params,omitempty"`
}

// Param is a named scalar. Value is heterogenous on the wire (event_no is
// an integer, state and most action values are strings) and decodes as
// float64 for JSON numbers; use IntValue when an integer is expected.
type Param struct {
	Rule  string `json:"rule,omitempty"`
	Name  string `json:"name"`
	Value any    `json:"value"`
	Unit  string `json:"unit"`
}

// StartTrigger is a boolean expression tree: condition groups are OR'd,
// conditions within a group are AND'd.
type StartTrigger struct {
	ConditionGroups []ConditionGroup `json:"condition_groups"`
}

type ConditionGroup struct {
	Conditions []Condition `json:"conditions"`
}

// Condition gates an event start. Only the event_state kind carries a
// cross-reference to another event in the same timeline. Delay is seconds.
type Condition struct {
	Kind   string  `json:"type"`
	Params []Param `json:"params,omitempty"`
	Delay  float64 `json:"delay,omitempty"`
}

// Criterion is a pass/fail expression block attached to an event. The
// mutator only shapes its envelope; expressions are carried opaquely.
type Criterion struct {
	TargetName  string `json:"target_name"`
	Expressions []any  `json:"expressions"`
}

// TriggerDescription is the external record describing one abnormal
// signal/value/action to inject. It is read-only input to the mutator.
type TriggerDescription struct {
	SignalName string
	Value      any
	ActionType string
	Target     string
	Remarks    string
}

// Decode parses a stored scenario document.
func Decode(raw []byte) (*Scenario, error) {
	var s Scenario
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	return &s, nil
}

// Encode serializes the scenario in the stored document layout.
func (s *Scenario) Encode() ([]byte, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode scenario: %w", err)
	}
	return b, nil
}

// Timeline returns the timeline for the named actor, or nil.
func (s *Scenario) Timeline(actorName string) *ActorTimeline {
	for i := range s.Story {
		if s.Story[i].ActorName == actorName {
			return &s.Story[i]
		}
	}
	return nil
}

// EventIndex returns the position of the event carrying number, or -1.
func (t *ActorTimeline) EventIndex(number int) int {
	for i := range t.Events {
		if t.Events[i].Number == number {
			return i
		}
	}
	return -1
}

// IntValue coerces a wire scalar to an int. JSON decoding yields float64
// for numbers, so both forms are accepted; fractional values are rejected.
func IntValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}
