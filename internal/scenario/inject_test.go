package scenario

import (
	"encoding/json"
	"errors"
	"testing"
)

func eventStateTrigger(eventNo int) *StartTrigger {
	return &StartTrigger{
		ConditionGroups: []ConditionGroup{{
			Conditions: []Condition{{
				Kind: ConditionEventState,
				Params: []Param{
					{Rule: RuleEqualTo, Name: ParamEventNo, Value: eventNo, Unit: ""},
					{Rule: RuleEqualTo, Name: ParamState, Value: StateCompleted, Unit: ""},
				},
			}},
		}},
	}
}

func sampleScenario() *Scenario {
	return &Scenario{
		Summary: "base scenario",
		Story: []ActorTimeline{{
			ActorName: "ego",
			Events: []Event{
				{Number: 1, Action: Action{Type: "engine_startup_operation"}, ProceduralOrder: 1},
				{Number: 2, Action: Action{Type: "shift"}, StartTrigger: eventStateTrigger(1), ProceduralOrder: 2},
				{Number: 3, Action: Action{Type: "appcssw"}, StartTrigger: eventStateTrigger(2), ProceduralOrder: 3},
			},
		}},
	}
}

func brakeErrorTrigger() TriggerDescription {
	return TriggerDescription{
		SignalName: "CAN_BRAKE_ERROR",
		Value:      1,
		ActionType: "can_communication_error",
	}
}

func eventNoParam(t *testing.T, ev *Event) int {
	t.Helper()
	if ev.StartTrigger == nil {
		t.Fatalf("event %d has no start trigger", ev.Number)
	}
	refs := ReferencedEvents(ev.StartTrigger)
	if len(refs) != 1 {
		t.Fatalf("event %d: want 1 event reference, got %d", ev.Number, len(refs))
	}
	return refs[0]
}

func TestInsertFaultEvent_SpliceRenumberRewrite(t *testing.T) {
	base := sampleScenario()

	out, err := InsertFaultEvent(base, "ego", brakeErrorTrigger(), 2, 3.0)
	if err != nil {
		t.Fatalf("InsertFaultEvent: %v", err)
	}

	events := out.Timeline("ego").Events
	if len(events) != 4 {
		t.Fatalf("want 4 events, got %d", len(events))
	}

	for i, ev := range events {
		if ev.Number != i+1 {
			t.Errorf("event at position %d: want number %d, got %d", i, i+1, ev.Number)
		}
		if ev.ProceduralOrder != i+1 {
			t.Errorf("event %d: want test_procedure_order %d, got %d", ev.Number, i+1, ev.ProceduralOrder)
		}
	}

	fault := &events[2]
	if fault.Action.Type != "can_communication_error" {
		t.Errorf("fault action type: got %q", fault.Action.Type)
	}
	if got := eventNoParam(t, fault); got != 2 {
		t.Errorf("fault trigger event_no: want 2, got %d", got)
	}
	st := fault.StartTrigger.ConditionGroups[0].Conditions[0]
	if st.Delay != 3.0 {
		t.Errorf("fault trigger delay: want 3.0, got %g", st.Delay)
	}

	// Old event 3 is now number 4 and its reference moved from 2 to 3.
	shifted := &events[3]
	if shifted.Action.Type != "appcssw" {
		t.Errorf("shifted event action: got %q", shifted.Action.Type)
	}
	if shifted.Number != 4 {
		t.Errorf("shifted event number: want 4, got %d", shifted.Number)
	}
	if got := eventNoParam(t, shifted); got != 3 {
		t.Errorf("shifted event trigger event_no: want 3, got %d", got)
	}

	// Event 2's reference to event 1 is below the threshold and untouched.
	if got := eventNoParam(t, &events[1]); got != 1 {
		t.Errorf("event 2 trigger event_no: want 1, got %d", got)
	}
}

func TestInsertFaultEvent_InputUnchanged(t *testing.T) {
	base := sampleScenario()
	before, err := json.Marshal(base)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := InsertFaultEvent(base, "ego", brakeErrorTrigger(), 2, 3.0); err != nil {
		t.Fatalf("InsertFaultEvent: %v", err)
	}

	after, err := json.Marshal(base)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Errorf("input scenario changed:\nbefore: %s\nafter:  %s", before, after)
	}
}

func TestInsertFaultEvent_MonotonicGrowth(t *testing.T) {
	base := sampleScenario()
	base.Story = append(base.Story, ActorTimeline{
		ActorName: "other_vehicle",
		Events:    []Event{{Number: 1, Action: Action{Type: "shift"}, ProceduralOrder: 1}},
	})

	out, err := InsertFaultEvent(base, "ego", brakeErrorTrigger(), 1, 0)
	if err != nil {
		t.Fatalf("InsertFaultEvent: %v", err)
	}

	if got := len(out.Timeline("ego").Events); got != len(base.Timeline("ego").Events)+1 {
		t.Errorf("mutated timeline: want %d events, got %d", len(base.Timeline("ego").Events)+1, got)
	}
	if got := len(out.Timeline("other_vehicle").Events); got != 1 {
		t.Errorf("untouched timeline grew: got %d events", got)
	}
}

func TestInsertFaultEvent_RepeatedInsertionStaysValid(t *testing.T) {
	base := sampleScenario()

	first, err := InsertFaultEvent(base, "ego", brakeErrorTrigger(), 2, 1.0)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	second, err := InsertFaultEvent(first, "ego", brakeErrorTrigger(), 2, 1.0)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}

	if v := Validate(first); len(v) != 0 {
		t.Errorf("first result has violations: %v", v)
	}
	if v := Validate(second); len(v) != 0 {
		t.Errorf("second result has violations: %v", v)
	}
	if got := len(second.Timeline("ego").Events); got != 5 {
		t.Errorf("second result: want 5 events, got %d", got)
	}
	// The second anchor=2 resolves against the already-shifted numbering,
	// so the two results are numerically different by design.
	if second.Timeline("ego").Events[2].Action.Type != "can_communication_error" ||
		second.Timeline("ego").Events[3].Action.Type != "can_communication_error" {
		t.Errorf("expected two adjacent fault events, got %v", actionTypes(second.Timeline("ego").Events))
	}
}

func actionTypes(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Action.Type
	}
	return out
}

func TestInsertFaultEvent_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Scenario)
		actor  string
		anchor int
		delay  float64
		want   any
	}{
		{
			name:   "anchor not found",
			actor:  "ego",
			anchor: 99,
			want:   &AnchorNotFoundError{},
		},
		{
			name:   "actor not found",
			actor:  "ghost",
			anchor: 1,
			want:   &ActorNotFoundError{},
		},
		{
			name:   "negative delay",
			actor:  "ego",
			anchor: 1,
			delay:  -0.5,
			want:   &InvalidDelayError{},
		},
		{
			name:   "empty timeline",
			mutate: func(s *Scenario) { s.Story[0].Events = nil },
			actor:  "ego",
			anchor: 1,
			want:   &EmptyTimelineError{},
		},
		{
			name:   "missing story",
			mutate: func(s *Scenario) { s.Story = nil },
			actor:  "ego",
			anchor: 1,
			want:   &MissingStoryError{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			base := sampleScenario()
			if tc.mutate != nil {
				tc.mutate(base)
			}
			before, _ := json.Marshal(base)

			out, err := InsertFaultEvent(base, tc.actor, brakeErrorTrigger(), tc.anchor, tc.delay)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if out != nil {
				t.Errorf("expected nil scenario on error, got %+v", out)
			}

			matched := false
			switch tc.want.(type) {
			case *AnchorNotFoundError:
				var target *AnchorNotFoundError
				if errors.As(err, &target) {
					matched = true
					if target.EventNumber != tc.anchor {
						t.Errorf("error carries event %d, want %d", target.EventNumber, tc.anchor)
					}
				}
			case *ActorNotFoundError:
				var target *ActorNotFoundError
				if errors.As(err, &target) {
					matched = true
					if target.Actor != tc.actor {
						t.Errorf("error carries actor %q, want %q", target.Actor, tc.actor)
					}
				}
			case *InvalidDelayError:
				var target *InvalidDelayError
				matched = errors.As(err, &target)
			case *EmptyTimelineError:
				var target *EmptyTimelineError
				matched = errors.As(err, &target)
			case *MissingStoryError:
				var target *MissingStoryError
				matched = errors.As(err, &target)
			}
			if !matched {
				t.Errorf("wrong error type: %T (%v)", err, err)
			}

			after, _ := json.Marshal(base)
			if string(before) != string(after) {
				t.Errorf("input scenario changed on failed call")
			}
		})
	}
}

func TestInsertFaultEvent_RewritesAllTimelines(t *testing.T) {
	base := sampleScenario()
	base.Story = append(base.Story, ActorTimeline{
		ActorName: "other_vehicle",
		Events: []Event{
			{Number: 1, Action: Action{Type: "shift"}, ProceduralOrder: 1},
			{Number: 2, Action: Action{Type: "shift"}, StartTrigger: eventStateTrigger(3), ProceduralOrder: 2},
		},
	})

	out, err := InsertFaultEvent(base, "ego", brakeErrorTrigger(), 2, 0)
	if err != nil {
		t.Fatalf("InsertFaultEvent: %v", err)
	}

	// References in other timelines follow the shift too.
	other := out.Timeline("other_vehicle")
	if got := eventNoParam(t, &other.Events[1]); got != 4 {
		t.Errorf("cross-timeline reference: want 4, got %d", got)
	}
}

func TestInsertFaultEvent_Float64ReferenceValues(t *testing.T) {
	// Scenarios decoded from JSON carry event_no as float64.
	raw := []byte(`{
		"scenario_summary": "decoded",
		"story": [{
			"actor_name": "ego",
			"events": [
				{"no": 1, "action": {"type": "engine_startup_operation"}, "test_procedure_order": 1},
				{"no": 2, "action": {"type": "appcssw"},
					"start_trigger": {"condition_groups": [{"conditions": [{
						"type": "event_state",
						"params": [
							{"rule": "equalTo", "name": "event_no", "value": 1, "unit": ""},
							{"rule": "equalTo", "name": "state", "value": "completeState", "unit": ""}
						],
						"delay": 1.5
					}]}]},
					"test_procedure_order": 2}
			]
		}]
	}`)
	base, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	out, err := InsertFaultEvent(base, "ego", brakeErrorTrigger(), 1, 0)
	if err != nil {
		t.Fatalf("InsertFaultEvent: %v", err)
	}

	events := out.Timeline("ego").Events
	if got := eventNoParam(t, &events[2]); got != 2 {
		t.Errorf("decoded reference not rewritten: want 2, got %d", got)
	}
	if v := Validate(out); len(v) != 0 {
		t.Errorf("violations on decoded scenario: %v", v)
	}
}
