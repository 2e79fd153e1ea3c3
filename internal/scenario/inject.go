package scenario

import "fmt"

// DefaultActionType is assumed when a trigger description does not name
// an action type.
const DefaultActionType = "can_communication_error"

// InsertFaultEvent returns a copy of base with one fault event spliced
// into the named actor's timeline immediately after the anchor event.
// Every later event number is incremented, every event_state reference to
// a shifted number is rewritten, and test_procedure_order is recomputed
// for the whole timeline. The input scenario is never modified.
func InsertFaultEvent(base *Scenario, actorName string, td TriggerDescription, anchorEventNumber int, delaySeconds float64) (*Scenario, error) {
	// All preconditions are checked against the input before any copy is
	// made, so a failed call leaves nothing half-built.
	if delaySeconds < 0 {
		return nil, &InvalidDelayError{Delay: delaySeconds}
	}
	if len(base.Story) == 0 {
		return nil, &MissingStoryError{}
	}
	timeline := base.Timeline(actorName)
	if timeline == nil {
		return nil, &ActorNotFoundError{Actor: actorName}
	}
	if len(timeline.Events) == 0 {
		return nil, &EmptyTimelineError{Actor: actorName}
	}
	anchorIndex := timeline.EventIndex(anchorEventNumber)
	if anchorIndex < 0 {
		return nil, &AnchorNotFoundError{Actor: actorName, EventNumber: anchorEventNumber}
	}

	out := base.Clone()
	tl := out.Timeline(actorName)

	fault := buildFaultEvent(td, anchorEventNumber, delaySeconds)

	// Splice after the anchor position.
	tl.Events = append(tl.Events, Event{})
	copy(tl.Events[anchorIndex+2:], tl.Events[anchorIndex+1:])
	tl.Events[anchorIndex+1] = fault

	// Renumber the tail in ascending position order.
	for i := anchorIndex + 2; i < len(tl.Events); i++ {
		tl.Events[i].Number++
	}

	// Rewrite references across the whole scenario. The threshold is the
	// first number that was pushed up, expressed in the old numbering
	// space, so this must run after the renumber above.
	rewriteEventReferences(out, anchorEventNumber+1)

	// Procedural order is a full recompute, never a patch.
	for i := range tl.Events {
		tl.Events[i].ProceduralOrder = i + 1
	}

	return out, nil
}

func buildFaultEvent(td TriggerDescription, anchorEventNumber int, delaySeconds float64) Event {
	actionType := td.ActionType
	if actionType == "" {
		actionType = DefaultActionType
	}

	return Event{
		Number: anchorEventNumber + 1,
		Times:  1,
		Action: Action{
			Type:   actionType,
			Params: shapeActionParams(td),
		},
		StartTrigger: &StartTrigger{
			ConditionGroups: []ConditionGroup{{
				Conditions: []Condition{{
					Kind: ConditionEventState,
					Params: []Param{
						{Rule: RuleEqualTo, Name: ParamEventNo, Value: anchorEventNumber, Unit: ""},
						{Rule: RuleEqualTo, Name: ParamState, Value: StateCompleted, Unit: ""},
					},
					Delay: delaySeconds,
				}},
			}},
		},
		Criteria: []Criterion{{TargetName: "-", Expressions: []any{}}},
		Remarks:  []string{fmt.Sprintf("fault trigger: %s", td.SignalName)},
		// Placeholder; the caller recomputes procedural order for the
		// whole timeline.
		ProceduralOrder: anchorEventNumber + 1,
	}
}

// rewriteEventReferences bumps every event_state event_no parameter whose
// stored integer is >= threshold. The sentinel 0 can never reach the
// threshold, so it is exempt by construction.
func rewriteEventReferences(s *Scenario, threshold int) {
	for ti := range s.Story {
		for ei := range s.Story[ti].Events {
			st := s.Story[ti].Events[ei].StartTrigger
			if st == nil {
				continue
			}
			for gi := range st.ConditionGroups {
				conds := st.ConditionGroups[gi].Conditions
				for ci := range conds {
					if conds[ci].Kind != ConditionEventState {
						continue
					}
					for pi := range conds[ci].Params {
						p := &conds[ci].Params[pi]
						if p.Name != ParamEventNo {
							continue
						}
						if n, ok := IntValue(p.Value); ok && n >= threshold {
							p.Value = n + 1
						}
					}
				}
			}
		}
	}
}
