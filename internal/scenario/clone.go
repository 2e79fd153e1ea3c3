package scenario

// Clone returns a fully independent copy of the scenario: no nested slice
// or map is shared with the receiver. The mutator clones before touching
// anything, so a loaded base scenario can be shared read-only across
// concurrent injections.
func (s *Scenario) Clone() *Scenario {
	out := &Scenario{
		Summary:   s.Summary,
		Variation: s.Variation,
	}
	if s.Story != nil {
		out.Story = make([]ActorTimeline, len(s.Story))
		for i := range s.Story {
			out.Story[i] = s.Story[i].clone()
		}
	}
	return out
}

func (t ActorTimeline) clone() ActorTimeline {
	out := ActorTimeline{ActorName: t.ActorName}
	if t.Events != nil {
		out.Events = make([]Event, len(t.Events))
		for i := range t.Events {
			out.Events[i] = t.Events[i].clone()
		}
	}
	return out
}

func (e Event) clone() Event {
	out := e
	out.Action = e.Action.clone()
	if e.StartTrigger != nil {
		st := e.StartTrigger.clone()
		out.StartTrigger = &st
	}
	if e.Criteria != nil {
		out.Criteria = make([]Criterion, len(e.Criteria))
		for i, c := range e.Criteria {
			out.Criteria[i] = Criterion{
				TargetName:  c.TargetName,
				Expressions: cloneAnySlice(c.Expressions),
			}
		}
	}
	if e.Remarks != nil {
		out.Remarks = append([]string(nil), e.Remarks...)
	}
	return out
}

func (a Action) clone() Action {
	out := Action{Type: a.Type}
	if a.Params != nil {
		out.Params = cloneParams(a.Params)
	}
	return out
}

func (st StartTrigger) clone() StartTrigger {
	out := StartTrigger{}
	if st.ConditionGroups != nil {
		out.ConditionGroups = make([]ConditionGroup, len(st.ConditionGroups))
		for i, g := range st.ConditionGroups {
			ng := ConditionGroup{}
			if g.Conditions != nil {
				ng.Conditions = make([]Condition, len(g.Conditions))
				for j, c := range g.Conditions {
					nc := Condition{Kind: c.Kind, Delay: c.Delay}
					if c.Params != nil {
						nc.Params = cloneParams(c.Params)
					}
					ng.Conditions[j] = nc
				}
			}
			out.ConditionGroups[i] = ng
		}
	}
	return out
}

func cloneParams(params []Param) []Param {
	out := make([]Param, len(params))
	for i, p := range params {
		out[i] = Param{Rule: p.Rule, Name: p.Name, Value: cloneAny(p.Value), Unit: p.Unit}
	}
	return out
}

// cloneAny deep-copies the generic JSON shapes that can appear in opaque
// fields (criteria expressions, parameter values). Scalars are immutable
// and returned as-is.
func cloneAny(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = cloneAny(e)
		}
		return out
	case []any:
		return cloneAnySlice(val)
	default:
		return v
	}
}

func cloneAnySlice(vs []any) []any {
	if vs == nil {
		return nil
	}
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = cloneAny(v)
	}
	return out
}
