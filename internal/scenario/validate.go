package scenario

import "fmt"

// ViolationKind distinguishes the two post-mutation checks.
type ViolationKind int

const (
	// ViolationContiguity: an event's number does not equal its 1-based
	// position in its timeline.
	ViolationContiguity ViolationKind = iota
	// ViolationDanglingReference: an event_state condition references an
	// event number that does not exist in the same timeline.
	ViolationDanglingReference
)

func (k ViolationKind) String() string {
	switch k {
	case ViolationContiguity:
		return "contiguity"
	case ViolationDanglingReference:
		return "dangling_reference"
	default:
		return fmt.Sprintf("violation(%d)", int(k))
	}
}

// Violation is a finding, not an error: the caller decides whether to
// log, abort, or proceed.
type Violation struct {
	Kind  ViolationKind
	Actor string
	// EventNumber is the offending event: the mispositioned event for
	// contiguity, the referring event for a dangling reference.
	EventNumber int
	// Expected is the position-derived number a contiguity check wanted.
	Expected int
	// Target is the referenced event number that does not exist.
	Target int
}

func (v Violation) String() string {
	switch v.Kind {
	case ViolationContiguity:
		return fmt.Sprintf("timeline %q: event number not contiguous: expected %d, got %d", v.Actor, v.Expected, v.EventNumber)
	case ViolationDanglingReference:
		return fmt.Sprintf("timeline %q: event %d references missing event %d", v.Actor, v.EventNumber, v.Target)
	default:
		return fmt.Sprintf("timeline %q: event %d: unknown violation", v.Actor, v.EventNumber)
	}
}

// Validate runs the post-mutation checks on every timeline and returns
// all findings. It never short-circuits and has no side effects; an empty
// result means the scenario is well-formed.
func Validate(s *Scenario) []Violation {
	var out []Violation
	for i := range s.Story {
		tl := &s.Story[i]
		out = append(out, checkContiguity(tl)...)
		out = append(out, checkReferences(tl)...)
	}
	return out
}

func checkContiguity(tl *ActorTimeline) []Violation {
	var out []Violation
	for i := range tl.Events {
		if tl.Events[i].Number != i+1 {
			out = append(out, Violation{
				Kind:        ViolationContiguity,
				Actor:       tl.ActorName,
				EventNumber: tl.Events[i].Number,
				Expected:    i + 1,
			})
		}
	}
	return out
}

func checkReferences(tl *ActorTimeline) []Violation {
	known := make(map[int]struct{}, len(tl.Events))
	for i := range tl.Events {
		known[tl.Events[i].Number] = struct{}{}
	}

	var out []Violation
	for i := range tl.Events {
		ev := &tl.Events[i]
		if ev.StartTrigger == nil {
			continue
		}
		for _, ref := range ReferencedEvents(ev.StartTrigger) {
			if ref == SentinelNoEvent {
				continue
			}
			if _, ok := known[ref]; !ok {
				out = append(out, Violation{
					Kind:        ViolationDanglingReference,
					Actor:       tl.ActorName,
					EventNumber: ev.Number,
					Target:      ref,
				})
			}
		}
	}
	return out
}

// ReferencedEvents collects the event numbers referenced by event_state
// conditions in a start trigger, in tree order.
func ReferencedEvents(st *StartTrigger) []int {
	var refs []int
	for _, g := range st.ConditionGroups {
		for _, c := range g.Conditions {
			if c.Kind != ConditionEventState {
				continue
			}
			for _, p := range c.Params {
				if p.Name != ParamEventNo {
					continue
				}
				if n, ok := IntValue(p.Value); ok {
					refs = append(refs, n)
				}
			}
		}
	}
	return refs
}
