package scenario

import "fmt"

// Mutator failures are typed so the batch orchestrator can record which
// combination failed and why, then continue with the rest. Each value
// carries the offending identifier.

// ActorNotFoundError reports that no timeline exists for the actor.
type ActorNotFoundError struct {
	Actor string
}

func (e *ActorNotFoundError) Error() string {
	return fmt.Sprintf("actor %q not found in story", e.Actor)
}

// AnchorNotFoundError reports that the anchor event number does not exist
// in the selected timeline.
type AnchorNotFoundError struct {
	Actor       string
	EventNumber int
}

func (e *AnchorNotFoundError) Error() string {
	return fmt.Sprintf("anchor event %d not found in timeline %q", e.EventNumber, e.Actor)
}

// EmptyTimelineError reports a timeline with no events.
type EmptyTimelineError struct {
	Actor string
}

func (e *EmptyTimelineError) Error() string {
	return fmt.Sprintf("timeline %q has no events", e.Actor)
}

// MissingStoryError reports a scenario without a story section.
type MissingStoryError struct{}

func (e *MissingStoryError) Error() string {
	return "scenario has no story section"
}

// InvalidDelayError reports a negative trigger delay.
type InvalidDelayError struct {
	Delay float64
}

func (e *InvalidDelayError) Error() string {
	return fmt.Sprintf("invalid trigger delay %g: must be >= 0", e.Delay)
}
