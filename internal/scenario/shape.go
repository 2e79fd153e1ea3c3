package scenario

import (
	"fmt"
	"strings"
)

// Action parameter layouts vary by action type. Each shaper owns one
// layout; the first matching entry wins, with a single-value layout as
// the fallback. New action types extend the table without touching the
// splice or renumber logic.
type paramShaper struct {
	match func(actionType string) bool
	build func(td TriggerDescription) []Param
}

var paramShapers = []paramShaper{
	{
		// Communication-error variants carry the raw value plus an
		// optional bus/node target.
		match: func(t string) bool { return strings.Contains(t, "communication_error") },
		build: func(td TriggerDescription) []Param {
			params := []Param{valueParam(td, "")}
			if td.Target != "" {
				params = append(params, Param{Name: "target", Value: td.Target, Unit: ""})
			}
			return params
		},
	},
	{
		// Brake force is expressed in percent.
		match: func(t string) bool { return t == "brake" },
		build: func(td TriggerDescription) []Param {
			return []Param{valueParam(td, "%")}
		},
	},
	{
		// Steering takes a target angle and a fixed slew time.
		match: func(t string) bool { return t == "steering" },
		build: func(td TriggerDescription) []Param {
			angle := td.Value
			if angle == nil {
				angle = 45
			}
			return []Param{
				{Name: "target_rudder_angle", Value: angle, Unit: "deg"},
				{Name: "steering_time", Value: 1, Unit: "s"},
			}
		},
	},
}

func shapeActionParams(td TriggerDescription) []Param {
	for _, s := range paramShapers {
		if s.match(td.ActionType) {
			return s.build(td)
		}
	}
	return []Param{valueParam(td, "")}
}

// valueParam builds the common single "value" parameter. The stored form
// is a string; a missing value defaults to "1".
func valueParam(td TriggerDescription, unit string) Param {
	v := "1"
	if td.Value != nil {
		v = fmt.Sprint(td.Value)
	}
	return Param{Name: "value", Value: v, Unit: unit}
}
