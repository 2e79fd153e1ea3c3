package scenario

import (
	"encoding/json"
	"testing"
)

func TestClone_Independent(t *testing.T) {
	base := sampleScenario()
	base.Story[0].Events[0].Criteria = []Criterion{{
		TargetName:  "speed",
		Expressions: []any{map[string]any{"op": "lessThan", "value": 10.0}},
	}}
	before, _ := json.Marshal(base)

	c := base.Clone()
	c.Summary = "changed"
	c.Story[0].ActorName = "changed"
	c.Story[0].Events[0].Number = 99
	c.Story[0].Events[0].Remarks = append(c.Story[0].Events[0].Remarks, "new remark")
	c.Story[0].Events[0].Criteria[0].Expressions[0].(map[string]any)["op"] = "greaterThan"
	c.Story[0].Events[1].StartTrigger.ConditionGroups[0].Conditions[0].Params[0].Value = 42
	c.Story[0].Events[1].Action.Type = "changed"

	after, _ := json.Marshal(base)
	if string(before) != string(after) {
		t.Errorf("mutating clone changed original:\nbefore: %s\nafter:  %s", before, after)
	}
}

func TestClone_RoundTripsWireForm(t *testing.T) {
	base := sampleScenario()
	base.Variation = "baseline"

	a, err := base.Encode()
	if err != nil {
		t.Fatal(err)
	}
	b, err := base.Clone().Encode()
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Errorf("clone encodes differently:\noriginal: %s\nclone:    %s", a, b)
	}
}
