package progress

import "fmt"

var allowedNames = map[string]struct{}{
	// generation run
	"generation.started":   {},
	"generation.completed": {},

	// per-combination
	"scenario.generated": {},
	"scenario.failed":    {},
	"scenario.validated": {},

	// trigger parsing
	"trigger.parsed":  {},
	"trigger.invalid": {},

	// outputs
	"report.written": {},
	"run.recorded":   {},

	// requirements fetch
	"fetch.progress": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

func ValidateName(name string) error {
	if _, ok := allowedNames[name]; !ok {
		return fmt.Errorf("unknown progress event: %s", name)
	}
	return nil
}
