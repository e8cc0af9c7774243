package planner

import "fmt"

// Stage is a step in building a plan.
type Stage uint8

const (
	StageQuoting Stage = iota
	StageBoundsComputed
	StageAssetsSelected
	StageCalldataBuilt
	StageReady
)

func (s Stage) String() string {
	switch s {
	case StageQuoting:
		return "quoting"
	case StageBoundsComputed:
		return "bounds_computed"
	case StageAssetsSelected:
		return "assets_selected"
	case StageCalldataBuilt:
		return "calldata_built"
	case StageReady:
		return "ready"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// StageError reports the stage a plan failed in. Unwrap returns the
// component's error unchanged.
type StageError struct {
	Action Action
	Stage  Stage
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s plan failed at %s: %v", e.Action, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
