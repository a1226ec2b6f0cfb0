// Package linking implements the multi-provider account-linking orchestration
// flow: step state machine, provider SDK loading, authorization handshakes,
// preview/selection and the final commit + sync drive.
package linking

import (
	"fmt"
)

// ProviderFamily selects which linking flow variant a session runs
type ProviderFamily string

const (
	FamilyBank    ProviderFamily = "bank"
	FamilyService ProviderFamily = "service"
)

// Valid reports whether the family is one of the two known variants
func (f ProviderFamily) Valid() bool {
	return f == FamilyBank || f == FamilyService
}

// Step is a named position in a linking flow
type Step string

const (
	StepIntro     Step = "intro"
	StepConnect   Step = "connect"
	StepAuthorize Step = "authorize"
	StepSelect    Step = "select"
	StepSync      Step = "sync"
	StepComplete  Step = "complete"
)

var (
	bankSteps    = []Step{StepIntro, StepConnect, StepSelect, StepSync, StepComplete}
	serviceSteps = []Step{StepIntro, StepAuthorize, StepSelect, StepSync, StepComplete}
)

// Flow is the step state machine for one linking session. The index only
// moves forward except for explicit failure-recovery regressions; it is
// mutated synchronously by the orchestrator's own handlers.
type Flow struct {
	family ProviderFamily
	steps  []Step
	index  int
}

// NewFlow creates a flow positioned at the first step of the family's sequence
func NewFlow(family ProviderFamily) (*Flow, error) {
	switch family {
	case FamilyBank:
		return &Flow{family: family, steps: bankSteps}, nil
	case FamilyService:
		return &Flow{family: family, steps: serviceSteps}, nil
	default:
		return nil, fmt.Errorf("unknown provider family %q", family)
	}
}

// Steps returns the ordered step sequence for this flow
func (f *Flow) Steps() []Step {
	out := make([]Step, len(f.steps))
	copy(out, f.steps)
	return out
}

// Index returns the current 0-based step index
func (f *Flow) Index() int {
	return f.index
}

// Current returns the current step
func (f *Flow) Current() Step {
	return f.steps[f.index]
}

// connectStep is the family's interactive connect/authorize step
func (f *Flow) connectStep() Step {
	if f.family == FamilyService {
		return StepAuthorize
	}
	return StepConnect
}

// Advance moves one step forward, clamped to the terminal step
func (f *Flow) Advance() {
	if f.index < len(f.steps)-1 {
		f.index++
	}
}

// indexOf returns the position of target in the sequence, or -1
func (f *Flow) indexOf(target Step) int {
	for i, s := range f.steps {
		if s == target {
			return i
		}
	}
	return -1
}

// Regress moves back to a named earlier step. It is a failure-recovery action
// only: the target must exist in this flow's sequence and must not be ahead
// of the current step.
func (f *Flow) Regress(target Step) error {
	i := f.indexOf(target)
	if i < 0 {
		return fmt.Errorf("step %q is not part of the %s flow", target, f.family)
	}
	if i > f.index {
		return fmt.Errorf("cannot regress forward to step %q", target)
	}
	f.index = i
	return nil
}

// JumpTo positions the flow at an arbitrary step. Used once, on mount, for
// the already-connected shortcut.
func (f *Flow) JumpTo(target Step) error {
	i := f.indexOf(target)
	if i < 0 {
		return fmt.Errorf("step %q is not part of the %s flow", target, f.family)
	}
	f.index = i
	return nil
}

// Prev moves one step back in response to explicit user navigation. Only the
// connect/authorize and select steps allow it; sync is non-interruptible and
// complete is terminal.
func (f *Flow) Prev() error {
	switch f.Current() {
	case f.connectStep(), StepSelect:
		f.index--
		return nil
	default:
		return fmt.Errorf("cannot navigate back from step %q", f.Current())
	}
}
