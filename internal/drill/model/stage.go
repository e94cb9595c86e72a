// Package model defines the core data types of the drill session engine.
package model

import "fmt"

// Stage is one step in the fixed coaching sequence. The zero-indexed order
// below is the only legal progression; sessions advance one stage at a time
// and never regress.
type Stage string

const (
	StageClarify    Stage = "clarify"
	StageApproach   Stage = "approach"
	StagePseudocode Stage = "pseudocode"
	StageBruteForce Stage = "brute_force"
	StageOptimize   Stage = "optimize"
	StageDone       Stage = "done"
)

// stageOrder is the closed, total order over stages.
var stageOrder = [...]Stage{
	StageClarify,
	StageApproach,
	StagePseudocode,
	StageBruteForce,
	StageOptimize,
	StageDone,
}

// Stages returns the full stage sequence in order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder[:])
	return out
}

// ParseStage converts a raw string to a Stage.
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown stage %q", raw)
	}
	return s, nil
}

// Valid reports whether s is one of the six known stages.
func (s Stage) Valid() bool {
	return s.index() >= 0
}

// Index returns the position of s in the stage order, or -1 when unknown.
func (s Stage) Index() int {
	return s.index()
}

func (s Stage) index() int {
	for i, stage := range stageOrder {
		if stage == s {
			return i
		}
	}
	return -1
}

// Next returns the stage that follows s. Done is terminal: Next(Done) == Done.
func (s Stage) Next() Stage {
	idx := s.index()
	if idx < 0 || idx >= len(stageOrder)-1 {
		return StageDone
	}
	return stageOrder[idx+1]
}

// Terminal reports whether s is the terminal stage.
func (s Stage) Terminal() bool {
	return s == StageDone
}

func (s Stage) String() string {
	return string(s)
}
