// Package rubric implements the scoring strategies applied to stage
// submissions. Evaluators are pure functions over payload text or
// execution outcomes and never perform I/O.
package rubric

const (
	// CriterionInputsOutputs scores the learner's restatement of inputs and outputs.
	CriterionInputsOutputs = "inputs_outputs"
	// CriterionConstraints scores the learner's restatement of constraints.
	CriterionConstraints = "constraints"
	// CriterionExamples scores worked examples and edge-case awareness.
	CriterionExamples = "examples"
	// CriterionCompiles scores whether the submitted code compiled.
	CriterionCompiles = "compiles"
	// CriterionSignature scores whether the declared function signature matched.
	CriterionSignature = "signature"
	// CriterionCorrectness scores test outcomes, all-or-nothing.
	CriterionCorrectness = "correctness"
)

const (
	// ClarifyPassThreshold is the minimum clarify total (of a 12-point
	// scale) required to advance.
	ClarifyPassThreshold = 7

	compilesPoints    = 3
	signaturePoints   = 3
	correctnessPoints = 3
)
