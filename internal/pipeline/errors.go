package pipeline

import "fmt"

// Kind is the failure taxonomy surfaced by the pipeline.
type Kind string

const (
	KindSyntaxInvalid         Kind = "syntax_invalid"
	KindPolicyViolation       Kind = "policy_violation"
	KindDependencyUnavailable Kind = "dependency_unavailable"
	KindExecutionNonZero      Kind = "execution_non_zero"
	KindExecutionTimeout      Kind = "execution_timeout"
	KindArtifactMissing       Kind = "artifact_missing"
	KindDeliveryFailed        Kind = "delivery_failed"
	KindWorkspaceIO           Kind = "workspace_io"
	KindPlanningFailed        Kind = "planning_failed"
	KindGenerationFailed      Kind = "generation_failed"
	KindValidationExhausted   Kind = "validation_exhausted"
	KindExecutionExhausted    Kind = "execution_exhausted"
)

// Failure is the structured record every pipeline failure is surfaced as.
// Detail retains raw diagnostics (validator summaries, captured stderr) and
// is never the primary message.
type Failure struct {
	Kind    Kind
	Stage   Stage
	Message string
	Detail  string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s at stage %s: %s", f.Kind, f.Stage, f.Message)
}
