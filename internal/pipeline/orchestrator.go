package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"slidesmith/internal/deckscript"
	"slidesmith/internal/sandbox"
	"slidesmith/internal/validate"
	"slidesmith/internal/workspace"

	"github.com/google/uuid"
)

// Dependencies is the explicit wiring the orchestrator runs with. Everything
// is assembled once at startup and passed in; the pipeline holds no globals.
type Dependencies struct {
	Workspaces *workspace.Manager
	Validator  *validate.Validator
	Executor   *sandbox.Executor
	Planner    Planner
	Generator  Generator
	// Deliverer may be nil; delivery is then recorded as failed without
	// affecting overall success.
	Deliverer Deliverer
	// History may be nil; a fresh one is created.
	History *History
	// Logger may be nil; a no-op logger is used.
	Logger *zap.Logger

	// ArtifactFilename defaults to the deckscript default.
	ArtifactFilename string
	// PlanTimeout and GenerateTimeout bound the collaborator invocations.
	PlanTimeout     time.Duration
	GenerateTimeout time.Duration
}

// Orchestrator drives one request through the stage state machine.
type Orchestrator struct {
	deps Dependencies
}

// New validates the wiring and returns an Orchestrator.
func New(deps Dependencies) (*Orchestrator, error) {
	switch {
	case deps.Workspaces == nil:
		return nil, errors.New("pipeline: workspace manager is required")
	case deps.Validator == nil:
		return nil, errors.New("pipeline: validator is required")
	case deps.Executor == nil:
		return nil, errors.New("pipeline: executor is required")
	case deps.Planner == nil:
		return nil, errors.New("pipeline: planner is required")
	case deps.Generator == nil:
		return nil, errors.New("pipeline: generator is required")
	}
	if deps.History == nil {
		deps.History = NewHistory()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.ArtifactFilename == "" {
		deps.ArtifactFilename = deckscript.DefaultArtifactName
	}
	if deps.PlanTimeout <= 0 {
		deps.PlanTimeout = 3 * time.Minute
	}
	if deps.GenerateTimeout <= 0 {
		deps.GenerateTimeout = 3 * time.Minute
	}
	return &Orchestrator{deps: deps}, nil
}

// History exposes the append-only stage log.
func (o *Orchestrator) History() *History {
	return o.deps.History
}

// Run drives a request to its terminal state. The returned State is always
// terminal; the error is reserved for malformed requests.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*State, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, errors.New("pipeline: request topic is required")
	}
	if req.ThreadID == "" {
		req.ThreadID = uuid.NewString()[:8]
	}
	if req.MaxIterations <= 0 {
		req.MaxIterations = 3
	}

	st := &State{
		ThreadID:       req.ThreadID,
		Topic:          req.Topic,
		Stage:          StagePlanning,
		MaxIterations:  req.MaxIterations,
		EmailRequested: req.Recipient != "",
	}
	log := o.deps.Logger.With(zap.String("thread_id", req.ThreadID), zap.String("topic", req.Topic))
	log.Info("starting deck generation", zap.Int("max_iterations", req.MaxIterations))

	ws, err := o.deps.Workspaces.Create(req.Topic)
	if err != nil {
		return o.fail(st, KindWorkspaceIO, StagePlanning, "workspace creation failed", err.Error()), nil
	}
	st.WorkspaceRoot = ws.Root

	// PLANNING. A planning error is fatal: there is nothing to feed back.
	planCtx, cancelPlan := context.WithTimeout(ctx, o.deps.PlanTimeout)
	planOut, err := o.deps.Planner.Plan(planCtx, req.Topic, req.ThreadID, ws)
	cancelPlan()
	if err != nil {
		o.record(st, StagePlanning, StatusError, err.Error())
		return o.fail(st, KindPlanningFailed, StagePlanning, "planning collaborator failed", err.Error()), nil
	}
	if planOut.Kind == OutcomeError {
		o.record(st, StagePlanning, StatusError, planOut.Payload)
		return o.fail(st, KindPlanningFailed, StagePlanning, "planning returned an error outcome", planOut.Payload), nil
	}
	o.record(st, StagePlanning, statusForKind(planOut.Kind), planOut.Payload)
	plan := planOut.Payload

	var (
		source   string
		feedback string
		rec      *sandbox.Record
	)

	for {
		// GENERATING. Each entry counts one iteration against the bound.
		st.Stage = StageGenerating
		st.Iterations++
		log.Info("generating deck script", zap.Int("iteration", st.Iterations))

		genCtx, cancelGen := context.WithTimeout(ctx, o.deps.GenerateTimeout)
		genOut, err := o.deps.Generator.Generate(genCtx, GenerateInput{
			Topic:     req.Topic,
			ThreadID:  req.ThreadID,
			Plan:      plan,
			Feedback:  feedback,
			Iteration: st.Iterations,
		})
		cancelGen()
		if err != nil {
			o.record(st, StageGenerating, StatusError, err.Error())
			return o.fail(st, KindGenerationFailed, StageGenerating, "generation collaborator failed", err.Error()), nil
		}
		if genOut.Kind == OutcomeError {
			o.record(st, StageGenerating, StatusError, genOut.Payload)
			return o.fail(st, KindGenerationFailed, StageGenerating, "generation returned an error outcome", genOut.Payload), nil
		}
		source = genOut.Payload
		o.record(st, StageGenerating, statusForKind(genOut.Kind), fmt.Sprintf("generated %d bytes of script", len(source)))

		// VALIDATING. Blocking findings loop back to generation, bounded.
		st.Stage = StageValidating
		report := o.deps.Validator.Validate(source)
		if !report.Pass() {
			o.record(st, StageValidating, StatusError, report.Summary())
			kind := KindPolicyViolation
			if blocking := report.Blocking(); len(blocking) > 0 && blocking[0].Code == validate.CodeSyntaxInvalid {
				kind = KindSyntaxInvalid
			}
			log.Warn("validation failed",
				zap.Int("iteration", st.Iterations),
				zap.String("kind", string(kind)))
			if st.Iterations >= req.MaxIterations {
				return o.fail(st, KindValidationExhausted, StageValidating,
					fmt.Sprintf("validation still failing after %d generation attempts", st.Iterations),
					report.Summary()), nil
			}
			feedback = "The previous script failed validation. Fix every finding below and regenerate the full script.\n" + report.Summary()
			continue
		}
		o.record(st, StageValidating, validationStatus(report), report.Summary())

		// EXECUTING. Timeouts and non-zero exits are retried up to the
		// bound; a missing runner dependency is fatal immediately.
		st.Stage = StageExecuting
		rec, err = o.deps.Executor.Execute(ctx, source, ws, o.deps.ArtifactFilename)
		if err != nil {
			if errors.Is(err, sandbox.ErrDependencyUnavailable) {
				o.record(st, StageExecuting, StatusError, err.Error())
				return o.fail(st, KindDependencyUnavailable, StageExecuting, "script runner unavailable", err.Error()), nil
			}
			o.record(st, StageExecuting, StatusError, err.Error())
			return o.fail(st, KindExecutionNonZero, StageExecuting, "executor infrastructure failed", err.Error()), nil
		}

		attempt, done := o.classifyExecution(st, rec)
		if done {
			break
		}
		if st.Iterations >= req.MaxIterations {
			return o.fail(st, KindExecutionExhausted, StageExecuting,
				fmt.Sprintf("execution still failing after %d generation attempts", st.Iterations),
				attempt.Detail), nil
		}
		feedback = fmt.Sprintf("The previous script failed during execution (%s): %s\nRegenerate the full script with this fixed.",
			attempt.Kind, attempt.Detail)
	}

	st.ArtifactPath = rec.ArtifactPath
	log.Info("deck produced", zap.String("artifact", st.ArtifactPath), zap.Duration("elapsed", rec.Elapsed))

	// DELIVERING. The outcome is recorded but never flips overall success.
	if req.Recipient != "" {
		st.Stage = StageDelivering
		res := o.deliver(ctx, req, st)
		st.EmailSent = res.Sent
		st.EmailDetail = res.Detail
		if res.Sent {
			o.record(st, StageDelivering, StatusSuccess, res.Detail)
		} else {
			o.record(st, StageDelivering, StatusWarning, fmt.Sprintf("%s: %s", KindDeliveryFailed, res.Detail))
			log.Warn("delivery failed", zap.String("recipient", req.Recipient), zap.String("detail", res.Detail))
		}
	}

	st.Stage = StageDone
	st.Terminal = true
	st.Success = true
	o.record(st, StageDone, StatusSuccess, "deck generated at "+st.ArtifactPath)
	o.persistHistory(st)
	return st, nil
}

// persistHistory writes the stage log into the workspace logs dir as JSON
// lines. Best effort: a failed write is logged, never surfaced.
func (o *Orchestrator) persistHistory(st *State) {
	if st.WorkspaceRoot == "" {
		return
	}
	path := filepath.Join(st.WorkspaceRoot, workspace.LogsDir, "pipeline.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		o.deps.Logger.Warn("failed to persist run history", zap.String("path", path), zap.Error(err))
		return
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, r := range st.History {
		if err := enc.Encode(r); err != nil {
			o.deps.Logger.Warn("failed to persist run history", zap.String("path", path), zap.Error(err))
			return
		}
	}
}

// executionAttempt describes one failed execution for retry feedback.
type executionAttempt struct {
	Kind   Kind
	Detail string
}

// classifyExecution records the execution result and decides whether the run
// can advance. done=true means the artifact exists.
func (o *Orchestrator) classifyExecution(st *State, rec *sandbox.Record) (executionAttempt, bool) {
	switch {
	case rec.TimedOut:
		detail := fmt.Sprintf("killed after %s", rec.Elapsed.Round(time.Millisecond))
		o.record(st, StageExecuting, StatusError, fmt.Sprintf("%s: %s", KindExecutionTimeout, detail))
		return executionAttempt{Kind: KindExecutionTimeout, Detail: detail}, false
	case rec.ExitCode != 0:
		detail := strings.TrimSpace(rec.Stderr)
		if detail == "" {
			detail = strings.TrimSpace(rec.Stdout)
		}
		o.record(st, StageExecuting, StatusError,
			fmt.Sprintf("%s: exit %d: %s", KindExecutionNonZero, rec.ExitCode, detail))
		return executionAttempt{Kind: KindExecutionNonZero, Detail: fmt.Sprintf("exit %d: %s", rec.ExitCode, detail)}, false
	case rec.ArtifactPath == "":
		o.record(st, StageExecuting, StatusWarning,
			fmt.Sprintf("%s: script ran clean but produced no artifact", KindArtifactMissing))
		return executionAttempt{Kind: KindArtifactMissing, Detail: "script exited 0 without saving the deck"}, false
	}
	o.record(st, StageExecuting, StatusSuccess,
		fmt.Sprintf("artifact produced in %s", rec.Elapsed.Round(time.Millisecond)))
	return executionAttempt{}, true
}

func (o *Orchestrator) deliver(ctx context.Context, req Request, st *State) DeliveryResult {
	if o.deps.Deliverer == nil {
		return DeliveryResult{Sent: false, Detail: "no delivery channel configured"}
	}
	subject := "Generated deck: " + req.Topic
	body := deliveryBody(req.Topic, st.ArtifactPath)
	return o.deps.Deliverer.Send(ctx, req.Recipient, subject, body, st.ArtifactPath)
}

// deliveryBody renders the standard artifact email.
func deliveryBody(topic, artifactPath string) string {
	return fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif; color: #333;">
<h2>Generated deck: %s</h2>
<p>Hello,</p>
<p>Please find attached the deck on <strong>%q</strong>, generated automatically.</p>
<ul>
<li><strong>File:</strong> %s</li>
<li><strong>Generated:</strong> %s</li>
</ul>
<p>Review the content for accuracy before use.</p>
</body></html>`,
		topic, topic, filepath.Base(artifactPath), time.Now().Format(time.RFC1123))
}

func validationStatus(report validate.Report) Status {
	if len(report.Findings) > 0 {
		return StatusWarning
	}
	return StatusSuccess
}

// record appends an immutable stage result to both the run state and the
// process-wide history.
func (o *Orchestrator) record(st *State, stage Stage, status Status, output string) {
	result := StageResult{
		Stage:     stage,
		Status:    status,
		Output:    output,
		Iteration: st.Iterations,
		Timestamp: time.Now(),
	}
	st.History = append(st.History, result)
	o.deps.History.Append(st.ThreadID, result)
}

// fail moves the state to its single terminal failure.
func (o *Orchestrator) fail(st *State, kind Kind, stage Stage, message, detail string) *State {
	st.Failure = &Failure{Kind: kind, Stage: stage, Message: message, Detail: detail}
	st.Stage = StageFailed
	st.Terminal = true
	st.Success = false
	o.record(st, StageFailed, StatusError, st.Failure.Error())
	o.persistHistory(st)
	o.deps.Logger.Error("pipeline failed",
		zap.String("thread_id", st.ThreadID),
		zap.String("kind", string(kind)),
		zap.String("stage", string(stage)),
		zap.String("message", message))
	return st
}
