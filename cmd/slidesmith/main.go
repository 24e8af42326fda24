package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"slidesmith/internal/collab/images"
	"slidesmith/internal/collab/llm"
	"slidesmith/internal/collab/mail"
	"slidesmith/internal/config"
	"slidesmith/internal/logging"
	"slidesmith/internal/pipeline"
	"slidesmith/internal/sandbox"
	"slidesmith/internal/validate"
	"slidesmith/internal/workspace"
)

var version = "0.3.0"

var (
	// Global flags
	configPath string
	verbose    bool

	// generate flags
	recipient     string
	maxIterations int

	logger *zap.Logger
	cfg    *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "slidesmith",
	Short: "slidesmith - topic to verified slide deck, end to end",
	Long: `slidesmith turns a topic into a finished slide deck artifact.

The pipeline plans the content, generates a Lua deck script against the
decktheme design system, statically validates it, executes it in an isolated
child process, and optionally emails the resulting deck document.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// generateCmd runs the full pipeline for one topic.
var generateCmd = &cobra.Command{
	Use:   "generate [topic]",
	Short: "Generate a slide deck for a topic",
	Long: `Runs the full pipeline for the given topic:
  1. Plan: research and structure the deck content
  2. Generate: produce a Lua deck script from the plan
  3. Validate: parse and check the script against the design-system contract
  4. Execute: run the script sandboxed and verify the artifact
  5. Deliver: email the deck when --recipient is set

Validation and execution failures feed back into regeneration, bounded by
--max-iterations.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

// validateCmd checks an existing script without executing it.
var validateCmd = &cobra.Command{
	Use:   "validate [script.lua]",
	Short: "Validate a deck script without executing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the slidesmith version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("slidesmith %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "slidesmith.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	generateCmd.Flags().StringVarP(&recipient, "recipient", "r", "", "email the finished deck to this address")
	generateCmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "override the generation attempt bound")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	topic := strings.TrimSpace(strings.Join(args, " "))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, err := buildOrchestrator()
	if err != nil {
		return err
	}

	iterations := cfg.Pipeline.MaxIterations
	if maxIterations > 0 {
		iterations = maxIterations
	}

	st, err := orch.Run(ctx, pipeline.Request{
		Topic:         topic,
		Recipient:     recipient,
		MaxIterations: iterations,
	})
	if err != nil {
		return err
	}

	printOutcome(cmd, st)
	if !st.Success {
		return fmt.Errorf("deck generation failed: %s", st.Failure.Error())
	}
	return nil
}

func buildOrchestrator() (*pipeline.Orchestrator, error) {
	client, err := llm.NewFromConfig(cfg.LLM)
	if err != nil {
		return nil, err
	}

	var fetcher llm.AssetFetcher
	if cfg.Images.Enabled {
		fetcher = images.New(images.Config{
			AccessKey: cfg.Images.AccessKey,
			BaseURL:   cfg.Images.BaseURL,
			Timeout:   cfg.GetImagesTimeout(),
		}, logger.Named("images"))
	}

	var deliverer pipeline.Deliverer
	mailer := mail.New(mail.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
	}, logger.Named("mail"))
	if mailer.Configured() {
		deliverer = mailer
	}

	executor := sandbox.New(sandbox.Config{
		RunnerPath:      cfg.Execution.RunnerPath,
		RunnerSourceDir: cfg.Execution.RunnerSourceDir,
		Timeout:         cfg.GetExecutionTimeout(),
		InstallTimeout:  cfg.GetInstallTimeout(),
		MaxOutputBytes:  cfg.Execution.MaxOutputBytes,
	}, logger.Named("sandbox"))

	return pipeline.New(pipeline.Dependencies{
		Workspaces:       workspace.NewManager(cfg.Workspace.BaseDir),
		Validator:        validate.New(),
		Executor:         executor,
		Planner:          llm.NewPlanner(client, fetcher, logger.Named("planner")),
		Generator:        llm.NewGenerator(client, logger.Named("generator")),
		Deliverer:        deliverer,
		Logger:           logger.Named("pipeline"),
		ArtifactFilename: cfg.Pipeline.ArtifactFilename,
		PlanTimeout:      cfg.GetPlanTimeout(),
		GenerateTimeout:  cfg.GetGenerateTimeout(),
	})
}

func printOutcome(cmd *cobra.Command, st *pipeline.State) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nThread:     %s\n", st.ThreadID)
	fmt.Fprintf(out, "Workspace:  %s\n", st.WorkspaceRoot)
	fmt.Fprintf(out, "Iterations: %d/%d\n", st.Iterations, st.MaxIterations)
	if st.Success {
		fmt.Fprintf(out, "Artifact:   %s\n", st.ArtifactPath)
	}
	if st.EmailRequested {
		if st.EmailSent {
			fmt.Fprintf(out, "Email:      %s\n", st.EmailDetail)
		} else {
			fmt.Fprintf(out, "Email:      not sent (%s)\n", st.EmailDetail)
		}
	}
	for _, r := range st.History {
		fmt.Fprintf(out, "  [%s] %-10s %s\n", r.Status, r.Stage, firstLine(r.Output))
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func runValidate(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	report := validate.New().Validate(string(source))
	out := cmd.OutOrStdout()
	if len(report.Findings) == 0 {
		fmt.Fprintln(out, "script is valid")
		return nil
	}

	for _, f := range report.Findings {
		fmt.Fprintf(out, "%s: %s: %s\n", f.Severity, f.Code, f.Message)
	}
	if !report.Pass() {
		return fmt.Errorf("script failed validation")
	}
	fmt.Fprintln(out, "script passed with warnings")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
