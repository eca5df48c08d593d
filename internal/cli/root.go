package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"darwin/internal/config"
	"darwin/internal/display"
	"darwin/internal/logger"
	"darwin/internal/orchestrator"
	"darwin/internal/state"
)

var rootCmd = &cobra.Command{
	Use:   "darwin",
	Short: "Evolutionary search over AI-generated code changes",
	Long: `darwin decomposes a goal into steps and, for each step, dispatches
competing agent attempts in parallel generations, scores them against a
protected evaluation harness, and evolves the population from failure
analysis until a winner passes.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	cfg := config.New()
	var protect []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start an evolution run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Eval.ProtectedPaths = protect

			orch, err := orchestrator.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			// SIGINT cancels in-flight work; the orchestrator persists a
			// CANCELLED terminal state on its way out.
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			sigc := make(chan os.Signal, 1)
			signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigc)
			go func() {
				<-sigc
				fmt.Println("\nCancelling run...")
				cancel()
			}()

			fmt.Println(display.FormatHeader(orch.RunID()))
			logger.Log.Printf("[CLI] Starting run %s", orch.RunID())

			st, err := orch.Run(ctx)
			if err != nil {
				fmt.Println(display.FormatRunSummary(st))
				return err
			}
			fmt.Println(display.FormatRunSummary(st))
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Plan, "plan", "", "high-level goal or path to a plan file")
	cmd.Flags().StringVar(&cfg.RepoPath, "repo", "", "path to the target repository")
	cmd.Flags().StringVar(&cfg.Eval.Command, "eval-cmd", "", "scoring command run in the eval directory")
	cmd.Flags().IntVar(&cfg.Eval.TimeoutSeconds, "eval-timeout", cfg.Eval.TimeoutSeconds, "scoring command timeout in seconds")
	cmd.Flags().StringVar(&cfg.Eval.SuccessCriteria, "criteria", cfg.Eval.SuccessCriteria, "success criteria: exit-code or output-match")
	cmd.Flags().StringVar(&cfg.Eval.ExpectedOutput, "expect", "", "substring required in output for output-match criteria")
	cmd.Flags().StringSliceVar(&protect, "protect", nil, "repo-relative path snapshotted before tasks run and overlaid at eval time (repeatable)")
	cmd.Flags().IntVar(&cfg.PopulationSize, "population", cfg.PopulationSize, "agents per generation (also the parallelism cap)")
	cmd.Flags().IntVar(&cfg.MaxGenerations, "generations", cfg.MaxGenerations, "max evolution iterations per step")
	cmd.Flags().IntVar(&cfg.TaskTimeoutSeconds, "timeout", cfg.TaskTimeoutSeconds, "per-task timeout in seconds")
	cmd.Flags().StringVar(&cfg.Vendor, "vendor", cfg.Vendor, "agent vendor")
	cmd.Flags().StringVar(&cfg.AgentCommand, "agent-cmd", "", "command the substrate runs per task, cwd = workspace")
	cmd.Flags().StringVar(&cfg.OracleBackend, "backend", "", "oracle backend: gemini or ollama")
	cmd.Flags().StringVar(&cfg.OracleModel, "model", "", "oracle model override")
	cmd.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "run state directory")
	cmd.Flags().StringVar(&cfg.WorkspacesDir, "workspaces-dir", cfg.WorkspacesDir, "task workspaces directory")

	return cmd
}

func newRunsCmd() *cobra.Command {
	stateDir := config.New().StateDir
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := state.NewStore(stateDir)
			if err != nil {
				return err
			}
			runs, err := store.ListRuns()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No runs recorded.")
				return nil
			}
			for _, st := range runs {
				fmt.Printf("%s  %-10s steps=%d generations=%d\n",
					st.ID, st.Status, len(st.PlanSteps), len(st.Generations))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&stateDir, "state-dir", stateDir, "run state directory")
	return cmd
}

func newResultsCmd() *cobra.Command {
	stateDir := config.New().StateDir
	cmd := &cobra.Command{
		Use:   "results <run-id>",
		Short: "Show the recorded history of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := state.NewStore(stateDir)
			if err != nil {
				return err
			}
			st, err := store.Load(args[0])
			if err != nil {
				return fmt.Errorf("load run %s: %w", args[0], err)
			}
			fmt.Println(display.FormatRunSummary(st))
			if len(st.PlanSteps) > 0 {
				fmt.Println(display.FormatPlan(st.PlanSteps))
			}
			for _, rec := range st.Generations {
				fmt.Println(display.FormatGeneration(rec))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&stateDir, "state-dir", stateDir, "run state directory")
	return cmd
}

func newStatusCmd() *cobra.Command {
	stateDir := config.New().StateDir
	cmd := &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show the persisted progress of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := state.NewStore(stateDir)
			if err != nil {
				return err
			}
			st, err := store.Load(args[0])
			if err != nil {
				return fmt.Errorf("load run %s: %w", args[0], err)
			}
			fmt.Printf("Run %s: %s (step %d, generation %d)\n",
				st.ID, st.Status, st.CurrentStep, st.CurrentGeneration)
			return nil
		},
	}
	cmd.Flags().StringVar(&stateDir, "state-dir", stateDir, "run state directory")
	return cmd
}

func init() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newResultsCmd())
	rootCmd.AddCommand(newStatusCmd())
}
