// -- cmd/run.go --
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/som-agent/internal/action"
	"github.com/xkilldash9x/som-agent/internal/agent"
	"github.com/xkilldash9x/som-agent/internal/browser"
	"github.com/xkilldash9x/som-agent/internal/config"
	"github.com/xkilldash9x/som-agent/internal/llmclient"
	"github.com/xkilldash9x/som-agent/internal/marks"
	"github.com/xkilldash9x/som-agent/internal/observability"
)

const banner = `
   ____  ___  __  __       _                    _
  / ___|/ _ \|  \/  |     / \   __ _  ___ _ __ | |_
  \___ \ | | | |\/| |    / _ \ / _' |/ _ \ '_ \| __|
   ___) | |_| | |  | |  / ___ \ (_| |  __/ | | | |_
  |____/ \___/|_|  |_| /_/   \_\__, |\___|_| |_|\__|
                               |___/
  Set-of-Marks browser agent
`

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [task...]",
		Short: "Runs a browser task described in natural language",
		Long: `Runs a single natural-language task against a fresh browser session.

The task may be given as arguments, or interactively when omitted:

  som-agent run find the cheapest flight from Berlin to Lisbon in October`,
		Args: cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their Viper keys so command-line flags correctly
			// override values from the config file and environment.
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			if err := viper.BindPFlag("agent.max_steps", cmd.Flags().Lookup("max-steps")); err != nil {
				return err
			}
			return viper.BindPFlag("vision.model", cmd.Flags().Lookup("model"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from main.go (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			// Re-load the config. Now that flags are bound in PreRunE, Viper
			// applies the overrides with the right precedence.
			loaded, err := config.Load(viper.GetViper())
			if err != nil {
				return fmt.Errorf("failed to reload config with flag overrides: %w", err)
			}
			cfg = loaded

			fmt.Print(banner)

			if cfg.Vision.APIKey == "" {
				return fmt.Errorf("no vision API key configured: set GEMINI_API_KEY (or SOM_VISION_API_KEY) and try again")
			}

			task := strings.TrimSpace(strings.Join(args, " "))
			if task == "" {
				task, err = promptForTask()
				if err != nil {
					return err
				}
			}

			logger.Info("Launching browser",
				zap.Bool("headless", cfg.Browser.Headless),
				zap.Int("max_steps", cfg.Agent.MaxSteps),
				zap.String("model", cfg.Vision.Model),
			)

			manager := browser.NewManager(ctx, cfg, logger)
			defer manager.Close()

			session, err := manager.NewSession(ctx)
			if err != nil {
				return fmt.Errorf("failed to start browser session: %w", err)
			}
			defer session.Close(ctx)

			client, err := llmclient.NewClient(cfg.Vision, logger)
			if err != nil {
				return err
			}

			loop := agent.New(
				cfg.Agent,
				logger,
				session,
				marks.NewScanner(session, logger),
				marks.NewRenderer(cfg.Marker, cfg.Browser.ScreenshotQuality, logger),
				client,
				action.NewResolver(session, cfg.Browser.FallbackTimeout, logger),
				promptUser,
			)

			result, err := loop.Run(ctx, task)
			if err != nil {
				switch {
				case errors.Is(err, context.Canceled):
					logger.Warn("Task aborted", zap.String("task", task))
					return fmt.Errorf("task aborted by user signal")
				case errors.Is(err, agent.ErrTooManyErrors):
					return fmt.Errorf("task failed: %w", err)
				case errors.Is(err, agent.ErrMaxStepsReached):
					return fmt.Errorf("task incomplete: %w", err)
				default:
					return err
				}
			}

			fmt.Printf("\nTask complete: %s\n", result)
			return nil
		},
	}

	runCmd.Flags().Bool("headless", false, "Run the browser without a visible window")
	runCmd.Flags().Int("max-steps", 50, "Maximum number of agent steps before giving up")
	runCmd.Flags().String("model", "", "Vision model to use (overrides config)")

	return runCmd
}

// promptForTask reads the task interactively when none was given as
// arguments.
func promptForTask() (string, error) {
	fmt.Println("Describe the task, for example:")
	fmt.Println(`  - find the current weather in Berlin on duckduckgo`)
	fmt.Println(`  - open news.ycombinator.com and summarize the top story`)
	fmt.Print("\nTask: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read task: %w", err)
	}

	task := strings.TrimSpace(line)
	if task == "" {
		return "", fmt.Errorf("no task given")
	}
	return task, nil
}

// promptUser answers the agent's ask actions from stdin.
func promptUser(question string) (string, error) {
	fmt.Printf("\nAgent asks: %s\n> ", question)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}
