package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var settingsPath string

func defaultSettingsPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "deskagent", "settings.yaml")
	}
	return "deskagent-settings.yaml"
}

// buildRunCmd creates the "run" command: the main entry point, which
// starts a task and streams progress events to stdout until it finishes.
func buildRunCmd() *cobra.Command {
	var jsonEvents bool

	cmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Run an agent task end to end",
		Long: `Run starts a new agent task: it loads settings, takes a screenshot,
asks the configured LLM provider what to do, and drives the mouse,
keyboard, and shell until the model says the task is complete or the
iteration limit is reached.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd.Context(), settingsPath, args[0], jsonEvents)
		},
	}

	cmd.Flags().BoolVar(&jsonEvents, "json", false, "Emit one JSON object per event instead of a human-readable line")
	return cmd
}

// buildScreenshotCmd creates the "screenshot" command: a one-off capture
// outside of any agent run.
func buildScreenshotCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "screenshot",
		Short: "Capture and annotate the current screen",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScreenshot(cmd.Context(), settingsPath, outPath)
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "screenshot.jpg", "File to write the captured JPEG to")
	return cmd
}

// buildWindowsCmd creates the "windows" command group: list and focus.
func buildWindowsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "List or focus open windows",
	}
	cmd.AddCommand(buildWindowsListCmd(), buildWindowsFocusCmd())
	return cmd
}

func buildWindowsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWindowsList(cmd.Context(), settingsPath)
		},
	}
}

func buildWindowsFocusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "focus <handle>",
		Short: "Focus a window by handle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWindowsFocus(cmd.Context(), settingsPath, args[0])
		},
	}
}

// buildShellCmd creates the "shell" command: run one command outside of
// any agent run, using the configured timeout.
func buildShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell <command>",
		Short: "Run a single shell command with the configured timeout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShellCommand(cmd.Context(), settingsPath, args[0])
		},
	}
}

// buildSettingsCmd creates the "settings" command group: show and init.
func buildSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect or initialize the settings file",
	}
	cmd.AddCommand(buildSettingsShowCmd(), buildSettingsInitCmd())
	return cmd
}

func buildSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsShow(settingsPath)
		},
	}
}

func buildSettingsInitCmd() *cobra.Command {
	var provider, model, apiKey string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter settings file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsInit(settingsPath, provider, model, apiKey)
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "anthropic", "LLM provider dialect: anthropic, openai, or openai_compatible")
	cmd.Flags().StringVar(&model, "model", "", "Model name override (provider-specific default if empty)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key, or reference an env var like ${ANTHROPIC_API_KEY}")
	return cmd
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings directory %s: %w", dir, err)
	}
	return nil
}
