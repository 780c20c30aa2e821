// Package main provides the CLI entry point for the desktop agent.
//
// deskagent drives the local mouse, keyboard, and shell from natural-
// language instructions: it takes a screenshot, asks an LLM what to do
// next, and repeats until the task is done.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deskagent",
		Short: "deskagent - autonomous desktop automation agent",
		Long: `deskagent watches the screen, reasons about a task with an LLM, and
drives the mouse, keyboard, and shell to accomplish it.

Supported LLM providers: Anthropic (Claude, computer-use), OpenAI (function
calling), and any OpenAI-compatible endpoint (OpenRouter, Ollama).`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", defaultSettingsPath(), "Path to the YAML settings file")

	rootCmd.AddCommand(
		buildRunCmd(),
		buildScreenshotCmd(),
		buildWindowsCmd(),
		buildShellCmd(),
		buildSettingsCmd(),
	)

	return rootCmd
}
