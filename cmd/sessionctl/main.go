package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// buildRootCmd constructs the Cobra command tree wired to the HTTP client.
func buildRootCmd() *cobra.Command {
	c := &client{baseURL: "http://127.0.0.1:8080"}
	root := &cobra.Command{
		Use:           "sessionctl",
		Short:         "Command-line client for a sessiond server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.baseURL, "server", envOr("SESSIOND_URL", c.baseURL), "Base URL of the sessiond server")

	modelsCmd := &cobra.Command{Use: "models", Short: "List models known to the server", RunE: func(cmd *cobra.Command, args []string) error {
		return c.printModels(cmd.OutOrStdout())
	}}

	statusCmd := &cobra.Command{Use: "status", Short: "Show server status", RunE: func(cmd *cobra.Command, args []string) error {
		return c.printStatus(cmd.OutOrStdout())
	}}

	sessionsCmd := &cobra.Command{Use: "sessions", Short: "List live sessions", RunE: func(cmd *cobra.Command, args []string) error {
		return c.printSessions(cmd.OutOrStdout())
	}}

	var createModel, createSystem string
	var createTokens int
	var createReasoning bool
	createCmd := &cobra.Command{Use: "create", Short: "Create a session and print its handle", RunE: func(cmd *cobra.Command, args []string) error {
		id, model, err := c.createSession(createModel, createSystem, createTokens, createReasoning)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "session %d (model %s)\n", id, model)
		return nil
	}}
	createCmd.Flags().StringVar(&createModel, "model", "", "Model id (empty uses the server default)")
	createCmd.Flags().StringVar(&createSystem, "system-prompt", "", "System prompt for the session")
	createCmd.Flags().IntVar(&createTokens, "max-new-tokens", 0, "Token budget per reply (0 uses the server default)")
	createCmd.Flags().BoolVar(&createReasoning, "reasoning", false, "Use the reasoning prompt dialect")

	releaseCmd := &cobra.Command{Use: "release <session-id>", Short: "Release a session", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid session id %q", args[0])
		}
		return c.releaseSession(id)
	}}

	var chatSession int64
	chatCmd := &cobra.Command{Use: "chat <text>", Short: "Send one message and stream the reply", Example: "  sessionctl chat --session 1 \"Write a haiku about the ocean.\"", Args: cobra.MinimumNArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		if chatSession == 0 {
			id, _, err := c.createSession("", "", 0, false)
			if err != nil {
				return err
			}
			chatSession = id
			defer func() { _ = c.releaseSession(id) }()
		}
		return c.chat(cmd.OutOrStdout(), chatSession, joinArgs(args))
	}}
	chatCmd.Flags().Int64Var(&chatSession, "session", 0, "Existing session handle (0 creates a throwaway session)")

	historyCmd := &cobra.Command{Use: "history <session-id>", Short: "Print a session's conversation history", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid session id %q", args[0])
		}
		return c.printHistory(cmd.OutOrStdout(), id)
	}}

	root.AddCommand(modelsCmd, statusCmd, sessionsCmd, createCmd, releaseCmd, chatCmd, historyCmd)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}
