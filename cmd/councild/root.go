package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// version is set by the linker at build time.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "councild",
	Short: "Councild runs a multi-model LLM council pipeline",
	Long: `Councild orchestrates a council of language models: one user query is
refined into a brief, a chairman model assembles an expert team from parallel
brainstorm proposals, the experts contribute sequentially, and the chairman
synthesizes a single final artifact. Progress streams to clients as
Server-Sent Events and every stage result is persisted for resumption.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("data", "data", "Directory for the conversation database")
	rootCmd.PersistentFlags().String("config", ".", "Directory containing council.yml")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

// newLogger builds the process logger from the --log-level flag.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if s, _ := cmd.Flags().GetString("log-level"); s != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(s)); err == nil {
			level = l
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
