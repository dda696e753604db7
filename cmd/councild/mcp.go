package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/council/internal/catalog"
	"github.com/dusk-indust/council/internal/mcptools"
	"github.com/dusk-indust/council/internal/store"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP tool server",
	Long: `Exposes read-only council tools (conversation listing, retrieval, deletion,
and the model catalog) over the Model Context Protocol's streamable HTTP
transport.`,
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")
		dataDir, _ := cmd.Flags().GetString("data")
		configDir, _ := cmd.Flags().GetString("config")

		cat, err := catalog.Load(configDir)
		if err != nil {
			fmt.Printf("Error loading model catalog: %v\n", err)
			os.Exit(1)
		}

		st, err := store.Open(filepath.Join(dataDir, "conversations.db"))
		if err != nil {
			fmt.Printf("Error opening conversation store: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()

		svc := mcptools.NewCouncilService(st, cat)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting council MCP server on %s\n", addr)
		if err := mcptools.RunMCPServer(ctx, svc, addr, version); err != nil {
			fmt.Printf("MCP server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("addr", ":8001", "Address to listen on")
}
