package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/folio/internal/api"
	"github.com/kalambet/folio/internal/assistant"
	"github.com/kalambet/folio/internal/storage"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the assistant over MCP (stdio transport)",
	Long: `Serve the assistant as MCP tools on stdin/stdout.

Tools: ask_about_owner, draft_contact_message
Resources: profile://context

Logs go to stderr. Pass --record to log interaction metadata to the
local database, the same way the site API does.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		record, _ := cmd.Flags().GetBool("record")
		return runMCP(record)
	},
}

func init() {
	mcpCmd.Flags().Bool("record", false, "record interaction metadata in the local database")
}

func runMCP(record bool) error {
	// stdout belongs to the protocol.
	a, err := loadApp(os.Stderr)
	if err != nil {
		return err
	}

	var opts []assistant.Option
	if record {
		store, err := storage.Open(a.cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()
		opts = append(opts, assistant.WithRecorder(assistant.NewStoreRecorder(store)))
	}

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Assistant: assistant.New(a.gemini, a.snapshot, opts...),
		Profile:   a.snapshot,
		Version:   version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("MCP server started (stdio transport)", "model", a.gemini.Model())
	stdioSrv := server.NewStdioServer(mcpSrv)
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}
