package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"weft/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the language server on stdio",
	Long: `Runs the weft daemon speaking LSP over stdio. The editor provides the
workspace root and configuration during initialize; block editing is driven
through workspace/executeCommand.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	runtime.GOMAXPROCS(4)

	srv, err := server.NewServer()
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := srv.RunStdio(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
