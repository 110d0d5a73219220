package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"weft/internal/graph"
	"weft/internal/index"
)

var graphAddr string

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Serve a live graph of documents and their tangle targets",
	Long: `Graph serves a browser view of the workspace tangle graph: which
documents contribute blocks to which files. The view updates as documents
change on disk. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringVar(&graphAddr, "addr", "localhost:0", "Address to serve the graph on, :0 picks a free port")
}

func runGraph(cmd *cobra.Command, args []string) error {
	root, ix, cleanup, err := openWorkspace()
	if err != nil {
		return err
	}
	defer cleanup()

	srv := graph.NewServer()
	data, err := graph.Build(ix)
	if err != nil {
		return fmt.Errorf("failed to build graph: %w", err)
	}
	if err := srv.SetGraph(data); err != nil {
		return fmt.Errorf("failed to set graph: %w", err)
	}

	watcher, err := index.NewWatcher(root, ix.Store())
	if err != nil {
		return fmt.Errorf("failed to watch workspace: %w", err)
	}
	watcher.OnUpdate = func(doc string) {
		data, err := graph.Build(ix)
		if err != nil {
			fmt.Fprintf(os.Stderr, "graph rebuild after %s changed: %v\n", doc, err)
			return
		}
		if err := srv.SetGraph(data); err != nil {
			fmt.Fprintf(os.Stderr, "graph broadcast: %v\n", err)
		}
	}
	if err := watcher.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Stop()

	url, err := srv.Show(graphAddr)
	if err != nil {
		return fmt.Errorf("failed to serve graph: %w", err)
	}
	fmt.Printf("Serving tangle graph at %s\n", url)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	return nil
}
