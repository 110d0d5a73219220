package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"weft/internal/config"
	"weft/internal/index"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks [document]",
	Short: "List the source blocks of a literate document",
	Long: `Rescans the workspace and prints one line per source block of the
document: identity, language, line extent and tangle target. The document
path is taken relative to the workspace root.`,
	Args: cobra.ExactArgs(1),
	RunE: runBlocks,
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List tangle targets and the blocks feeding them",
	Args:  cobra.NoArgs,
	RunE:  runTargets,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Rebuild the block index from disk",
	Args:  cobra.NoArgs,
	RunE:  runScan,
}

func runBlocks(cmd *cobra.Command, args []string) error {
	root, ix, cleanup, err := openWorkspace()
	if err != nil {
		return err
	}
	defer cleanup()

	doc, err := relDoc(root, args[0])
	if err != nil {
		return err
	}
	blocks, err := ix.Blocks(doc)
	if err != nil {
		return fmt.Errorf("failed to list blocks: %w", err)
	}
	if len(blocks) == 0 {
		fmt.Printf("no source blocks indexed for %s\n", doc)
		return nil
	}
	for _, b := range blocks {
		fmt.Printf("%s  %s  lines %d-%d", b.ID, b.Language, b.Line, b.BodyEnd)
		if b.Name != "" {
			fmt.Printf("  name=%s", b.Name)
		}
		if b.Tangled() {
			fmt.Printf("  -> %s", b.Target)
		}
		fmt.Println()
	}
	return nil
}

func runTargets(cmd *cobra.Command, args []string) error {
	_, ix, cleanup, err := openWorkspace()
	if err != nil {
		return err
	}
	defer cleanup()

	targets, err := ix.Targets()
	if err != nil {
		return fmt.Errorf("failed to list targets: %w", err)
	}
	for _, target := range targets {
		blocks, err := ix.BlocksForTarget(target)
		if err != nil {
			return fmt.Errorf("failed to list blocks for %s: %w", target, err)
		}
		fmt.Printf("%s  (%d blocks)\n", target, len(blocks))
		for _, b := range blocks {
			fmt.Printf("  %s  %s\n", b.ID, b.Language)
		}
	}
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	_, ix, cleanup, err := openWorkspace()
	if err != nil {
		return err
	}
	defer cleanup()

	docs, err := ix.Store().Documents()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	fmt.Printf("indexed %d literate documents\n", len(docs))
	return nil
}

// openWorkspace resolves the workspace root, opens its block index and
// rescans it so the command sees current state. The cleanup closes the
// store.
func openWorkspace() (string, *index.Index, func(), error) {
	root := workspace
	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return "", nil, nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return "", nil, nil, err
	}
	indexPath := cfg.IndexPath
	if indexPath == "" {
		indexPath, err = index.DefaultPath(root)
		if err != nil {
			return "", nil, nil, err
		}
	}
	store, err := index.NewSQLiteStore(indexPath)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to open block index: %w", err)
	}
	if err := index.Scan(context.Background(), store, root); err != nil {
		store.Close()
		return "", nil, nil, fmt.Errorf("failed to scan workspace: %w", err)
	}
	return root, index.New(store), func() { store.Close() }, nil
}

func loadConfig() (config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load(nil)
}

// relDoc normalizes a document argument to the slash-separated
// root-relative form the index is keyed by.
func relDoc(root, arg string) (string, error) {
	p := arg
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
			return "", fmt.Errorf("document %s is outside the workspace", arg)
		}
		p = rel
	}
	return filepath.ToSlash(p), nil
}
