// Weft MCP server: exposes the block-edit session broker to agent clients
// over the Model Context Protocol, as an alternative frontend to the LSP
// daemon.
//
// Usage:
//
//	weft-mcp serve --workspace /path/to/notes
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"weft/internal/config"
	"weft/internal/mcptools"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("weft-mcp v%s\n", mcptools.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	workspace := flags.String("workspace", "", "Workspace root (default: current directory)")
	configPath := flags.String("config", "", "Path to a weft config file")
	logfile := flags.String("logfile", "", "Path to a log file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	// Logs go to stderr or the log file, never stdout: stdout carries the
	// MCP transport.
	if *logfile != "" {
		commonlog.Configure(1, logfile)
	} else {
		commonlog.Configure(1, nil)
	}

	root := *workspace
	if root == "" {
		var err error
		root, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	s, cleanup, err := mcptools.NewServer(root, cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	return server.ServeStdio(s)
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load(nil)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `weft-mcp v%s - literate source block editing over MCP

Usage:
  weft-mcp serve [flags]   Start the MCP server (stdio transport)

Flags for serve:
  --workspace DIR   Workspace root holding literate documents (default: cwd)
  --config FILE     Path to a weft config file
  --logfile FILE    Write logs to FILE instead of stderr

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "weft": {
        "command": "weft-mcp",
        "args": ["serve", "--workspace", "/path/to/notes"]
      }
    }
  }
`, mcptools.Version)
}
