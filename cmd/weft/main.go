package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// Version will be set during the build process using ldflags
var Version = "(dev) v0.0.0"

var (
	// Global flags
	logfile   string
	verbosity int
	cfgFile   string
	workspace string
)

var rootCmd = &cobra.Command{
	Use:   "weft",
	Short: "Editing backend for source blocks in literate documents",
	Long: `weft lets source blocks scattered through org and markdown files be
edited as one program. Blocks tangled to the same output file are spliced
together around the block being edited, with the siblings protected as
read-only context, so language tooling sees the whole picture.

The serve command runs the editor-facing daemon; blocks, targets and scan
inspect the workspace's block index from the command line; graph serves a
live view of which documents feed which tangle targets.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logfile != "" {
			commonlog.Configure(verbosity, &logfile)
		} else {
			commonlog.Configure(verbosity, nil)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logfile, "logfile", "", "Write logs to a file instead of stderr")
	rootCmd.PersistentFlags().IntVar(&verbosity, "verbosity", 1, "Log verbosity, higher is chattier")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a weft config file")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(blocksCmd)
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
