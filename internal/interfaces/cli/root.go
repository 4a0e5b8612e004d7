// Package cli implements the appealctl command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/parcelworks/appealengine/pkg/client"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds the global CLI flags.
type RootOptions struct {
	ServerAddr string
	Output     string
	Timeout    time.Duration
}

// NewRootCommand creates the root command with all global flags and
// subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "appealctl",
		Short:   "appealctl is the CLI for the property tax appeal engine",
		Long:    "appealctl talks to the appeal engine API to analyze assessment appeal\nopportunities, inspect comparables, and look up subject properties.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ServerAddr, "server", "http://localhost:8080", "API server address")
	pf.StringVarP(&opts.Output, "output", "o", "text", "output format (text, json)")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "request timeout")

	cmd.AddCommand(
		newAnalyzeCommand(opts),
		newCompsCommand(opts),
		newPropertyCommand(opts),
		newHistoryCommand(opts),
		newMigrateCommand(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// newAPIClient builds the SDK client from the global flags.
func newAPIClient(opts *RootOptions) (*client.Client, error) {
	return client.NewClient(opts.ServerAddr, client.WithTimeout(opts.Timeout))
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
