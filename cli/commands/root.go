// Package commands implements the coconut CLI commands.
package commands

import (
	"fmt"

	"github.com/satishbabariya/coconutdal/cli/internal/ui"
	"github.com/satishbabariya/coconutdal/cli/internal/version"
	"github.com/satishbabariya/coconutdal/internal/debug"
	"github.com/spf13/cobra"
)

// Output formats
const (
	OutputTable = "table"
	OutputYAML  = "yaml"
	OutputJSON  = "json"
)

type globalOptions struct {
	configFile    string
	connection    string
	variant       string
	driver        string
	dsn           string
	text          bool
	catch         bool
	debug         bool
	output        string
	redisAddr     string
	traceEndpoint string
}

// NewRootCommand creates the coconut command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "coconut",
		Short: "Run stored procedures and text queries against PostgreSQL, SQLite or MySQL",
		Long: `coconut runs commands through the coconutdal execution engine.

A command is a stored procedure name unless --text is given. Arguments after
the command are parameters: name=value (or name:type=value) becomes a named
parameter, anything else is a positional value for a stored procedure.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug.Init(opts.debug)
			switch opts.output {
			case OutputTable, OutputYAML, OutputJSON:
				return nil
			default:
				return fmt.Errorf("unknown output format %q (want table, yaml or json)", opts.output)
			}
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.configFile, "config", "", "Configuration file (default: .coconutdal.yaml in ., $HOME or $HOME/.config/coconutdal)")
	f.StringVarP(&opts.connection, "connection", "c", "", "Named connection from the configuration")
	f.StringVar(&opts.variant, "variant", "", "Backend variant for --dsn: postgres, sqlite or mysql")
	f.StringVar(&opts.driver, "driver", "", "database/sql driver override (e.g. pgx)")
	f.StringVar(&opts.dsn, "dsn", "", "Connection string; bypasses the configuration file")
	f.BoolVarP(&opts.text, "text", "t", false, "Treat commands as text queries instead of stored procedures")
	f.BoolVar(&opts.catch, "catch", false, "Capture database errors instead of failing")
	f.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	f.StringVarP(&opts.output, "output", "o", OutputTable, "Output format: table, yaml or json")
	f.StringVar(&opts.redisAddr, "redis", "", "Redis address used to share derived procedure signatures")
	f.StringVar(&opts.traceEndpoint, "trace-endpoint", "", "OTLP/HTTP endpoint to export traces to")

	cmd.AddCommand(
		newExecCommand(opts),
		newScalarCommand(opts),
		newRowCommand(opts),
		newTableCommand(opts),
		newColumnCommand(opts),
		newConnectionsCommand(opts),
		newExplainCommand(opts),
		newShellCommand(opts),
		newVersionCommand(opts),
	)
	return cmd
}

// Execute is the main entry point for the CLI
func Execute() error {
	if err := NewRootCommand().Execute(); err != nil {
		ui.PrintError("%v", err)
		return err
	}
	return nil
}
