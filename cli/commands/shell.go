package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/satishbabariya/coconutdal/cli/internal/ui"
	"github.com/satishbabariya/coconutdal/config"
	"github.com/satishbabariya/coconutdal/internal/debug"
	"github.com/spf13/cobra"
)

const shellHelp = `Statements starting with SELECT or WITH print a table; others are executed.
Meta commands:
  \q          quit
  \text       toggle text mode (otherwise lines are stored procedure names)
  \catch      toggle capturing of database errors
  \error      show the last captured error
  \metrics    show command counters
  \help       show this help`

func newShellCommand(opts *globalOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive prompt against one connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := pickConnection(opts)
			if err != nil {
				return err
			}
			s, err := opts.open(cmd.Context(), name)
			if err != nil {
				return err
			}
			defer s.Close()

			sh := &shell{s: s, out: cmd.OutOrStdout(), opts: opts}
			if watch && s.cfg != nil && s.cfg.File != "" {
				w, err := config.NewWatcher(s.cfg.File, sh.reload)
				if err != nil {
					return err
				}
				w.Start()
				defer w.Stop()
			}

			ui.PrintHeader("coconut shell", fmt.Sprintf("%s via %s, \\help for commands", s.dal.Variant(), s.dal.Driver()))
			return sh.loop(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", true, "Reload the connection when the configuration file changes")
	return cmd
}

// pickConnection asks which configured connection to use when neither
// --dsn nor --connection selects one and there is more than one.
func pickConnection(opts *globalOptions) (string, error) {
	if opts.dsn != "" || opts.connection != "" {
		return opts.connection, nil
	}
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return "", err
	}
	if len(cfg.Connections) < 2 {
		return "", nil
	}
	def, err := cfg.Lookup("")
	if err != nil {
		return "", err
	}
	var name string
	prompt := &survey.Select{
		Message: "Connection:",
		Options: cfg.Names(),
		Default: def.Name,
	}
	if err := survey.AskOne(prompt, &name); err != nil {
		return "", err
	}
	return name, nil
}

type shell struct {
	mu   sync.Mutex
	s    *session
	out  io.Writer
	opts *globalOptions
}

func (sh *shell) reload(cfg *config.Config) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if err := sh.s.reload(cfg); err != nil {
		debug.Warn("shell: keeping previous connection", "error", err)
		return
	}
	ui.PrintInfo("configuration reloaded")
}

func (sh *shell) loop(ctx context.Context) error {
	for {
		var line string
		err := survey.AskOne(&survey.Input{Message: sh.prompt()}, &line)
		if errors.Is(err, terminal.InterruptErr) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == `\q` {
			return nil
		}
		if err := sh.handle(ctx, line); err != nil {
			ui.PrintError("%v", err)
		}
	}
}

func (sh *shell) prompt() string {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	mode := "proc"
	if sh.s.dal.IsAlwaysTextQuery {
		mode = "sql"
	}
	return fmt.Sprintf("%s %s>", sh.s.dal.Variant(), mode)
}

func (sh *shell) handle(ctx context.Context, line string) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	dal := sh.s.dal
	r := sh.opts.renderer(sh.out)
	switch line {
	case `\help`:
		_, err := fmt.Fprintln(sh.out, shellHelp)
		return err
	case `\text`:
		dal.IsAlwaysTextQuery = !dal.IsAlwaysTextQuery
		ui.PrintInfo("text mode: %t", dal.IsAlwaysTextQuery)
		return nil
	case `\catch`:
		dal.CatchDbExceptions = !dal.CatchDbExceptions
		ui.PrintInfo("capture database errors: %t", dal.CatchDbExceptions)
		return nil
	case `\error`:
		if err := dal.LastError(); err != nil {
			ui.PrintWarning("%v", err)
		} else {
			ui.PrintInfo("no captured error")
		}
		return nil
	case `\metrics`:
		return printCounters(sh.out, sh.s.registry)
	}

	upper := strings.ToUpper(line)
	if strings.HasPrefix(upper, "SELECT") || strings.HasPrefix(upper, "WITH") {
		table, err := dal.GetTable(ctx, line)
		if err != nil {
			return err
		}
		return r.table(table)
	}
	ok, err := dal.ExecuteNonQuery(ctx, line)
	if err != nil {
		return err
	}
	if !ok {
		ui.PrintWarning("database error captured: %v", dal.LastError())
		return nil
	}
	ui.PrintSuccess("ok")
	return nil
}

// printCounters prints every counter sample in registry.
func printCounters(w io.Writer, registry prometheus.Gatherer) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	var rows [][]string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)
			rows = append(rows, []string{
				mf.GetName(),
				strings.Join(labels, ","),
				fmt.Sprintf("%g", m.GetCounter().GetValue()),
			})
		}
	}
	return ui.RenderTable(w, []string{"metric", "labels", "value"}, rows)
}
