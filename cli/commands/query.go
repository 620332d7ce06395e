package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/satishbabariya/coconutdal/cli/internal/ui"
	"github.com/satishbabariya/coconutdal/runtime/client"
	"github.com/spf13/cobra"
)

// runDal opens a session, parses the inputs after the command text and calls
// fn. A captured database error is reported as a warning.
func runDal(cmd *cobra.Command, opts *globalOptions, args []string, fn func(s *session, text string, inputs []any) error) error {
	inputs, err := parseInputs(args[1:])
	if err != nil {
		return err
	}
	s, err := opts.open(cmd.Context(), "")
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(s, args[0], inputs); err != nil {
		return err
	}
	if lastErr := s.dal.LastError(); lastErr != nil {
		ui.PrintWarning("database error captured: %v", lastErr)
	}
	return nil
}

func newExecCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <command> [params...]",
		Short: "Execute a command without reading rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDal(cmd, opts, args, func(s *session, text string, inputs []any) error {
				ok, err := s.dal.ExecuteNonQuery(cmd.Context(), text, inputs...)
				if err != nil {
					return err
				}
				return opts.renderer(cmd.OutOrStdout()).object(map[string]bool{"success": ok}, strconv.FormatBool(ok))
			})
		},
	}
}

func newScalarCommand(opts *globalOptions) *cobra.Command {
	var wantIdentity bool
	var as string

	cmd := &cobra.Command{
		Use:   "scalar <command> [params...]",
		Short: "Print the first column of the first row",
		Long: `Print the first column of the first row.

With --identity the command is expected to insert a row and the generated
identity is printed instead. --as converts the value (int16, int32, int64,
int, float64, string, bool); an incompatible value prints the type's zero.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDal(cmd, opts, args, func(s *session, text string, inputs []any) error {
				v, err := scalarAs(cmd, s.dal, as, text, wantIdentity, inputs)
				if err != nil {
					return err
				}
				return opts.renderer(cmd.OutOrStdout()).value(v)
			})
		},
	}
	cmd.Flags().BoolVar(&wantIdentity, "identity", false, "Return the identity generated by the command")
	cmd.Flags().StringVar(&as, "as", "", "Convert the value to a type")
	return cmd
}

func scalarAs(cmd *cobra.Command, dal *client.Dal, as, text string, wantIdentity bool, inputs []any) (any, error) {
	ctx := cmd.Context()
	switch strings.ToLower(as) {
	case "":
		return dal.GetSingleValueIdentity(ctx, text, wantIdentity, inputs...)
	case "int16":
		return client.GetSingleValueAs[int16](ctx, dal, text, wantIdentity, inputs...)
	case "int32":
		return client.GetSingleValueAs[int32](ctx, dal, text, wantIdentity, inputs...)
	case "int64":
		return client.GetSingleValueAs[int64](ctx, dal, text, wantIdentity, inputs...)
	case "int":
		return client.GetSingleValueAs[int](ctx, dal, text, wantIdentity, inputs...)
	case "float64", "float":
		return client.GetSingleValueAs[float64](ctx, dal, text, wantIdentity, inputs...)
	case "string":
		return client.GetSingleValueAs[string](ctx, dal, text, wantIdentity, inputs...)
	case "bool":
		return client.GetSingleValueAs[bool](ctx, dal, text, wantIdentity, inputs...)
	default:
		return nil, fmt.Errorf("unsupported --as type %q", as)
	}
}

func newRowCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "row <command> [params...]",
		Short: "Print the first row",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDal(cmd, opts, args, func(s *session, text string, inputs []any) error {
				row, err := s.dal.GetRow(cmd.Context(), text, inputs...)
				if err != nil {
					return err
				}
				return opts.renderer(cmd.OutOrStdout()).row(row)
			})
		},
	}
}

func newTableCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "table <command> [params...]",
		Short: "Print the whole result set",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDal(cmd, opts, args, func(s *session, text string, inputs []any) error {
				table, err := s.dal.GetTable(cmd.Context(), text, inputs...)
				if err != nil {
					return err
				}
				return opts.renderer(cmd.OutOrStdout()).table(table)
			})
		},
	}
}

func newColumnCommand(opts *globalOptions) *cobra.Command {
	var identityColumn string
	var ids []int

	cmd := &cobra.Command{
		Use:   "column <command> [params...]",
		Short: "Print one column indexed by the first selected column or by row number",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDal(cmd, opts, args, func(s *session, text string, inputs []any) error {
				var restrict []int
				if cmd.Flags().Changed("ids") {
					restrict = ids
					if restrict == nil {
						restrict = []int{}
					}
				}
				column, err := s.dal.GetColumnByIdentity(cmd.Context(), text, identityColumn, restrict, inputs...)
				if err != nil {
					return err
				}
				return opts.renderer(cmd.OutOrStdout()).column(column)
			})
		},
	}
	cmd.Flags().StringVar(&identityColumn, "identity-column", "", "Restrict rows to --ids on this column")
	cmd.Flags().IntSliceVar(&ids, "ids", nil, "Identity values to select")
	return cmd
}
