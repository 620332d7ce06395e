package commands

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/coconutdal/cli/internal/ui"
	"github.com/satishbabariya/coconutdal/runtime/dialect"
	"github.com/spf13/cobra"
)

type capability struct {
	Variant          string   `json:"variant" yaml:"variant"`
	Drivers          []string `json:"drivers" yaml:"drivers"`
	StoredProcedures bool     `json:"stored_procedures" yaml:"stored_procedures"`
	IdentityStrategy string   `json:"identity_strategy" yaml:"identity_strategy"`
	IdentityFunction string   `json:"identity_function" yaml:"identity_function"`
}

func newExplainCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain",
		Short: "Describe what each backend variant supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			variants := dialect.Variants()
			if opts.variant != "" {
				v, err := dialect.ParseVariant(opts.variant)
				if err != nil {
					return err
				}
				variants = []dialect.Variant{v}
			}
			caps, err := capabilities(variants)
			if err != nil {
				return err
			}

			r := opts.renderer(cmd.OutOrStdout())
			if r.format != OutputTable {
				return r.encode(caps)
			}
			return ui.PrintMarkdown(r.w, capabilityMarkdown(caps))
		},
	}
}

func capabilities(variants []dialect.Variant) ([]capability, error) {
	caps := make([]capability, 0, len(variants))
	for _, v := range variants {
		a, err := dialect.Lookup(v, "")
		if err != nil {
			return nil, err
		}
		caps = append(caps, capability{
			Variant:          v.String(),
			Drivers:          dialect.Drivers(v),
			StoredProcedures: a.SupportsStoredProcedures,
			IdentityStrategy: a.IdentityStrategy.String(),
			IdentityFunction: a.IdentityFunction,
		})
	}
	return caps, nil
}

func capabilityMarkdown(caps []capability) string {
	var b strings.Builder
	b.WriteString("# Backend capabilities\n\n")
	b.WriteString("| Variant | Drivers | Stored procedures | Identity | Recognized idiom |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, c := range caps {
		sp := "no"
		if c.StoredProcedures {
			sp = "yes"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | `%s` |\n",
			c.Variant, strings.Join(c.Drivers, ", "), sp, c.IdentityStrategy, c.IdentityFunction)
	}
	b.WriteString("\nText queries may not contain quotes or comment markers. ")
	b.WriteString("Raw parameter values are only accepted for stored procedures.\n")
	return b.String()
}
