package commands

import (
	"strings"

	"github.com/satishbabariya/coconutdal/cli/internal/ui"
	"github.com/satishbabariya/coconutdal/config"
	"github.com/spf13/cobra"
)

type connectionInfo struct {
	Name    string `json:"name" yaml:"name"`
	Variant string `json:"variant" yaml:"variant"`
	Driver  string `json:"driver,omitempty" yaml:"driver,omitempty"`
	Default bool   `json:"default" yaml:"default"`
}

func newConnectionsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "connections",
		Aliases: []string{"conn"},
		Short:   "List the connections in the configuration file",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configFile)
			if err != nil {
				return err
			}
			infos, err := describeConnections(cfg)
			if err != nil {
				return err
			}

			r := opts.renderer(cmd.OutOrStdout())
			if r.format != OutputTable {
				return r.encode(infos)
			}
			rows := make([][]string, len(infos))
			for i, info := range infos {
				mark := ""
				if info.Default {
					mark = "*"
				}
				rows[i] = []string{mark, info.Name, info.Variant, info.Driver}
			}
			return ui.RenderTable(r.w, []string{"", "name", "variant", "driver"}, rows)
		},
	}
}

// describeConnections lists cfg's connections and marks the one an empty
// name resolves to. Connection strings are left out since they may carry
// credentials.
func describeConnections(cfg *config.Config) ([]connectionInfo, error) {
	def, err := cfg.Lookup("")
	if err != nil {
		return nil, err
	}
	infos := make([]connectionInfo, len(cfg.Connections))
	for i, c := range cfg.Connections {
		infos[i] = connectionInfo{
			Name:    c.Name,
			Variant: strings.ToLower(c.Variant),
			Driver:  c.Driver,
			Default: c.Name == def.Name,
		}
	}
	return infos, nil
}
