package profiles

import (
	"fmt"
	"text/tabwriter"

	"ampsession/cmd/ampsession/cmdutil"

	"github.com/spf13/cobra"
)

var Cmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the profiles the server offers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cmdutil.LoadConfig()
		if err != nil {
			return err
		}
		list, err := cmdutil.NewClient(cfg).ListProfiles(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tEXTENDS\tDESCRIPTION")
		for _, p := range list.Profiles {
			extends := p.Extends
			if extends == "" {
				extends = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, extends, p.Description)
		}
		return tw.Flush()
	},
}
