package approvals

import (
	"fmt"
	"text/tabwriter"

	"ampsession/cmd/ampsession/cmdutil"
	"ampsession/internal/ledger"

	"github.com/spf13/cobra"
)

var (
	limit     int
	sessionID string
)

var Cmd = &cobra.Command{
	Use:   "approvals",
	Short: "Show recorded approval decisions, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cmdutil.LoadConfig()
		if err != nil {
			return err
		}
		l, err := cmdutil.OpenLedger(cfg)
		if err != nil {
			return err
		}
		defer l.Close()

		recs, err := l.List(cmd.Context(), sessionID, limit)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "WHEN\tSESSION\tAPPROVAL\tDECISION\tSOURCE\tPROMPT")
		for _, r := range recs {
			decision := r.Decision
			if decision == "" {
				decision = "-"
			}
			if r.Error != "" {
				decision += " (failed)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				cmdutil.Ago(r.ResolvedAt), r.SessionID, r.ApprovalID, decision, r.Source, r.Prompt)
		}
		return tw.Flush()
	},
}

func init() {
	Cmd.Flags().IntVarP(&limit, "limit", "n", ledger.DefaultLimit, "maximum number of records")
	Cmd.Flags().StringVar(&sessionID, "session", "", "only records for this session")
}
