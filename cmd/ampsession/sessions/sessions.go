package sessions

import (
	"fmt"
	"text/tabwriter"

	"ampsession/cmd/ampsession/cmdutil"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	statusFilter string
	limit        int
)

var Cmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and stop remote sessions",
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cmdutil.LoadConfig()
		if err != nil {
			return err
		}
		list, err := cmdutil.NewClient(cfg).ListSessions(cmd.Context(), statusFilter, limit)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SESSION\tSTATUS\tPROFILE\tCREATED")
		for _, s := range list.Sessions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.SessionID, s.Status, s.Profile, cmdutil.Ago(s.CreatedAt))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d sessions\n", len(list.Sessions), list.Total)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show a session's status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cmdutil.LoadConfig()
		if err != nil {
			return err
		}
		st, err := cmdutil.NewClient(cfg).SessionStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "session:       %s\n", st.SessionID)
		fmt.Fprintf(out, "status:        %s\n", st.Status)
		fmt.Fprintf(out, "profile:       %s\n", st.Profile)
		fmt.Fprintf(out, "created:       %s\n", cmdutil.Ago(st.CreatedAt))
		fmt.Fprintf(out, "last activity: %s\n", cmdutil.Ago(st.LastActivity))
		fmt.Fprintf(out, "messages:      %d\n", st.MessageCount)
		if st.TokenUsage != nil {
			fmt.Fprintf(out, "tokens:        %s in / %s out\n",
				humanize.Comma(int64(st.TokenUsage.InputTokens)), humanize.Comma(int64(st.TokenUsage.OutputTokens)))
		}
		if len(st.PendingApproval) > 0 && string(st.PendingApproval) != "null" {
			fmt.Fprintf(out, "pending:       %s\n", st.PendingApproval)
		}
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <session-id>",
	Short: "Stop a session and release its resources",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cmdutil.LoadConfig()
		if err != nil {
			return err
		}
		resp, err := cmdutil.NewClient(cfg).DeleteSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Status, resp.Message)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&statusFilter, "status", "", "only sessions with this status")
	listCmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of sessions")
	Cmd.AddCommand(listCmd, statusCmd, stopCmd)
}
