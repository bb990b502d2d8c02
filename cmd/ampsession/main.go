package main

import (
	"os"

	"ampsession/cmd/ampsession/approvals"
	"ampsession/cmd/ampsession/chat"
	"ampsession/cmd/ampsession/cmdutil"
	"ampsession/cmd/ampsession/profiles"
	"ampsession/cmd/ampsession/servefake"
	"ampsession/cmd/ampsession/sessions"
	"ampsession/internal/logger"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ampsession",
		Short:         "Client for remote Amplifier agent sessions",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdutil.LoadConfig()
			if err != nil {
				return err
			}
			logger.Init(cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}
	cmdutil.AddFlags(rootCmd)

	rootCmd.AddCommand(chat.Cmd)
	rootCmd.AddCommand(sessions.Cmd)
	rootCmd.AddCommand(approvals.Cmd)
	rootCmd.AddCommand(profiles.Cmd)
	rootCmd.AddCommand(servefake.Cmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
