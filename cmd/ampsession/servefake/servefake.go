package servefake

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"ampsession/internal/gateway"

	"github.com/spf13/cobra"
)

var (
	addr      string
	keepalive time.Duration
	approvals time.Duration
)

var Cmd = &cobra.Command{
	Use:   "serve-fake",
	Short: "Run an in-memory session server that echoes prompts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := []gateway.Option{gateway.WithKeepalive(keepalive)}
		if approvals > 0 {
			opts = append(opts, gateway.WithApprovals(approvals))
		}
		srv := gateway.NewServer(opts...)
		slog.Info("starting fake session server", "addr", addr, "approval_timeout", approvals)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	Cmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:8765", "listen address")
	Cmd.Flags().DurationVar(&keepalive, "keepalive", 5*time.Second, "SSE ping interval")
	Cmd.Flags().DurationVar(&approvals, "approvals", 0, "ask for approval before every prompt, defaulting to Deny after this long")
}
