package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ampsession/cmd/ampsession/cmdutil"
	"ampsession/internal/api"
	"ampsession/internal/approval"
	"ampsession/internal/config"
	"ampsession/internal/session"
	"ampsession/internal/stream"
	"ampsession/internal/trace"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	profile     string
	model       string
	contextFile string
	transport   string
	noLedger    bool
)

var Cmd = &cobra.Command{
	Use:   "chat",
	Short: "Start a session and chat with the remote agent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := cmdutil.LoadConfig()
		if err != nil {
			return err
		}
		applyFlags(cfg)

		shutdown, err := trace.Init(ctx, trace.Config{
			Endpoint: cfg.Trace.Endpoint,
			URLPath:  cfg.Trace.URLPath,
			APIKey:   cfg.Trace.APIKey,
			Secure:   cfg.Trace.Secure,
		})
		if err != nil {
			return fmt.Errorf("initializing tracing: %w", err)
		}
		defer shutdown(context.Background())

		startCfg, err := startConfig(cfg)
		if err != nil {
			return err
		}

		client := cmdutil.NewClient(cfg)
		dialer, err := stream.NewDialer(cfg.Server.Transport, cfg.Server.BaseURL)
		if err != nil {
			return err
		}
		conn := stream.New(dialer,
			stream.WithMaxAttempts(cfg.Reconnect.MaxAttempts),
			stream.WithBackoff(cfg.Reconnect.BaseDelay.Duration, cfg.Reconnect.MaxDelay.Duration),
		)

		out := newPrinter(cmd.OutOrStdout())
		interactive := term.IsTerminal(int(os.Stdin.Fd()))
		approvals := make(chan approval.Request, 1)
		turns := make(chan struct{}, 1)
		fatal := make(chan error, 1)

		coordOpts := []approval.Option{
			approval.WithDefaults(cfg.Approval.DefaultTimeout.Duration, cfg.Approval.DefaultDecision),
			approval.WithNotifier(approval.NotifyFuncs{
				Pending: func(req approval.Request) {
					offer(approvals, req)
					out.approvalPending(req, interactive)
				},
				Resolved: out.approvalResolved,
			}),
		}
		if !noLedger {
			l, err := cmdutil.OpenLedger(cfg)
			if err != nil {
				slog.Warn("approval ledger unavailable", "error", err)
			} else {
				defer l.Close()
				coordOpts = append(coordOpts, approval.WithRecorder(l))
			}
		}
		coord := approval.New(client, coordOpts...)

		ctrl := session.New(client, conn, coord, session.Callbacks{
			Events:      out.handlers(func() { offer(turns, struct{}{}) }),
			OnConnected: func() { slog.Debug("stream connected") },
			OnReconnecting: func(attempt int, delay time.Duration) {
				out.line("reconnecting (attempt %d) in %s", attempt, delay)
			},
			OnError: func(err error) { offer(fatal, err) },
			OnSessionRecreated: func(oldID, newID string) {
				out.line("session %s was lost; continuing in %s", oldID, newID)
			},
		})

		id, err := ctrl.CreateAndStart(ctx, startCfg)
		if err != nil {
			return err
		}
		out.line("session %s (%s). /status, /quit", id, startCfg.Profile)

		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := ctrl.Stop(stopCtx); err != nil {
				slog.Warn("stopping session", "session_id", id, "error", err)
			}
		}()

		l := &loop{
			ctrl:        ctrl,
			out:         out,
			interactive: interactive,
			lines:       readLines(ctx, os.Stdin),
			approvals:   approvals,
			turns:       turns,
			fatal:       fatal,
		}
		return l.run(ctx)
	},
}

func init() {
	Cmd.Flags().StringVarP(&profile, "profile", "p", "", "session profile")
	Cmd.Flags().StringVarP(&model, "model", "m", "", "model override")
	Cmd.Flags().StringVar(&contextFile, "context", "", "workspace context file (YAML or JSON)")
	Cmd.Flags().StringVarP(&transport, "transport", "t", "", "event transport: sse or websocket")
	Cmd.Flags().BoolVar(&noLedger, "no-ledger", false, "do not record approvals locally")
}

func applyFlags(cfg *config.Config) {
	if profile != "" {
		cfg.Session.Profile = profile
	}
	if model != "" {
		cfg.Session.Model = model
	}
	if contextFile != "" {
		cfg.Session.ContextFile = contextFile
	}
	if transport != "" {
		cfg.Server.Transport = transport
	}
}

func startConfig(cfg *config.Config) (session.StartConfig, error) {
	sc := session.StartConfig{
		Profile: cfg.Session.Profile,
		Model:   cfg.Session.Model,
		APIKey:  cfg.Session.AnthropicAPIKey,
	}
	switch {
	case cfg.Session.ContextFile != "":
		wc, err := config.LoadWorkspaceContext(cfg.Session.ContextFile)
		if err != nil {
			return sc, fmt.Errorf("loading workspace context: %w", err)
		}
		if wc.WorkspaceRoot == "" {
			wc.WorkspaceRoot = cfg.Session.WorkspaceRoot
		}
		sc.Context = wc
	case cfg.Session.WorkspaceRoot != "":
		sc.Context = &api.WorkspaceContext{WorkspaceRoot: cfg.Session.WorkspaceRoot}
	}
	return sc, nil
}

// offer sends v without blocking, replacing a value nobody consumed yet.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
