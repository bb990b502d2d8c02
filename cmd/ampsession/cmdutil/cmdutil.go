// Package cmdutil holds the flags and setup shared by the ampsession
// subcommands.
package cmdutil

import (
	"fmt"
	"time"

	"ampsession/internal/api"
	"ampsession/internal/config"
	"ampsession/internal/ledger"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	configPath string
	serverURL  string
)

// AddFlags registers the persistent flags on the root command.
func AddFlags(root *cobra.Command) {
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.Path()+")")
	root.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "override server base URL")
}

// LoadConfig loads the config file and applies flag overrides.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if serverURL != "" {
		cfg.Server.BaseURL = serverURL
	}
	return cfg, nil
}

func NewClient(cfg *config.Config) *api.Client {
	return api.NewClient(cfg.Server.BaseURL)
}

func OpenLedger(cfg *config.Config) (*ledger.Ledger, error) {
	l, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	return l, nil
}

// Ago renders t relative to now, e.g. "3 minutes ago".
func Ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
