package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/flow/client"
	"github.com/meikuraledutech/flow/internal/applog"
	"github.com/meikuraledutech/flow/internal/config"
)

type globals struct {
	cfg      *config.Config
	apiURL   string
	tenantID string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "flowctl",
		Short:         "Validate and sync automation flows",
		Long:          `flowctl checks flow files (JSON or YAML) against the graph rules and pushes or pulls them through the automations API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if g.verbose {
				level = "debug"
			}
			logger, err := applog.Build(applog.Options{
				Service: "flowctl",
				Level:   level,
				JSON:    cfg.LogFormat == "json",
				Out:     cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			logger.Install()
			if g.apiURL == "" {
				g.apiURL = cfg.API.BaseURL
			}
			if g.tenantID == "" {
				g.tenantID = cfg.API.TenantID
			}
			g.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&g.apiURL, "api", "", "automations API base URL (default API_BASE_URL)")
	root.PersistentFlags().StringVar(&g.tenantID, "tenant", "", "tenant id (default TENANT_ID)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newValidateCmd(), newPushCmd(g), newPullCmd(g))
	return root
}

func (g *globals) client() (*client.Client, error) {
	if g.tenantID == "" {
		return nil, fmt.Errorf("tenant id is required (--tenant or TENANT_ID)")
	}
	return client.New(g.apiURL, g.tenantID), nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
