// File: internal/cli/root.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Root command and shared runtime state for the hioload-page binary.

package cli

import (
	"fmt"

	"github.com/momentics/hioload-page/control"
	"github.com/momentics/hioload-page/internal/logging"
	"github.com/momentics/hioload-page/page"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags and the state they resolve to.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Listen     string

	cfg     *control.Config
	log     *logging.Logger
	store   *control.ConfigStore
	metrics *control.MetricsRegistry
	probes  *control.DebugProbes
}

// NewRootCommand creates the root command for the hioload-page CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "hioload-page",
		Short:         "Reactor-backed TCP tasks on dedicated threads",
		Long:          "Runs echo servers and clients as page tasks: the first task to finish stops the rest.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (trace|debug|info|notice|warning|err|off)")
	cmd.PersistentFlags().StringVarP(&opts.Listen, "listen", "l", "", "address to serve on or dial (overrides config)")

	for _, sub := range platformCommands(opts) {
		cmd.AddCommand(sub)
	}
	cmd.AddCommand(newConfigCommand(opts))

	return cmd
}

// load resolves config file, flag overrides and logger.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg := control.DefaultConfig()
	if o.ConfigPath != "" {
		loaded, err := control.LoadConfig(o.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = o.LogLevel
	}
	if flags.Changed("listen") {
		cfg.Listen = o.Listen
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}

	o.cfg = cfg
	o.log = logging.New(cmd.ErrOrStderr(), level)
	o.metrics = control.NewMetricsRegistry()
	o.probes = control.NewDebugProbes()
	control.RegisterPlatformProbes(o.probes)
	o.store = control.NewConfigStore()
	o.store.OnReload(func() {
		listen, _ := o.store.Get("listen")
		o.log.Info().Any(`listen`, listen).Log(`config applied`)
	})
	o.store.Apply(cfg)
	o.probes.RegisterProbe("config", func() any { return o.store.GetSnapshot() })
	return nil
}

// reload re-reads the config file into the store. Fields that size
// already-open resources take effect on the next start.
func (o *RootOptions) reload() {
	if o.ConfigPath == "" {
		return
	}
	cfg, err := control.LoadConfig(o.ConfigPath)
	if err != nil {
		o.log.Warning().Str(`path`, o.ConfigPath).Err(err).Log(`config reload failed`)
		return
	}
	o.store.Apply(cfg)
}

func (o *RootOptions) newPage() *page.Page {
	p := page.New(
		page.WithLogger(o.log),
		page.WithConfig(o.cfg),
		page.WithMetrics(o.metrics),
	)
	p.RegisterProbes(o.probes)
	return p
}
