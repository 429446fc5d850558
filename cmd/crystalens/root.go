// ABOUTME: Root cobra command: loads layered config, sets up logging and metrics, and starts the terminal console.
// ABOUTME: Subcommands share the same wiring through cli; the optional web mirror runs alongside the TUI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/crystalens/config"
	"github.com/2389-research/crystalens/console"
	"github.com/2389-research/crystalens/logging"
	"github.com/2389-research/crystalens/metrics"
	"github.com/2389-research/crystalens/runapi"
	"github.com/2389-research/crystalens/runs"
	"github.com/2389-research/crystalens/stream"
	"github.com/2389-research/crystalens/tui"
	"github.com/2389-research/crystalens/web"
)

// cli carries state shared by every command.
type cli struct {
	out    io.Writer
	errOut io.Writer

	// flags
	configPath string
	httpBase   string
	wsBase     string
	logLevel   string
	logFormat  string
	webAddr    string

	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Recorder
	closers []func()

	// dialer is replaced in tests.
	dialer stream.Dialer
}

func newCLI(out, errOut io.Writer) *cli {
	return &cli{out: out, errOut: errOut, dialer: stream.NewWebSocketDialer()}
}

func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crystalens",
		Short: "Terminal console for the agentic analysis backend",
		Long: "crystalens submits prompts to the analysis backend, streams the agents' events " +
			"into a filterable feed, and lists the plots they produce.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd, cmd.Name() == "crystalens")
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.teardown()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd.Context())
		},
	}
	cmd.SetOut(c.out)
	cmd.SetErr(c.errOut)

	defaultHelp := cmd.HelpFunc()
	cmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if !cmd.HasParent() {
			printBanner(cmd.OutOrStdout(), version)
		}
		defaultHelp(cmd, args)
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/crystalens/config.yaml)")
	pf.StringVar(&c.httpBase, "http", "", "backend HTTP base URL (default "+runapi.DefaultHTTPBase+")")
	pf.StringVar(&c.wsBase, "ws", "", "backend WebSocket base URL (default: derived from --http)")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&c.logFormat, "log-format", "", "log format: text or json (default: text on a terminal)")
	pf.StringVar(&c.webAddr, "web", "", "also serve a browser mirror on this address (e.g. 127.0.0.1:2390)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRunCmd(c))
	cmd.AddCommand(newAttachCmd(c))
	cmd.AddCommand(newPlotsCmd(c))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the crystalens version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "crystalens %s\n", version)
		},
	}
}

// setup layers config (defaults, file, .env, env, flags) and builds the
// logger. The TUI logs to a file so records never draw over the screen.
func (c *cli) setup(cmd *cobra.Command, interactive bool) error {
	cfg, err := config.Load(config.LoadOptions{Path: c.configPath})
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("http") {
		cfg.API.HTTP = c.httpBase
		if !flags.Changed("ws") && cfg.API.WS != "" {
			// An explicit --http wins over a ws base from lower layers.
			cfg.API.WS = ""
		}
	}
	if flags.Changed("ws") {
		cfg.API.WS = c.wsBase
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = c.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = c.logFormat
	}
	if flags.Changed("web") {
		cfg.Web.Addr = c.webAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	opts := logging.Options{Level: level, Format: logging.Format(cfg.Log.Format)}

	sink := c.errOut
	if interactive {
		path := cfg.Log.File
		if path == "" {
			if path, err = config.DefaultLogPath(); err != nil {
				return err
			}
		}
		f, err := logging.OpenFile(path)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, func() { f.Close() })
		sink = f
		if opts.Format == logging.FormatAuto {
			opts.Format = logging.FormatJSON
		}
	}
	c.logger = logging.New(sink, opts)
	slog.SetDefault(c.logger)
	c.metrics = metrics.New()
	return nil
}

func (c *cli) teardown() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func (c *cli) client() (*runapi.Client, error) {
	return runapi.New(c.cfg.API.HTTP, c.cfg.WSBase())
}

func (c *cli) newSession() (*console.Session, error) {
	api, err := c.client()
	if err != nil {
		return nil, err
	}
	return console.New(api, c.dialer,
		console.WithLogger(logging.Subsystem(c.logger, "console")),
		console.WithMetrics(c.metrics)), nil
}

// startWeb runs the browser mirror in the background when configured.
func (c *cli) startWeb(ctx context.Context, session *console.Session) error {
	if c.cfg.Web.Addr == "" {
		return nil
	}
	srv, err := web.NewServer(web.ServerConfig{
		Addr:    c.cfg.Web.Addr,
		Session: session,
		Metrics: c.metrics,
		Logger:  logging.Subsystem(c.logger, "web"),
	})
	if err != nil {
		return err
	}
	go func() {
		if err := srv.Run(ctx); err != nil {
			c.logger.Error("web mirror stopped", "error", err)
		}
	}()
	return nil
}

func (c *cli) markdownRenderer() tui.MarkdownRenderer {
	style := strings.ToLower(strings.TrimSpace(c.cfg.UI.MarkdownStyle))
	if style == "none" || style == "off" {
		return tui.PlainRenderer{}
	}
	return tui.NewGlamourRenderer(style)
}

func (c *cli) runTUI(ctx context.Context) error {
	session, err := c.newSession()
	if err != nil {
		return err
	}
	defer session.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := c.startWeb(ctx, session); err != nil {
		return err
	}

	var filter runs.Category
	if c.cfg.UI.Filter != "" {
		if filter, err = runs.ParseCategory(c.cfg.UI.Filter); err != nil {
			return err
		}
	}
	model := tui.NewAppModel(ctx, session,
		tui.WithMarkdown(c.markdownRenderer()),
		tui.WithInitialFilter(filter))

	c.logger.Info("console started", "http", c.cfg.API.HTTP, "ws", c.cfg.WSBase())
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
		tea.WithOutput(c.out))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}
