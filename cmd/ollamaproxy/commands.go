package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ollamaproxy/internal/chat"
	"ollamaproxy/internal/common/fsutil"
	"ollamaproxy/internal/config"
	"ollamaproxy/internal/httpapi"
	"ollamaproxy/internal/ollama"
	"ollamaproxy/pkg/types"
)

// defaultConfigPaths are tried in order when --config is not given.
var defaultConfigPaths = []string{"ollamaproxy.yaml", "~/.config/ollamaproxy/config.yaml"}

// errUnhealthy makes `health` exit non-zero without printing twice.
var errUnhealthy = errors.New("ollama server unhealthy")

type rootOptions struct {
	configPath  string
	dotenv      string
	addr        string
	baseURL     string
	model       string
	timeout     int
	logLevel    string
	logFormat   string
	logFile     string
	metricsAddr string
	cors        bool
	corsOrigins string
}

func newRootCmd() *cobra.Command { return newRootCmdWith(&rootOptions{}) }

// newRootCmdWith constructs the command tree with flags bound to opts.
func newRootCmdWith(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "ollamaproxy",
		Short:         "HTTP chat proxy in front of a local Ollama server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (.yaml/.yml/.json/.toml); defaults to ./ollamaproxy.yaml or ~/.config/ollamaproxy/config.yaml")
	pf.StringVar(&opts.dotenv, "env-file", ".env", "dotenv file loaded before reading OLLAMAPROXY_* variables")
	pf.StringVar(&opts.baseURL, "base-url", "", "Ollama base URL (default http://localhost:11434)")
	pf.StringVar(&opts.model, "model", "", "Model identifier sent upstream (default gemma3:4b)")
	pf.IntVar(&opts.timeout, "timeout", 0, "Upstream call timeout in seconds (0 = transport defaults)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: off|debug|info|warn|error")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: console|json")
	pf.StringVar(&opts.logFile, "log-file", "", "Write logs to this rotating file instead of stderr")

	serveFlags := func(c *cobra.Command) {
		c.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address, e.g. :8080")
		c.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Prometheus /metrics listen address (empty disables)")
		c.Flags().BoolVar(&opts.cors, "cors", false, "Enable CORS on the API")
		c.Flags().StringVar(&opts.corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins (default *)")
	}
	serveFlags(root)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP proxy (POST /chat, GET /healthz)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	serveFlags(serveCmd)

	var system string
	chatCmd := &cobra.Command{
		Use:     "chat MESSAGE...",
		Short:   "Send one message to the model and print the reply",
		Example: "  ollamaproxy chat --system \"You love jazz.\" Recommend an album",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeLog, err := buildService(cmd, opts)
			if err != nil {
				return err
			}
			defer closeLog()
			resp := svc.Chat(cmd.Context(), types.ChatRequest{Message: strings.Join(args, " "), SystemPrompt: system})
			printReply(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	chatCmd.Flags().StringVar(&system, "system", "", "System prompt placed before the message")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the Ollama server answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeLog, err := buildService(cmd, opts)
			if err != nil {
				return err
			}
			defer closeLog()
			hr := svc.HealthCheck(cmd.Context())
			printHealth(cmd.OutOrStdout(), hr)
			if hr.Status != types.HealthOK {
				return errUnhealthy
			}
			return nil
		},
	}

	var replSystem string
	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive chat: checks the server, then answers one line at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeLog, err := buildService(cmd, opts)
			if err != nil {
				return err
			}
			defer closeLog()
			system := defaultPersona
			if cmd.Flags().Changed("system") {
				system = replSystem
			}
			return runREPL(cmd.Context(), svc, cmd.InOrStdin(), cmd.OutOrStdout(), system)
		},
	}
	replCmd.Flags().StringVar(&replSystem, "system", "", "System prompt for every turn (default: music-lover persona; empty disables)")

	root.AddCommand(serveCmd, chatCmd, healthCmd, replCmd)
	return root
}

// resolveConfig applies defaults < file < env < flags.
func resolveConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	return resolveConfigFrom(cmd, opts, config.Default())
}

// resolveConfigFrom is resolveConfig over a custom base layer.
func resolveConfigFrom(cmd *cobra.Command, opts *rootOptions, base config.Config) (config.Config, error) {
	if opts.dotenv != "" {
		if err := config.LoadDotEnv(opts.dotenv); err != nil {
			return config.Config{}, err
		}
	}
	path := opts.configPath
	if path == "" {
		path = fsutil.FirstExisting(defaultConfigPaths...)
	}
	cfg, err := config.ResolveFrom(base, path, os.LookupEnv)
	if err != nil {
		return cfg, err
	}

	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	var fl config.Config
	if changed("addr") {
		fl.Addr = opts.addr
	}
	if changed("base-url") {
		fl.BaseURL = opts.baseURL
	}
	if changed("model") {
		fl.Model = opts.model
	}
	if changed("timeout") {
		fl.TimeoutSeconds = opts.timeout
	}
	if changed("log-level") {
		fl.LogLevel = opts.logLevel
	}
	if changed("log-format") {
		fl.LogFormat = opts.logFormat
	}
	if changed("log-file") {
		fl.LogFile = opts.logFile
	}
	if changed("metrics-addr") {
		fl.MetricsAddr = opts.metricsAddr
	}
	if changed("cors") {
		fl.CORSEnabled = opts.cors
	}
	if changed("cors-origins") {
		fl.CORSOrigins = config.SplitCSV(opts.corsOrigins)
	}
	cfg.Merge(fl)
	if changed("cors") && !opts.cors {
		cfg.CORSEnabled = false
	}
	return cfg, cfg.Validate()
}

func newClient(cfg config.Config) *ollama.Client {
	return ollama.New(ollama.Options{
		BaseURL: cfg.BaseURL,
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
}

// cliDefaults is the base layer for one-shot commands: quiet unless a config
// file, env or flag sets a level.
func cliDefaults() config.Config {
	cfg := config.Default()
	cfg.LogLevel = "warn"
	return cfg
}

func buildService(cmd *cobra.Command, opts *rootOptions) (*chat.Service, func(), error) {
	cfg, err := resolveConfigFrom(cmd, opts, cliDefaults())
	if err != nil {
		return nil, nil, err
	}
	logger, closer, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	closeLog := func() {
		if closer != nil {
			_ = closer.Close()
		}
	}
	return chat.NewService(newClient(cfg), cfg.Model, chat.WithLogger(logger)), closeLog, nil
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}
	logger, closer, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, logger)
}

// serve runs the API (and optional metrics) listener until ctx is done.
func serve(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	client := newClient(cfg)
	svc := chat.NewService(client, cfg.Model, chat.WithLogger(logger))

	httpapi.SetLogger(logger)
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	servers := []*http.Server{{Addr: cfg.Addr, Handler: httpapi.NewMux(svc)}}
	if cfg.MetricsAddr != "" {
		servers = append(servers, &http.Server{Addr: cfg.MetricsAddr, Handler: httpapi.NewMetricsMux()})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
		}(srv)
	}
	logger.Info().
		Str("addr", cfg.Addr).
		Str("metrics_addr", cfg.MetricsAddr).
		Str("upstream", client.BaseURL()).
		Str("model", cfg.Model).
		Msg("ollamaproxy listening")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	// Graceful shutdown: stop accepting, then abort in-flight upstream calls.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Str("addr", srv.Addr).Msg("graceful shutdown error")
		}
	}
	cancelBase()
	logger.Info().Msg("ollamaproxy stopped")
	return runErr
}

func printReply(w io.Writer, resp types.ChatResponse) {
	if strings.HasPrefix(resp.Response, "Error: ") {
		color.New(color.FgRed).Fprintln(w, resp.Response)
		return
	}
	fmt.Fprintln(w, resp.Response)
}

func printHealth(w io.Writer, hr types.HealthResponse) {
	c := color.New(color.FgGreen)
	if hr.Status != types.HealthOK {
		c = color.New(color.FgRed)
	}
	c.Fprintf(w, "%s: ", hr.Status)
	fmt.Fprintln(w, hr.Message)
}
