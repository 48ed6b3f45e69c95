// Command chatsock-client keeps a chat service connection open and offers an
// interactive shell to drive it.
//
// Usage:
//
//	chatsock-client [flags]
//
// Flags:
//
//	-config string         Configuration file path
//	-url string            Chat service URL (default "wss://chat.example.org")
//	-username string       Account username
//	-password string       Account password
//	-ca-cert string        PEM file with additional trusted roots
//	-state-dir string      Directory for aggregated stats (default ".chatsock")
//	-protocol-log string   Protocol event log file
//	-metrics-addr string   Serve Prometheus metrics on this address
//	-log-level string      Log level: debug, info, warn, error (default "info")
//	-stories               Receive stories on the authenticated channel (default true)
//	-interactive           Enable interactive command mode
//
// Examples:
//
//	# Connect anonymously and explore with the shell
//	chatsock-client -url wss://chat.example.org -interactive
//
//	# Connect an account and record a protocol log
//	chatsock-client -username alice.1 -password secret -protocol-log client.clog
//
//	# Expose metrics
//	chatsock-client -config client.yaml -metrics-addr :9090
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatsock/chatsock-go/cmd/chatsock-client/interactive"
	"github.com/chatsock/chatsock-go/pkg/config"
	"github.com/chatsock/chatsock-go/pkg/log"
	"github.com/chatsock/chatsock-go/pkg/persistence"
	"github.com/chatsock/chatsock-go/pkg/service"
	"github.com/chatsock/chatsock-go/pkg/transport"
)

// Flags holds the command line flags.
type Flags struct {
	ConfigFile  string
	URL         string
	Username    string
	Password    string
	CACert      string
	StateDir    string
	ProtocolLog string
	MetricsAddr string
	LogLevel    string
	Stories     bool
	Interactive bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&flags.URL, "url", config.DefaultURL, "Chat service URL")
	flag.StringVar(&flags.Username, "username", "", "Account username")
	flag.StringVar(&flags.Password, "password", "", "Account password")
	flag.StringVar(&flags.CACert, "ca-cert", "", "PEM file with additional trusted roots")
	flag.StringVar(&flags.StateDir, "state-dir", config.DefaultStateDir, "Directory for aggregated stats")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "Protocol event log file")
	flag.StringVar(&flags.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	flag.StringVar(&flags.LogLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	flag.BoolVar(&flags.Stories, "stories", true, "Receive stories on the authenticated channel")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Enable interactive command mode")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig(flags, setFlags())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var shell *interactive.Shell
	var out io.Writer = os.Stderr
	if flags.Interactive {
		shell, err = interactive.New(interactive.Config{
			Username: cfg.Username,
			Password: cfg.Password,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create shell: %v\n", err)
			os.Exit(1)
		}
		// Log through readline so output does not clobber the prompt.
		out = shell.Stdout()
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("chat socket client", "url", cfg.URL, "authenticated", cfg.HasCredentials())

	dialer, err := newDialer(cfg, logger)
	if err != nil {
		logger.Error("failed to create dialer", "error", err)
		os.Exit(1)
	}

	protocolLog, closeLog, err := openProtocolLog(cfg.ProtocolLog, logger, level)
	if err != nil {
		logger.Error("failed to open protocol log", "error", err)
		os.Exit(1)
	}
	defer closeLog()

	store := persistence.NewStatsStore(cfg.StateDir, logger)

	m, err := service.NewSocketManager(managerConfig(cfg, dialer, store, protocolLog, logger))
	if err != nil {
		logger.Error("failed to create socket manager", "error", err)
		os.Exit(1)
	}
	m.OnEvent(func(ev service.Event) { handleEvent(logger, ev) })
	m.RegisterRequestHandler(&service.RequestHandlerFuncs{
		OnRequest: func(req *transport.IncomingRequest) error {
			logger.Info("inbound request", "type", req.Type, "size", len(req.Body))
			return req.Respond(http.StatusOK)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = serveMetrics(cfg.MetricsAddr, logger)
	}

	if cfg.HasCredentials() {
		creds := transport.Credentials{Username: cfg.Username, Password: cfg.Password}
		go func() {
			if err := authenticateWithRetry(ctx, m, creds, connectBackoff(cfg), logger); err != nil &&
				!errors.Is(err, context.Canceled) {
				logger.Error("authentication failed", "error", err)
			}
		}()
	}

	if shell != nil {
		shell.Attach(m)
		go shell.Run(ctx, cancel)
	}

	// Wait for shutdown signal or context cancellation
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig)
	case <-ctx.Done():
		// Context was cancelled (e.g., by interactive quit command)
	}

	fmt.Fprintln(out, "Shutting down...")
	cancel()

	if err := m.Close(); err != nil {
		logger.Warn("failed to close socket manager", "error", err)
	}

	if metricsServer != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		_ = metricsServer.Shutdown(shutdownCtx)
		stop()
	}

	fmt.Fprintln(out, "Goodbye!")
}

// setFlags returns the names of the flags set on the command line.
func setFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// loadConfig reads the configuration file, if any, and applies the flags
// that were set explicitly on top of it.
func loadConfig(f Flags, set map[string]bool) (*config.ClientConfig, error) {
	cfg := config.Default()
	if f.ConfigFile != "" {
		loaded, err := config.Load(f.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	override := func(name string, dst *string, value string) {
		if set[name] || (f.ConfigFile == "" && value != "") {
			*dst = value
		}
	}
	override("url", &cfg.URL, f.URL)
	override("username", &cfg.Username, f.Username)
	override("password", &cfg.Password, f.Password)
	override("ca-cert", &cfg.CACert, f.CACert)
	override("state-dir", &cfg.StateDir, f.StateDir)
	override("protocol-log", &cfg.ProtocolLog, f.ProtocolLog)
	override("metrics-addr", &cfg.MetricsAddr, f.MetricsAddr)
	override("log-level", &cfg.LogLevel, f.LogLevel)
	if set["stories"] || f.ConfigFile == "" {
		cfg.ReceiveStories = f.Stories
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &config.LoadError{File: f.ConfigFile, Message: "invalid configuration", Cause: err}
	}
	return cfg, nil
}

func newDialer(cfg *config.ClientConfig, logger *slog.Logger) (*transport.WebSocketDialer, error) {
	dialerConfig := transport.WebSocketDialerConfig{
		URL:            cfg.URL,
		UserAgent:      cfg.UserAgent,
		ConnectTimeout: cfg.ConnectTimeout.D(),
		Logger:         logger,
	}
	if cfg.CACert != "" {
		pem, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read ca cert: %w", err)
		}
		dialerConfig.TLS = &transport.TLSConfig{CertificateAuthority: pem}
	}
	return transport.NewWebSocketDialer(dialerConfig)
}

// openProtocolLog opens the protocol event log. At debug level events are
// also written to logger.
func openProtocolLog(path string, logger *slog.Logger, level slog.Level) (log.Logger, func(), error) {
	var tee log.Tee

	if path != "" {
		fl, err := log.NewFileLogger(path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("writing protocol log", "path", path)
		tee = append(tee, fl)
	}
	if level <= slog.LevelDebug {
		tee = append(tee, log.NewSlogAdapter(logger))
	}

	closeFn := func() {
		if err := tee.Close(); err != nil {
			logger.Warn("failed to close protocol log", "error", err)
		}
	}
	if len(tee) == 0 {
		return nil, closeFn, nil
	}
	return tee, closeFn, nil
}

func managerConfig(cfg *config.ClientConfig, dialer *transport.WebSocketDialer, store *persistence.StatsStore,
	protocolLog log.Logger, logger *slog.Logger) service.ManagerConfig {
	mc := service.DefaultManagerConfig()
	mc.Dialer = dialer
	mc.KeepAlive.Path = cfg.KeepAlive.Path
	mc.KeepAlive.Interval = cfg.KeepAlive.Interval.D()
	mc.KeepAlive.Timeout = cfg.KeepAlive.Timeout.D()
	mc.KeepAlive.StaleThreshold = cfg.KeepAlive.StaleThreshold.D()
	mc.Backoff.Jitter = cfg.Backoff.Jitter.D()
	mc.UnauthenticatedRotation = cfg.UnauthenticatedRotation.D()
	mc.ReceiveStories = cfg.ReceiveStories
	mc.Languages = cfg.Languages
	mc.Stats = store
	mc.Logger = logger
	mc.ProtocolLogger = protocolLog
	return mc
}

func serveMetrics(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

func handleEvent(logger *slog.Logger, ev service.Event) {
	switch ev.Type {
	case service.EventStatusChange:
		logger.Info("[EVENT] authenticated socket", "state", ev.Status)
	case service.EventAuthError:
		logger.Warn("[EVENT] credentials rejected", "error", ev.Error)
	case service.EventAppExpired:
		logger.Warn("[EVENT] client version expired", "error", ev.Error)
	case service.EventConnectedElsewhere:
		logger.Warn("[EVENT] account connected elsewhere")
	case service.EventServerAlerts:
		for _, alert := range ev.Alerts {
			logger.Info("[EVENT] server alert", "alert", alert)
		}
	case service.EventFirstEnvelope:
		logger.Info("[EVENT] first envelope received", "type", ev.Request.Type)
	case service.EventOnline, service.EventOffline:
		logger.Info("[EVENT] network", "event", ev.Type)
	}
}
