// Package interactive provides the interactive command-line interface
// for chatsock-client.
package interactive

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/chatsock/chatsock-go/pkg/connection"
	"github.com/chatsock/chatsock-go/pkg/service"
	"github.com/chatsock/chatsock-go/pkg/transport"
)

// commandTimeout bounds a single network command.
const commandTimeout = 30 * time.Second

// Manager is the part of service.SocketManager the shell drives.
type Manager interface {
	Status() service.SocketStatuses
	IsOnline() (online, known bool)
	Check(ctx context.Context) error
	Fetch(ctx context.Context, rawURL string, req *service.FetchRequest) (*transport.Response, error)
	Reconnect(ctx context.Context) error
	OnNavigatorOnline(ctx context.Context) error
	OnNavigatorOffline(ctx context.Context) error
	Logout()
	SetReceiveStories(ctx context.Context, receive bool) error
	Stats() *service.StatsRecorder
}

// Config provides the credentials used by "fetch -auth".
type Config struct {
	Username string
	Password string
}

// Shell handles interactive mode for chatsock-client.
type Shell struct {
	mgr    Manager
	config Config
	rl     *readline.Instance
	out    io.Writer
}

// New creates a shell. Attach a manager before calling Run.
func New(cfg Config) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "chat> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Shell{config: cfg, rl: rl, out: rl.Stdout()}, nil
}

// Attach sets the manager commands operate on.
func (s *Shell) Attach(mgr Manager) {
	s.mgr = mgr
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if !s.execute(ctx, line) {
			cancel()
			return
		}
	}
}

// execute runs one command line. It returns false when the shell should
// exit.
func (s *Shell) execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "status", "s":
		s.cmdStatus()

	case "check":
		s.withTimeout(ctx, func(ctx context.Context) error { return s.mgr.Check(ctx) }, "Check passed")

	case "fetch", "f":
		s.cmdFetch(ctx, args)

	case "reconnect":
		s.withTimeout(ctx, s.mgr.Reconnect, "Reconnected")

	case "online":
		s.withTimeout(ctx, s.mgr.OnNavigatorOnline, "Network marked online")

	case "offline":
		s.withTimeout(ctx, s.mgr.OnNavigatorOffline, "Network marked offline")

	case "logout":
		s.mgr.Logout()
		fmt.Fprintln(s.out, "Logged out")

	case "stories":
		s.cmdStories(ctx, args)

	case "stats":
		s.cmdStats()

	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return false

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *Shell) withTimeout(ctx context.Context, fn func(context.Context) error, success string) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, success)
}

func (s *Shell) cmdStatus() {
	st := s.mgr.Status()
	fmt.Fprintln(s.out, "\nSocket Status:")
	fmt.Fprintln(s.out, "-------------------------------------------")
	printChannel(s.out, "authenticated", st.Authenticated)
	printChannel(s.out, "unauthenticated", st.Unauthenticated)

	network := "unknown"
	if online, known := s.mgr.IsOnline(); known {
		network = "offline"
		if online {
			network = "online"
		}
	}
	fmt.Fprintf(s.out, "  %-16s %s\n", "network", network)
	fmt.Fprintln(s.out)
}

func printChannel(w io.Writer, name string, st connection.Status) {
	if st.LastConnectedAt.IsZero() {
		fmt.Fprintf(w, "  %-16s %s\n", name, st.State)
		return
	}
	fmt.Fprintf(w, "  %-16s %s (last connected %s ago)\n", name, st.State,
		time.Since(st.LastConnectedAt).Round(time.Second))
}

func (s *Shell) cmdFetch(ctx context.Context, args []string) {
	auth := false
	if len(args) > 0 && args[0] == "-auth" {
		auth = true
		args = args[1:]
	}
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: fetch [-auth] <path>")
		return
	}

	req := &service.FetchRequest{Header: http.Header{}}
	if auth {
		if s.config.Username == "" {
			fmt.Fprintln(s.out, "No credentials configured")
			return
		}
		token := base64.StdEncoding.EncodeToString([]byte(s.config.Username + ":" + s.config.Password))
		req.Header.Set("Authorization", "Basic "+token)
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.mgr.Fetch(ctx, args[0], req)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(s.out, "%d %s (%s)\n", resp.Status, resp.Message, time.Since(start).Round(time.Millisecond))
	if len(resp.Body) > 0 {
		fmt.Fprintln(s.out, string(resp.Body))
	}
}

func (s *Shell) cmdStories(ctx context.Context, args []string) {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		fmt.Fprintln(s.out, "Usage: stories on|off")
		return
	}
	receive := args[0] == "on"
	s.withTimeout(ctx, func(ctx context.Context) error {
		return s.mgr.SetReceiveStories(ctx, receive)
	}, "Stories "+args[0])
}

func (s *Shell) cmdStats() {
	stats := s.mgr.Stats().Pending()
	fmt.Fprintln(s.out, "\nPending Stats:")
	fmt.Fprintln(s.out, "-------------------------------------------")
	fmt.Fprintf(s.out, "  Connection failures:    %d\n", stats.ConnectionFailures)
	fmt.Fprintf(s.out, "  Requests compared:      %d\n", stats.RequestsCompared)
	fmt.Fprintf(s.out, "  IP version mismatches:  %d\n", stats.IPVersionMismatches)
	fmt.Fprintf(s.out, "  Healthcheck failures:   %d\n", stats.HealthcheckFailures)
	fmt.Fprintf(s.out, "  Healthcheck bad status: %d\n", stats.HealthcheckBadStatus)
	fmt.Fprintln(s.out)
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Chat Socket Commands:
  Connection:
    status             - Show channel states
    check              - Probe the open channels
    reconnect          - Reconnect the authenticated channel now
    logout             - Forget credentials and close the authenticated channel

  Network:
    online             - Report the network as reachable
    offline            - Report the network as unreachable

  Requests:
    fetch [-auth] <path> - Send a GET over the anonymous (or authenticated) channel
    stories on|off     - Toggle story delivery
    stats              - Show pending connection stats

  Other:
    help               - Show this help
    quit               - Exit`)
}
