// console is the terminal front-end for placing simulated calls.
//
// By default it runs the call service in-process. With --server it talks
// to a running cmd/api over HTTP instead.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/acme/agent-ivr/internal/app"
	"github.com/acme/agent-ivr/internal/config"
	"github.com/acme/agent-ivr/internal/console"
	"github.com/acme/agent-ivr/internal/telephony/httpclient"
	"github.com/acme/agent-ivr/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, serverURL, logOutput string
	var timeout time.Duration

	flagSet := pflag.NewFlagSet("console", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to configuration file (defaults are used when empty)")
	flagSet.StringVar(&serverURL, "server", "", "base URL of a running API server, e.g. http://localhost:8080")
	flagSet.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP timeout when --server is set")
	flagSet.StringVar(&logOutput, "log-output", "agent-ivr-console.log", "file receiving log output")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	// The console is a single local session; remote infrastructure is
	// only used by the API server.
	cfg.Guard.Backend = config.GuardBackendLocal
	cfg.Kafka.Enabled = false

	lg, err := logger.NewToFile(logOutput)
	if err != nil {
		return err
	}

	var opts []app.Option
	if serverURL != "" {
		opts = append(opts, app.WithProvider(httpclient.New(serverURL, timeout)))
	}

	container, err := app.New(ctx, cfg, lg, opts...)
	if err != nil {
		return err
	}
	defer container.Close(context.Background())

	s := container.Sessions().Create()
	model := console.NewModel(ctx, s.Controller, s.Notifications, cfg.Call.DefaultCountryCode)

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
