// Command impterm runs the keypad access-control terminal.
//
// Usage:
//
//	impterm [flags]
//
// Flags:
//
//	--config string      Configuration file path (YAML)
//	--store string       Store backend: memory, file, sqlite
//	--store-path string  Store file path
//	--log-level string   Log level: debug, info, warn, error
//	--access-log string  Append access events to this file
//	--listen string      Remote write listen address
//	--advertise          Advertise the remote channel over mDNS
//	--simulate           Use a simulated board instead of GPIO
//	--interactive        Start the interactive console (implies --simulate)
//
// Examples:
//
//	# Run on the board with the installed configuration
//	impterm --config /etc/impterm/impterm.yaml
//
//	# Try it out without hardware
//	impterm --interactive --store memory
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/impterm/impterm-go/cmd/impterm/interactive"
	"github.com/impterm/impterm-go/pkg/log"
	"github.com/impterm/impterm-go/pkg/terminal"
)

// flags holds command-line values that override the configuration file.
type flags struct {
	configPath  string
	store       string
	storePath   string
	logLevel    string
	accessLog   string
	listen      string
	advertise   bool
	simulate    bool
	interactive bool
}

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var f flags
	fs := newFlagSet(&f)
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := loadConfig(fs, &f)
	if err != nil {
		return err
	}
	level, err := terminal.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	var console *interactive.Console
	var logOut io.Writer = os.Stderr
	if f.interactive {
		f.simulate = true
		if console, err = interactive.New(); err != nil {
			return err
		}
		logOut = console.Stdout()
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	var hw *terminal.Hardware
	var sim *terminal.Simulation
	if f.simulate {
		hw, sim = terminal.NewSimulation(cfg)
		logger.Info("using simulated board")
	} else {
		if hw, err = terminal.NewPeriphHardware(cfg); err != nil {
			return err
		}
	}
	defer hw.Close()

	sinks := []log.Logger{log.NewSlogAdapter(logger)}
	if cfg.AccessLog != "" {
		fileLog, err := log.NewFileLogger(cfg.AccessLog)
		if err != nil {
			return fmt.Errorf("open access log: %w", err)
		}
		defer fileLog.Close()
		sinks = append(sinks, fileLog)
	}
	if console != nil {
		sinks = append(sinks, console)
	}

	opts := []terminal.Option{
		terminal.WithLogger(logger),
		terminal.WithAccessLog(log.NewMultiLogger(sinks...)),
	}
	if cfg.Remote.Enabled && cfg.Remote.TLSCert != "" {
		tlsConf, err := loadTLS(cfg.Remote)
		if err != nil {
			return err
		}
		opts = append(opts, terminal.WithTLS(tlsConf))
	}

	term, err := terminal.New(cfg, hw, opts...)
	if err != nil {
		return err
	}
	defer term.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if console != nil {
		console.Attach(term, sim)
		go console.Run(ctx, cancel)
	}

	logger.Info("starting terminal", "session", term.SessionID(), "store", cfg.Store.Backend)
	if err := term.Run(ctx); err != nil {
		return err
	}
	logger.Info("terminal stopped")
	return nil
}

func newFlagSet(f *flags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("impterm", pflag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "Configuration file path (YAML)")
	fs.StringVar(&f.store, "store", "", "Store backend: memory, file, sqlite")
	fs.StringVar(&f.storePath, "store-path", "", "Store file path")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&f.accessLog, "access-log", "", "Append access events to this file")
	fs.StringVar(&f.listen, "listen", "", "Remote write listen address (empty string with --listen= disables it)")
	fs.BoolVar(&f.advertise, "advertise", true, "Advertise the remote channel over mDNS")
	fs.BoolVar(&f.simulate, "simulate", false, "Use a simulated board instead of GPIO")
	fs.BoolVar(&f.interactive, "interactive", false, "Start the interactive console (implies --simulate)")
	return fs
}

// loadConfig reads the configuration file, if any, and applies the flags
// that were set explicitly.
func loadConfig(fs *pflag.FlagSet, f *flags) (terminal.Config, error) {
	cfg := terminal.DefaultConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = terminal.LoadConfig(f.configPath); err != nil {
			return cfg, err
		}
	}

	if fs.Changed("store") {
		cfg.Store.Backend = f.store
		if f.store == terminal.StoreMemory {
			cfg.Store.Path = ""
		}
	}
	if fs.Changed("store-path") {
		cfg.Store.Path = f.storePath
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fs.Changed("access-log") {
		cfg.AccessLog = f.accessLog
	}
	if fs.Changed("listen") {
		cfg.Remote.Listen = f.listen
		cfg.Remote.Enabled = f.listen != ""
	}
	if fs.Changed("advertise") {
		cfg.Remote.Advertise = f.advertise
	}
	return cfg, cfg.Validate()
}

func loadTLS(rc terminal.RemoteConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(rc.TLSCert, rc.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("load TLS key pair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	}, nil
}
