// Package terminal assembles the keypad access-control terminal.
//
// A Terminal wires the keypad worker, the PIN state machine, the door
// controller, the indicator panel, the persistent store and the remote write
// channel together, and runs them as one unit:
//
//	cfg, err := terminal.LoadConfig("/etc/impterm/impterm.yaml")
//	...
//	hw, err := terminal.NewPeriphHardware(cfg)
//	...
//	term, err := terminal.New(cfg, hw, terminal.WithLogger(logger))
//	...
//	err = term.Run(ctx)
package terminal

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/impterm/impterm-go/pkg/door"
	"github.com/impterm/impterm-go/pkg/indicator"
	"github.com/impterm/impterm-go/pkg/keypad"
	"github.com/impterm/impterm-go/pkg/log"
	"github.com/impterm/impterm-go/pkg/persistence"
	"github.com/impterm/impterm-go/pkg/pin"
	"github.com/impterm/impterm-go/pkg/remote"
	"github.com/impterm/impterm-go/pkg/version"
)

// ConsoleConnID is the connection ID recorded for remote writes issued from
// the local console.
const ConsoleConnID = "console"

// Option configures a Terminal.
type Option func(*Terminal)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Terminal) {
		t.logger = l
	}
}

// WithAccessLog sets the access event sink. Events are stamped with the
// session ID before they reach it.
func WithAccessLog(l log.Logger) Option {
	return func(t *Terminal) {
		t.accessSink = l
	}
}

// WithStore uses s instead of opening the configured backend. The caller
// keeps ownership of s.
func WithStore(s persistence.Store) Option {
	return func(t *Terminal) {
		t.store = s
	}
}

// WithTLS serves the remote channel over TLS.
func WithTLS(conf *tls.Config) Option {
	return func(t *Terminal) {
		t.tls = conf
	}
}

// Status is a point-in-time view of the terminal.
type Status struct {
	SessionID     string
	Door          door.State
	Remaining     time.Duration
	DroppedEdges  uint64
	RemoteAddr    string
	RemoteClients int
}

// Terminal is one access-control terminal.
type Terminal struct {
	cfg        Config
	hw         *Hardware
	logger     *slog.Logger
	accessSink log.Logger
	access     *log.Recorder
	tls        *tls.Config

	store     persistence.Store
	ownsStore bool
	creds     *persistence.Credentials

	panel   *indicator.Panel
	door    *door.Controller
	machine *pin.Machine
	queue   *keypad.Handoff
	worker  *keypad.Worker

	remote     *remote.Service
	server     *remote.Server
	advertiser *remote.Advertiser

	running atomic.Bool
}

// New assembles a terminal. Nothing is driven until Run.
func New(cfg Config, hw *Hardware, opts ...Option) (*Terminal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hw == nil || hw.Matrix == nil || hw.Edges == nil {
		return nil, errors.New("terminal: hardware requires a matrix and an edge source")
	}

	t := &Terminal{cfg: cfg, hw: hw}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}
	t.access = log.NewRecorder(t.accessSink, uuid.New().String())

	if t.store == nil {
		s, err := OpenStore(cfg.Store, t.logger.With("component", "store"))
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		t.store = s
		t.ownsStore = true
	}
	t.creds = persistence.NewCredentials(t.store, t.logger.With("component", "credentials"))

	if err := t.assemble(); err != nil {
		if t.ownsStore {
			t.store.Close()
		}
		return nil, err
	}
	return t, nil
}

func (t *Terminal) assemble() error {
	var err error

	t.panel, err = indicator.NewPanel(indicator.PanelConfig{
		OpenLED:   t.hw.OpenLED,
		ClosedLED: t.hw.ClosedLED,
		Lock:      t.hw.Lock,
		Status:    t.hw.Status,
		Logger:    t.logger.With("component", "indicator"),
	})
	if err != nil {
		return err
	}

	t.door, err = door.NewController(door.Config{
		Actuator:        t.panel,
		Durations:       t.creds,
		DefaultDuration: t.cfg.Defaults.DoorDuration,
		Logger:          t.logger.With("component", "door"),
		OnStateChange:   t.onDoorChange,
	})
	if err != nil {
		return err
	}

	t.machine, err = pin.NewMachine(pin.Config{
		Door:          t.door,
		Credentials:   t.creds,
		Feedback:      t.panel,
		SecurityDelay: t.cfg.SecurityDelay,
		Logger:        t.logger.With("component", "pin"),
		OnAttempt:     t.onAttempt,
	})
	if err != nil {
		return err
	}

	t.queue, err = keypad.NewHandoff(t.cfg.QueueCapacity)
	if err != nil {
		return err
	}
	scanner, err := keypad.NewScanner(t.hw.Matrix, t.cfg.Keypad, keypad.DefaultLayout)
	if err != nil {
		return err
	}
	t.worker, err = keypad.NewWorker(keypad.WorkerConfig{
		Queue:   t.queue,
		Scanner: scanner,
		Handler: keypad.KeyHandlerFunc(t.handleKey),
		Logger:  t.logger.With("component", "keypad"),
		OnKey:   t.onKey,
	})
	if err != nil {
		return err
	}

	t.remote, err = remote.NewService(remote.ServiceConfig{
		Door:      t.door,
		Store:     t.creds,
		Logger:    t.logger.With("component", "remote"),
		AccessLog: t.access,
	})
	if err != nil {
		return err
	}
	if t.cfg.Remote.Enabled {
		t.server, err = remote.NewServer(remote.ServerConfig{
			Address:     t.cfg.Remote.Listen,
			TLS:         t.tls,
			IdleTimeout: t.cfg.Remote.IdleTimeout,
			Handler:     t.remote,
			Logger:      t.logger.With("component", "remote"),
		})
		if err != nil {
			return err
		}
		if t.cfg.Remote.Advertise {
			t.advertiser = remote.NewAdvertiser(remote.AdvertiserConfig{Interface: t.cfg.Remote.Interface})
		}
	}
	return nil
}

// Run writes missing defaults, drives the panel to the closed state and runs
// every task until ctx is cancelled or one of them fails. The door is closed
// before Run returns.
func (t *Terminal) Run(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return errors.New("terminal: already running")
	}
	defer t.running.Store(false)
	defer t.panel.Wait()

	written, err := t.creds.EnsureDefaults(ctx, t.cfg.Defaults)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	if written {
		t.logger.Info("factory defaults written")
	}
	if err := t.panel.Reset(); err != nil {
		return fmt.Errorf("reset indicators: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return t.door.Run(gctx)
	})
	g.Go(func() error {
		return t.worker.Run(gctx)
	})
	g.Go(func() error {
		return t.hw.Edges.WatchRows(gctx, t.cfg.Keypad.Rows, t.onEdge)
	})

	if t.server != nil {
		if err := t.server.Start(gctx); err != nil {
			t.access.Log(t.errorEvent(log.SourceRemote, err, "start server"))
			cancel()
			g.Wait()
			return fmt.Errorf("start remote server: %w", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			return t.server.Stop()
		})
		t.advertise()
	}

	t.logger.Info("terminal running", "session", t.access.SessionID())
	err = g.Wait()
	if t.advertiser != nil {
		t.advertiser.Stop()
	}
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		t.access.Log(t.errorEvent(log.SourceSystem, err, "run"))
	}
	return err
}

// Close releases the store if the terminal opened it. It does not close the
// hardware.
func (t *Terminal) Close() error {
	if t.ownsStore {
		return t.store.Close()
	}
	return nil
}

func (t *Terminal) advertise() {
	if t.advertiser == nil {
		return
	}
	var port uint16
	if tcp, ok := t.server.Addr().(*net.TCPAddr); ok {
		port = uint16(tcp.Port)
	}
	err := t.advertiser.Advertise(remote.AdvertiseInfo{
		Instance: t.cfg.Remote.Instance,
		Port:     port,
		Version:  version.Current,
		TLS:      t.tls != nil,
	})
	if err != nil {
		t.logger.Warn("mDNS advertising failed", "error", err)
	}
}

// SessionID identifies this terminal instance in the access log.
func (t *Terminal) SessionID() string {
	return t.access.SessionID()
}

// Door returns the door controller.
func (t *Terminal) Door() *door.Controller {
	return t.door
}

// Credentials returns the credential records.
func (t *Terminal) Credentials() *persistence.Credentials {
	return t.creds
}

// Status returns a snapshot of the terminal.
func (t *Terminal) Status() Status {
	st := Status{
		SessionID:    t.access.SessionID(),
		Door:         t.door.State(),
		Remaining:    t.door.Remaining(),
		DroppedEdges: t.queue.Dropped(),
	}
	if t.server != nil {
		if addr := t.server.Addr(); addr != nil {
			st.RemoteAddr = addr.String()
		}
		st.RemoteClients = t.server.ConnectionCount()
	}
	return st
}

// SetDoorDuration stores a new auto-close duration. It applies from the
// next opening.
func (t *Terminal) SetDoorDuration(ctx context.Context, d time.Duration) error {
	if err := t.creds.SetDoorDuration(ctx, d); err != nil {
		return err
	}
	t.logger.Info("door duration updated", "duration", d)
	return nil
}

// RemoteWrite runs a remote access PIN write from the local console. It
// follows the same rules and leaves the same access record as a network
// request.
func (t *Terminal) RemoteWrite(ctx context.Context, p string) remote.Status {
	resp := t.remote.HandleRequest(ctx, remote.ConnInfo{ID: ConsoleConnID}, &remote.Request{
		MessageID: 1,
		Operation: remote.OpWrite,
		Attribute: remote.AttrAccessPIN,
		Payload:   []byte(p),
	})
	return resp.Status
}
