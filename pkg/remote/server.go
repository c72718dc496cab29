package remote

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/impterm/impterm-go/pkg/version"
)

// DefaultPort is the default remote-management port.
const DefaultPort = 8450

// DefaultIdleTimeout closes connections that send nothing for this long.
const DefaultIdleTimeout = 2 * time.Minute

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address to listen on, e.g. ":8450". Defaults to DefaultPort.
	Address string

	// TLS enables TLS when set.
	TLS *tls.Config

	// MaxMessageSize bounds request frames. Defaults to DefaultMaxMessageSize.
	MaxMessageSize uint32

	// IdleTimeout bounds the wait for the next request. Defaults to
	// DefaultIdleTimeout.
	IdleTimeout time.Duration

	// Handler answers decoded requests. Required.
	Handler Handler

	Logger *slog.Logger

	OnConnect    func(conn ConnInfo)
	OnDisconnect func(conn ConnInfo)
	OnError      func(conn ConnInfo, err error)
}

// Server accepts remote-management connections and answers one response per
// request, in order.
type Server struct {
	config   ServerConfig
	logger   *slog.Logger
	listener net.Listener

	conns   map[*serverConn]struct{}
	connsMu sync.RWMutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a Server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Handler == nil {
		return nil, errors.New("remote: Handler is required")
	}
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = DefaultIdleTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		config: config,
		logger: logger,
		conns:  make(map[*serverConn]struct{}),
	}, nil
}

// Start listens and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	var listener net.Listener
	var err error
	if s.config.TLS != nil {
		listener, err = tls.Listen("tcp", s.config.Address, withALPN(s.config.TLS))
	} else {
		listener, err = net.Listen("tcp", s.config.Address)
	}
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.listener = listener
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("remote server listening", "addr", listener.Addr().String(), "tls", s.config.TLS != nil)
	return nil
}

// Stop closes the listener and all connections, then waits for handlers.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.cancel()
	s.listener.Close()

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	return nil
}

// Run starts the server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

// Addr returns the listen address, or nil while the server is not running.
func (s *Server) Addr() net.Addr {
	if !s.running.Load() {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount returns the number of open connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.running.Load() {
				s.reportError(ConnInfo{}, fmt.Errorf("accept error: %w", err))
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	sc := &serverConn{
		conn:   conn,
		framer: NewFramer(conn, s.config.MaxMessageSize),
		info: ConnInfo{
			ID:         uuid.New().String(),
			RemoteAddr: conn.RemoteAddr().String(),
		},
	}

	s.connsMu.Lock()
	if !s.running.Load() {
		s.connsMu.Unlock()
		conn.Close()
		return
	}
	s.conns[sc] = struct{}{}
	s.connsMu.Unlock()

	s.logger.Debug("remote connection opened", "conn_id", sc.info.ID, "remote", sc.info.RemoteAddr)
	if s.config.OnConnect != nil {
		s.config.OnConnect(sc.info)
	}

	s.serve(sc)

	s.connsMu.Lock()
	delete(s.conns, sc)
	s.connsMu.Unlock()
	sc.close()

	s.logger.Debug("remote connection closed", "conn_id", sc.info.ID)
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sc.info)
	}
}

// serve reads requests until the peer hangs up, the idle timeout expires,
// or the server stops.
func (s *Server) serve(sc *serverConn) {
	for {
		if s.ctx.Err() != nil {
			return
		}
		sc.conn.SetReadDeadline(time.Now().Add(s.config.IdleTimeout))

		data, err := sc.framer.ReadFrame()
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) && s.running.Load() {
				s.reportError(sc.info, err)
			}
			return
		}

		resp := s.dispatch(sc.info, data)
		out, err := EncodeResponse(resp)
		if err != nil {
			s.reportError(sc.info, fmt.Errorf("encode response: %w", err))
			return
		}
		if err := sc.framer.WriteFrame(out); err != nil {
			s.reportError(sc.info, err)
			return
		}
	}
}

func (s *Server) dispatch(info ConnInfo, data []byte) *Response {
	req, err := DecodeRequest(data)
	if err != nil {
		s.logger.Warn("invalid remote request", "conn_id", info.ID, "error", err)
		return &Response{MessageID: PeekMessageID(data), Status: StatusInvalidMessage}
	}
	return s.config.Handler.HandleRequest(s.ctx, info, req)
}

func (s *Server) reportError(info ConnInfo, err error) {
	s.logger.Warn("remote connection error", "conn_id", info.ID, "error", err)
	if s.config.OnError != nil {
		s.config.OnError(info, err)
	}
}

type serverConn struct {
	conn      net.Conn
	framer    *Framer
	info      ConnInfo
	closeOnce sync.Once
}

func (c *serverConn) close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}

// withALPN returns a copy of conf advertising the supported protocol
// versions, unless conf already names its own.
func withALPN(conf *tls.Config) *tls.Config {
	if len(conf.NextProtos) > 0 {
		return conf
	}
	c := conf.Clone()
	c.NextProtos = version.SupportedALPNProtocols()
	return c
}
