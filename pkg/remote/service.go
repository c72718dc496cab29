package remote

import (
	"context"
	"errors"
	"log/slog"

	"github.com/impterm/impterm-go/pkg/log"
	"github.com/impterm/impterm-go/pkg/pin"
)

// Gate reports whether remote writes are currently allowed.
type Gate interface {
	IsOpen() bool
}

// PINWriter stores a new access PIN.
type PINWriter interface {
	SetAccessPIN(ctx context.Context, p string) error
}

// ConnInfo identifies the connection a request arrived on.
type ConnInfo struct {
	ID         string
	RemoteAddr string
}

// Handler answers requests.
type Handler interface {
	HandleRequest(ctx context.Context, conn ConnInfo, req *Request) *Response
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Door  Gate
	Store PINWriter

	Logger *slog.Logger

	// AccessLog receives one event per request. Optional.
	AccessLog log.Logger
}

// Service implements the remote write operation.
type Service struct {
	door   Gate
	store  PINWriter
	logger *slog.Logger
	access log.Logger
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Door == nil || cfg.Store == nil {
		return nil, errors.New("remote: service requires door and store")
	}
	s := &Service{
		door:   cfg.Door,
		store:  cfg.Store,
		logger: cfg.Logger,
		access: cfg.AccessLog,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.access == nil {
		s.access = log.NoopLogger{}
	}
	return s, nil
}

// WriteAccessPIN overwrites the access PIN with value. The door must be open
// and value must be a valid PIN; otherwise ErrWriteNotPermitted or
// ErrUnsupported is returned and nothing is stored.
func (s *Service) WriteAccessPIN(ctx context.Context, value []byte) error {
	if !s.door.IsOpen() {
		return ErrWriteNotPermitted
	}
	p := string(value)
	if err := pin.Validate(p); err != nil {
		return ErrUnsupported
	}
	if err := s.store.SetAccessPIN(ctx, p); err != nil {
		return err
	}
	return nil
}

// HandleRequest implements Handler.
func (s *Service) HandleRequest(ctx context.Context, conn ConnInfo, req *Request) *Response {
	status := s.dispatch(ctx, req)

	s.logger.Info("remote request",
		"conn_id", conn.ID,
		"operation", req.Operation,
		"attribute", req.Attribute,
		"length", len(req.Payload),
		"status", status)
	s.access.Log(log.Event{
		Source:       log.SourceRemote,
		Category:     log.CategoryRemote,
		ConnectionID: conn.ID,
		RemoteAddr:   conn.RemoteAddr,
		Remote: &log.RemoteWriteEvent{
			Operation: req.Operation.String(),
			Attribute: uint16(req.Attribute),
			Length:    len(req.Payload),
			Status:    status.String(),
		},
	})

	return &Response{MessageID: req.MessageID, Status: status}
}

func (s *Service) dispatch(ctx context.Context, req *Request) Status {
	if req.Operation != OpWrite || req.Attribute != AttrAccessPIN {
		return StatusUnsupported
	}

	err := s.WriteAccessPIN(ctx, req.Payload)
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrWriteNotPermitted):
		return StatusWriteNotPermitted
	case errors.Is(err, ErrUnsupported):
		return StatusUnsupported
	default:
		s.logger.Error("storing remote PIN failed", "error", err)
		return StatusFailure
	}
}

var _ Handler = (*Service)(nil)
