package remote

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultConnectTimeout applies when the dial context has no deadline.
const DefaultConnectTimeout = 10 * time.Second

// Client is a connection to a terminal's remote-management server.
// Requests are serialized.
type Client struct {
	conn   net.Conn
	framer *Framer
	nextID atomic.Uint32
	mu     sync.Mutex
}

// Dial connects to address. A nil tlsConf dials plain TCP.
func Dial(ctx context.Context, address string, tlsConf *tls.Config) (*Client, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultConnectTimeout)
		defer cancel()
	}

	var conn net.Conn
	var err error
	if tlsConf != nil {
		d := &tls.Dialer{Config: withALPN(tlsConf)}
		conn, err = d.DialContext(ctx, "tcp", address)
	} else {
		d := &net.Dialer{}
		conn, err = d.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &Client{
		conn:   conn,
		framer: NewFramer(conn, DefaultMaxMessageSize),
	}, nil
}

// Do sends req and waits for its response. A zero MessageID is assigned.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.MessageID == 0 {
		req.MessageID = c.nextMessageID()
	}
	data, err := EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}

	if err := c.framer.WriteFrame(data); err != nil {
		return nil, err
	}
	out, err := c.framer.ReadFrame()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	resp, err := DecodeResponse(out)
	if err != nil {
		return nil, err
	}
	if resp.MessageID != req.MessageID {
		return nil, fmt.Errorf("%w: response ID %d for request %d", ErrInvalidMessage, resp.MessageID, req.MessageID)
	}
	return resp, nil
}

// WriteAccessPIN requests an access PIN overwrite. The returned error is
// the status's sentinel when the terminal refuses.
func (c *Client) WriteAccessPIN(ctx context.Context, p string) (Status, error) {
	resp, err := c.Do(ctx, &Request{
		Operation: OpWrite,
		Attribute: AttrAccessPIN,
		Payload:   []byte(p),
	})
	if err != nil {
		return StatusFailure, err
	}
	return resp.Status, resp.Status.Err()
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) nextMessageID() uint32 {
	for {
		if id := c.nextID.Add(1); id != 0 {
			return id
		}
	}
}
