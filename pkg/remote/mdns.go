package remote

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/impterm/impterm-go/pkg/version"
)

// mDNS service parameters.
const (
	ServiceType = "_impterm._tcp"
	Domain      = "local"

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63

	// TXT keys.
	TXTKeyVersion = "ver"
	TXTKeyTLS     = "tls"
)

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to one network interface. Empty
	// means all interfaces.
	Interface string

	// TTL overrides the record TTL when non-zero.
	TTL time.Duration
}

// AdvertiseInfo describes the advertised terminal.
type AdvertiseInfo struct {
	Instance string
	Port     uint16
	Version  string
	TLS      bool
}

// Advertiser publishes the remote-management service over mDNS.
type Advertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an Advertiser.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	return &Advertiser{config: config}
}

// Advertise starts advertising, replacing any previous registration.
func (a *Advertiser) Advertise(info AdvertiseInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	instance := info.Instance
	if instance == "" {
		instance = "impterm"
	}
	if len(instance) > MaxInstanceNameLen {
		instance = instance[:MaxInstanceNameLen]
	}
	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		instance,
		ServiceType,
		Domain,
		port,
		EncodeTXT(info),
		interfaces(a.config.Interface),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register service: %w", err)
	}
	a.server = server
	return nil
}

// Stop withdraws the advertisement.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// EncodeTXT builds the TXT strings for info.
func EncodeTXT(info AdvertiseInfo) []string {
	var txt []string
	ver := info.Version
	if ver == "" {
		ver = version.Current
	}
	txt = append(txt, TXTKeyVersion+"="+ver)
	txt = append(txt, TXTKeyTLS+"="+strconv.FormatBool(info.TLS))
	return txt
}

// DecodeTXT parses TXT strings into a key/value map. Entries without '='
// map to an empty value.
func DecodeTXT(txt []string) map[string]string {
	m := make(map[string]string, len(txt))
	for _, s := range txt {
		k, v, _ := strings.Cut(s, "=")
		m[k] = v
	}
	return m
}

// Endpoint is a discovered terminal.
type Endpoint struct {
	Instance  string
	Host      string
	Port      uint16
	Addresses []string
	Version   string
	TLS       bool
}

// Address returns a dialable host:port, preferring IPv4.
func (s *Endpoint) Address() string {
	if len(s.Addresses) > 0 {
		return net.JoinHostPort(s.Addresses[0], strconv.Itoa(int(s.Port)))
	}
	return net.JoinHostPort(strings.TrimSuffix(s.Host, "."), strconv.Itoa(int(s.Port)))
}

// Browse searches for terminals until ctx is done. The returned channel is
// closed when browsing ends.
func Browse(ctx context.Context, iface string) (<-chan *Endpoint, error) {
	out := make(chan *Endpoint)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	var opts []zeroconf.ClientOption
	if ifaces := interfaces(iface); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}

	go func() {
		defer close(out)
		seen := make(map[string]bool)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if seen[entry.Instance] {
					continue
				}
				ep := entryToEndpoint(entry)
				if version.CheckPeer(ep.Version) != nil {
					continue
				}
				seen[entry.Instance] = true
				select {
				case out <- ep:
				case <-ctx.Done():
					return
				}
			case <-removed:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// FindFirst browses until one terminal is found or ctx is done.
func FindFirst(ctx context.Context, iface string) (*Endpoint, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	services, err := Browse(ctx, iface)
	if err != nil {
		return nil, err
	}
	select {
	case svc, ok := <-services:
		if !ok {
			return nil, fmt.Errorf("no terminal found: %w", ctx.Err())
		}
		return svc, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("no terminal found: %w", ctx.Err())
	}
}

func entryToEndpoint(entry *zeroconf.ServiceEntry) *Endpoint {
	txt := DecodeTXT(entry.Text)
	svc := &Endpoint{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Port:     uint16(entry.Port),
		Version:  txt[TXTKeyVersion],
	}
	svc.TLS, _ = strconv.ParseBool(txt[TXTKeyTLS])
	for _, ip := range entry.AddrIPv4 {
		svc.Addresses = append(svc.Addresses, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		svc.Addresses = append(svc.Addresses, ip.String())
	}
	return svc
}

// interfaces returns the named interface, or nil for all interfaces.
func interfaces(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}
