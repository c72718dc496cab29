// Command impterm-remote writes a new access PIN to a terminal over its
// remote channel.
//
// Usage:
//
//	impterm-remote <command> [flags]
//
// Commands:
//
//	set-pin   Write a new access PIN (the door must be open)
//	discover  List terminals advertised over mDNS
//
// Examples:
//
//	# Write to a known address
//	impterm-remote set-pin --addr 192.168.1.40:8450 246813
//
//	# Find the first terminal on the network and write to it
//	impterm-remote set-pin --discover 246813
//
//	# List terminals
//	impterm-remote discover --timeout 5s
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/impterm/impterm-go/pkg/remote"
	"github.com/impterm/impterm-go/pkg/version"
)

const usage = `impterm-remote - Terminal Remote Client

Usage:
  impterm-remote <command> [flags]

Commands:
  set-pin   Write a new access PIN (the door must be open)
  discover  List terminals advertised over mDNS

Use "impterm-remote <command> --help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch cmd := os.Args[1]; cmd {
	case "set-pin":
		err = runSetPIN(os.Args[2:])
	case "discover":
		err = runDiscover(os.Args[2:])
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// tlsFlags selects how the client secures the connection.
type tlsFlags struct {
	enabled  bool
	caFile   string
	insecure bool
}

func (f *tlsFlags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&f.enabled, "tls", false, "Connect with TLS (implied by a discovered terminal that advertises it)")
	fs.StringVar(&f.caFile, "ca", "", "PEM file with the CA that signed the terminal certificate")
	fs.BoolVar(&f.insecure, "insecure", false, "Skip terminal certificate verification")
}

// config returns nil when TLS is not used.
func (f *tlsFlags) config(addr string) (*tls.Config, error) {
	if !f.enabled {
		return nil, nil
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	conf := &tls.Config{
		ServerName:         host,
		MinVersion:         tls.VersionTLS13,
		NextProtos:         version.SupportedALPNProtocols(),
		InsecureSkipVerify: f.insecure,
	}
	if f.caFile != "" {
		pem, err := os.ReadFile(f.caFile)
		if err != nil {
			return nil, fmt.Errorf("read CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in %s", f.caFile)
		}
		conf.RootCAs = pool
	}
	return conf, nil
}

func runSetPIN(args []string) error {
	fs := pflag.NewFlagSet("set-pin", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, "impterm-remote set-pin - Write a new access PIN\n\nUsage:\n  impterm-remote set-pin [flags] <pin>\n\nFlags:\n")
		fs.PrintDefaults()
	}
	addr := fs.String("addr", "", "Terminal address (host:port)")
	discover := fs.Bool("discover", false, "Find the terminal over mDNS")
	iface := fs.String("interface", "", "Network interface for discovery")
	timeout := fs.Duration("timeout", 10*time.Second, "Overall timeout")
	var tf tlsFlags
	tf.register(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("exactly one PIN required")
	}
	if (*addr == "") == !*discover {
		return errors.New("use exactly one of --addr or --discover")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	target := *addr
	if *discover {
		ep, err := remote.FindFirst(ctx, *iface)
		if err != nil {
			return err
		}
		target = ep.Address()
		tf.enabled = tf.enabled || ep.TLS
		fmt.Printf("Found %s at %s\n", ep.Instance, target)
	}

	tlsConf, err := tf.config(target)
	if err != nil {
		return err
	}
	client, err := remote.Dial(ctx, target, tlsConf)
	if err != nil {
		return err
	}
	defer client.Close()

	status, err := client.WriteAccessPIN(ctx, fs.Arg(0))
	switch {
	case errors.Is(err, remote.ErrWriteNotPermitted):
		return errors.New("terminal refused: the door must be open")
	case errors.Is(err, remote.ErrUnsupported):
		return errors.New("terminal refused: PIN must be 4 to 10 digits")
	case err != nil:
		return err
	}
	fmt.Printf("Access PIN updated (%s)\n", status)
	return nil
}

func runDiscover(args []string) error {
	fs := pflag.NewFlagSet("discover", pflag.ContinueOnError)
	iface := fs.String("interface", "", "Network interface for discovery")
	timeout := fs.Duration("timeout", 3*time.Second, "How long to browse")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	found, err := remote.Browse(ctx, *iface)
	if err != nil {
		return err
	}
	n := 0
	for ep := range found {
		n++
		fmt.Printf("%-24s %-22s ver=%s tls=%t\n", ep.Instance, ep.Address(), ep.Version, ep.TLS)
	}
	if n == 0 {
		fmt.Println("No terminals found")
	}
	return nil
}
