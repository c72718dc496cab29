// Command impterm-log views and analyzes terminal access logs.
//
// Access logs are written by impterm when it runs with --access-log.
//
// Usage:
//
//	impterm-log <command> [flags] <file.alog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSONL or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View denied PIN attempts
//	impterm-log view --result denied access.alog
//
//	# View door changes only
//	impterm-log view --category door access.alog
//
//	# Export remote writes to CSV
//	impterm-log export --format csv --source remote -o remote.csv access.alog
//
//	# Keep one terminal run
//	impterm-log filter --session 5f2c9a1e-... -o run.alog access.alog
//
//	# Show statistics
//	impterm-log stats access.alog
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/impterm/impterm-go/cmd/impterm-log/commands"
)

const usage = `impterm-log - Access Log Analyzer

Usage:
  impterm-log <command> [flags] <file.alog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSONL or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "impterm-log <command> --help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "view":
		err = runView(args)
	case "export":
		err = runExport(args)
	case "filter":
		err = runFilter(args)
	case "stats":
		err = runStats(args)
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

// newFlagSet returns a flag set whose usage names the subcommand.
func newFlagSet(name, summary string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "impterm-log %s - %s\n\nUsage:\n  impterm-log %s [flags] <file.alog>\n\nFlags:\n", name, summary, name)
		fs.PrintDefaults()
	}
	return fs
}

// addFilterFlags registers the filter flags shared by view, export and filter.
func addFilterFlags(fs *pflag.FlagSet, opts *commands.FilterOptions) {
	fs.StringVar(&opts.SessionID, "session", "", "Filter by session ID")
	fs.StringVar(&opts.ConnID, "conn-id", "", "Filter by remote connection ID")
	fs.StringVar(&opts.Source, "source", "", "Filter by source (keypad, door, remote, system)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (key, auth, door, remote, error)")
	fs.StringVar(&opts.Result, "result", "", "Filter auth events by result (granted, denied)")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Keep events at or after this time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Keep events before this time (RFC3339)")
}

// logPath parses args and returns the single positional log file.
func logPath(fs *pflag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return "", errors.New("log file path required")
	}
	return fs.Arg(0), nil
}

func runView(args []string) error {
	fs := newFlagSet("view", "View log file in human-readable format")
	var opts commands.FilterOptions
	addFilterFlags(fs, &opts)

	path, err := logPath(fs, args)
	if err != nil {
		return err
	}
	filter, err := commands.BuildFilter(opts)
	if err != nil {
		return err
	}
	return commands.RunView(path, filter, os.Stdout)
}

func runExport(args []string) error {
	fs := newFlagSet("export", "Export log file to JSONL or CSV format")
	var opts commands.FilterOptions
	addFilterFlags(fs, &opts)
	format := fs.StringP("format", "f", "jsonl", "Output format (jsonl, csv)")
	output := fs.StringP("output", "o", "", "Output file (default: stdout)")

	path, err := logPath(fs, args)
	if err != nil {
		return err
	}
	filter, err := commands.BuildFilter(opts)
	if err != nil {
		return err
	}
	return commands.RunExport(path, *format, *output, filter)
}

func runFilter(args []string) error {
	fs := newFlagSet("filter", "Filter log file and write to new file")
	var opts commands.FilterOptions
	addFilterFlags(fs, &opts)
	output := fs.StringP("output", "o", "", "Output file (required)")

	path, err := logPath(fs, args)
	if err != nil {
		return err
	}
	if *output == "" {
		fs.Usage()
		return errors.New("output file required (--output)")
	}
	return commands.RunFilter(path, *output, opts, os.Stdout)
}

func runStats(args []string) error {
	fs := newFlagSet("stats", "Show statistics about the log file")

	path, err := logPath(fs, args)
	if err != nil {
		return err
	}
	return commands.RunStats(path, os.Stdout)
}
