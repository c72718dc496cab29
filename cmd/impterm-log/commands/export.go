package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/impterm/impterm-go/pkg/log"
)

// RunExport writes the events of path matching filter in the given format
// to output, or to stdout when output is empty.
func RunExport(path, format, output string, filter log.Filter) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

var csvHeader = []string{"timestamp", "session_id", "source", "category", "connection_id", "type", "result", "detail"}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := cw.Write(csvRow(event)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(event log.Event) []string {
	var typ, result, detail string
	switch {
	case event.Key != nil:
		typ = "key"
		result = event.Key.Class.String()
		if event.Key.WhileOpen {
			detail = "while_open"
		}
	case event.Auth != nil:
		typ = "auth"
		result = event.Auth.Result.String()
		detail = event.Auth.Reason
	case event.Door != nil:
		typ = "door"
		result = event.Door.NewState
		detail = event.Door.Cause
	case event.Remote != nil:
		typ = "remote"
		result = event.Remote.Status
		detail = strconv.Itoa(event.Remote.Length)
	case event.Error != nil:
		typ = "error"
		detail = event.Error.Message
	default:
		typ = "unknown"
	}

	return []string{
		event.Timestamp.UTC().Format(timestampLayout),
		event.SessionID,
		event.Source.String(),
		event.Category.String(),
		event.ConnectionID,
		typ,
		result,
		detail,
	}
}
