// Package interactive provides the interactive console for a simulated
// terminal.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/impterm/impterm-go/pkg/log"
	"github.com/impterm/impterm-go/pkg/persistence"
	"github.com/impterm/impterm-go/pkg/terminal"
)

// DefaultHold is how long the console holds each simulated key.
const DefaultHold = 60 * time.Millisecond

// Console drives a simulated terminal from the command line.
type Console struct {
	term *terminal.Terminal
	sim  *terminal.Simulation
	rl   *readline.Instance
	hold time.Duration
}

// New creates a console. Call Attach once the terminal exists.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "impterm> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, hold: DefaultHold}, nil
}

// Attach binds the console to a terminal and its simulated board.
func (c *Console) Attach(term *terminal.Terminal, sim *terminal.Simulation) {
	c.term = term
	c.sim = sim
}

// Stdout returns a writer that coordinates with the readline prompt.
// Use it for log output.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Log prints door and PIN outcomes as they happen. It satisfies log.Logger.
func (c *Console) Log(event log.Event) {
	out := c.rl.Stdout()
	switch {
	case event.Door != nil:
		fmt.Fprintf(out, "  door %s -> %s (%s)\n", event.Door.OldState, event.Door.NewState, event.Door.Cause)
	case event.Auth != nil && event.Auth.Result == log.ResultDenied:
		fmt.Fprintf(out, "  denied: %s\n", event.Auth.Reason)
	case event.Remote != nil:
		fmt.Fprintf(out, "  remote write from %s: %s\n", event.ConnectionID, event.Remote.Status)
	case event.Error != nil:
		fmt.Fprintf(out, "  error: %s\n", event.Error.Message)
	}
}

// Run reads commands until the user quits or ctx is done. Quitting calls
// cancel.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "keys", "k":
			c.cmdKeys(ctx, args)

		case "status", "s":
			c.cmdStatus(ctx)

		case "remote":
			c.cmdRemote(ctx, args)

		case "duration":
			c.cmdDuration(ctx, args)

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
Terminal Commands:
  Keypad:
    keys <seq>         - Type keys on the simulated keypad (0-9, * change, # submit)
                         e.g. keys 1234#  or  keys *00000000#

  Door:
    status             - Show door, indicator and remote status
    duration <sec>     - Set the door-open duration (applies from next opening)

  Remote:
    remote <pin>       - Write a new access PIN as a remote client would

  General:
    help               - Show this help
    quit               - Exit`)
}

func (c *Console) cmdKeys(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: keys <seq>")
		return
	}
	seq := strings.Join(args, "")
	if err := c.sim.Board.Type(ctx, seq, c.hold); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
	}
}

func (c *Console) cmdStatus(ctx context.Context) {
	st := c.term.Status()
	out := c.rl.Stdout()

	fmt.Fprintln(out, "\nTerminal Status")
	fmt.Fprintln(out, "-------------------------------------------")
	fmt.Fprintf(out, "  Session:        %s\n", st.SessionID)
	fmt.Fprintf(out, "  Door:           %s\n", st.Door)
	if st.Remaining > 0 {
		fmt.Fprintf(out, "  Closes in:      %s\n", st.Remaining.Round(100*time.Millisecond))
	}
	if d, err := c.term.Credentials().DoorDuration(ctx); err == nil {
		fmt.Fprintf(out, "  Open duration:  %s\n", d)
	}
	fmt.Fprintf(out, "  Indicators:     open=%s closed=%s\n", c.sim.OpenLED.Level(), c.sim.ClosedLED.Level())
	fmt.Fprintf(out, "  Dropped edges:  %d\n", st.DroppedEdges)
	if st.RemoteAddr != "" {
		fmt.Fprintf(out, "  Remote:         %s (%d clients)\n", st.RemoteAddr, st.RemoteClients)
	} else {
		fmt.Fprintln(out, "  Remote:         disabled")
	}
	fmt.Fprintln(out)
}

func (c *Console) cmdRemote(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: remote <pin>")
		return
	}
	status := c.term.RemoteWrite(ctx, args[0])
	fmt.Fprintf(c.rl.Stdout(), "Result: %s\n", status)
}

func (c *Console) cmdDuration(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: duration <sec>")
		return
	}
	secs, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid duration: %v\n", err)
		return
	}
	err = c.term.SetDoorDuration(ctx, time.Duration(secs)*time.Second)
	switch {
	case errors.Is(err, persistence.ErrInvalidDuration):
		fmt.Fprintln(c.rl.Stdout(), "Duration must be at least 1 second")
	case err != nil:
		fmt.Fprintf(c.rl.Stdout(), "Error: %v\n", err)
	default:
		fmt.Fprintf(c.rl.Stdout(), "Door duration set to %ds\n", secs)
	}
}
