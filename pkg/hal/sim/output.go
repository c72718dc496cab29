package sim

import (
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// Output records the levels written to a simulated output line.
type Output struct {
	name string

	mu      sync.Mutex
	level   gpio.Level
	history []gpio.Level
	onWrite func(name string, l gpio.Level)
}

// NewOutput creates an output at gpio.Low.
func NewOutput(name string) *Output {
	return &Output{name: name}
}

// Out records l.
func (o *Output) Out(l gpio.Level) error {
	o.mu.Lock()
	o.level = l
	o.history = append(o.history, l)
	fn := o.onWrite
	o.mu.Unlock()

	if fn != nil {
		fn(o.name, l)
	}
	return nil
}

// Name returns the output's name.
func (o *Output) Name() string {
	return o.name
}

// Level returns the last written level.
func (o *Output) Level() gpio.Level {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level
}

// History returns every level written so far.
func (o *Output) History() []gpio.Level {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]gpio.Level(nil), o.history...)
}

// Rises returns how many low-to-high writes occurred.
func (o *Output) Rises() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	prev := gpio.Low
	for _, l := range o.history {
		if l == gpio.High && prev == gpio.Low {
			n++
		}
		prev = l
	}
	return n
}

// OnWrite registers a callback invoked after every write.
func (o *Output) OnWrite(fn func(name string, l gpio.Level)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onWrite = fn
}
