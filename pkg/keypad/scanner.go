package keypad

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Column levels. Columns rest active so any key press raises its row.
const (
	ColumnActive   = gpio.High
	ColumnInactive = gpio.Low
)

// MaxLine is the highest line number a Wiring may use.
const MaxLine = 63

// ErrInvalidWiring is returned when a Wiring cannot describe the keypad.
var ErrInvalidWiring = errors.New("invalid keypad wiring")

// Matrix is the electrical side of the keypad.
// Lines are addressed by hardware line number.
type Matrix interface {
	// DriveColumns sets every column line whose bit is set in mask to level
	// in a single write.
	DriveColumns(mask uint64, level gpio.Level) error

	// DriveColumn sets one column line to level.
	DriveColumn(line int, level gpio.Level) error

	// ReadRow samples one row line.
	ReadRow(line int) (gpio.Level, error)
}

// Wiring lists the hardware line connected to each layout row and column,
// in layout order.
type Wiring struct {
	Rows    []int `yaml:"rows"`
	Columns []int `yaml:"columns"`
}

// DefaultWiring matches the reference board: the connector order is not
// monotonic in either direction.
func DefaultWiring() Wiring {
	return Wiring{
		Rows:    []int{23, 27, 16, 25},
		Columns: []int{26, 5, 17},
	}
}

// Validate checks the wiring is complete, in range and has no shared lines.
func (w Wiring) Validate() error {
	if len(w.Rows) != Rows {
		return fmt.Errorf("%w: %d row lines, want %d", ErrInvalidWiring, len(w.Rows), Rows)
	}
	if len(w.Columns) != Columns {
		return fmt.Errorf("%w: %d column lines, want %d", ErrInvalidWiring, len(w.Columns), Columns)
	}
	seen := make(map[int]struct{}, Rows+Columns)
	for _, line := range append(append([]int{}, w.Rows...), w.Columns...) {
		if line < 0 || line > MaxLine {
			return fmt.Errorf("%w: line %d out of range 0-%d", ErrInvalidWiring, line, MaxLine)
		}
		if _, dup := seen[line]; dup {
			return fmt.Errorf("%w: line %d used twice", ErrInvalidWiring, line)
		}
		seen[line] = struct{}{}
	}
	return nil
}

// ColumnMask returns the bulk-write mask covering all column lines.
func (w Wiring) ColumnMask() uint64 {
	var mask uint64
	for _, line := range w.Columns {
		mask |= 1 << uint(line)
	}
	return mask
}

// Scanner resolves a row edge to a key.
// A Scanner is owned by a single goroutine.
type Scanner struct {
	matrix   Matrix
	layout   Layout
	columns  []int
	rowIndex map[int]int
	colMask  uint64
}

// NewScanner creates a scanner for the given wiring and layout.
func NewScanner(m Matrix, w Wiring, layout Layout) (*Scanner, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	rowIndex := make(map[int]int, Rows)
	for i, line := range w.Rows {
		rowIndex[line] = i
	}

	return &Scanner{
		matrix:   m,
		layout:   layout,
		columns:  append([]int(nil), w.Columns...),
		rowIndex: rowIndex,
		colMask:  w.ColumnMask(),
	}, nil
}

// IsRow reports whether line is one of the keypad's row lines.
func (s *Scanner) IsRow(line int) bool {
	_, ok := s.rowIndex[line]
	return ok
}

// Scan determines which key raised rowLine.
// It returns NoKey with a nil error when no column reproduces the row state,
// which means the edge was spurious or the key was already released.
// All columns are back at ColumnActive when Scan returns.
func (s *Scanner) Scan(rowLine int) (key Key, err error) {
	row, ok := s.rowIndex[rowLine]
	if !ok {
		return NoKey, nil
	}

	defer func() {
		if rerr := s.matrix.DriveColumns(s.colMask, ColumnActive); rerr != nil && err == nil {
			key, err = NoKey, fmt.Errorf("restore columns: %w", rerr)
		}
	}()

	if err := s.matrix.DriveColumns(s.colMask, ColumnInactive); err != nil {
		return NoKey, fmt.Errorf("clear columns: %w", err)
	}

	for col, line := range s.columns {
		if err := s.matrix.DriveColumn(line, ColumnActive); err != nil {
			return NoKey, fmt.Errorf("drive column %d: %w", line, err)
		}
		level, err := s.matrix.ReadRow(rowLine)
		if err != nil {
			return NoKey, fmt.Errorf("read row %d: %w", rowLine, err)
		}
		if level == gpio.High {
			return s.layout.At(row, col), nil
		}
		if err := s.matrix.DriveColumn(line, ColumnInactive); err != nil {
			return NoKey, fmt.Errorf("release column %d: %w", line, err)
		}
	}

	return NoKey, nil
}
