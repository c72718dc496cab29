package keypad

// Key is a logical key character produced by the keypad.
type Key byte

// Special keys.
const (
	// NoKey is returned when a scan cannot confirm a press.
	NoKey Key = 0

	// KeySubmit submits the PIN buffer.
	KeySubmit Key = '#'

	// KeyChange starts the PIN change sequence.
	KeyChange Key = '*'
)

// Layout dimensions.
const (
	Rows    = 4
	Columns = 3
)

// Layout maps (row index, column index) to a logical key.
type Layout [Rows][Columns]Key

// DefaultLayout is the standard telephone-style 4x3 layout.
var DefaultLayout = Layout{
	{'1', '2', '3'},
	{'4', '5', '6'},
	{'7', '8', '9'},
	{'*', '0', '#'},
}

// At returns the key at the given position, or NoKey if out of range.
func (l *Layout) At(row, col int) Key {
	if row < 0 || row >= Rows || col < 0 || col >= Columns {
		return NoKey
	}
	return l[row][col]
}

// Find returns the position of key k in the layout.
func (l *Layout) Find(k Key) (row, col int, ok bool) {
	for r := range l {
		for c := range l[r] {
			if l[r][c] == k {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

// IsDigit reports whether k is a PIN digit.
func (k Key) IsDigit() bool {
	return k >= '0' && k <= '9'
}

// String returns the key as a one-character string.
func (k Key) String() string {
	if k == NoKey {
		return "NONE"
	}
	return string(rune(k))
}
