// Package keypad decodes presses on a 4x3 matrix keypad.
//
// The keypad is wired as row and column lines. Columns are outputs that rest
// at the active level; rows are inputs with pull-downs that raise an edge
// when a key connects them to an active column.
//
// # Pipeline
//
//   - An edge callback (the interrupt side) calls Handoff.Offer with the row
//     line number. Offer never blocks; a full queue drops the event.
//   - Worker.Run takes row numbers from the queue, asks the Scanner which
//     column is connected, passes the resulting Key to a KeyHandler and then
//     resets the queue so contact bounce collapses into one logical press.
//
// # Scanning
//
// Scanner.Scan drives all columns inactive in one bulk write, then activates
// the columns one at a time in a fixed order until the triggering row reads
// active. Columns are restored to the resting level before Scan returns,
// whatever the outcome.
//
// Line numbers are hardware identifiers (GPIO numbers on a Raspberry Pi).
// They map to layout indices through lookup tables built from a Wiring, so
// rows and columns may be connected in any order.
package keypad
