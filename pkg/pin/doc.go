// Package pin implements the PIN entry and administration state machine.
//
// The Machine consumes keys from the keypad worker. Digits collect in a
// bounded buffer, the submit key validates the buffer against the record
// the current state calls for, and the change key starts the PIN change
// sub-protocol:
//
//	Auth            --'#' access PIN ok-->   Auth (door open intent)
//	ChangeAuth      --'#' admin PIN ok-->    ChangeEnterNew
//	ChangeEnterNew  --'#' long enough-->     ChangeConfirm
//	ChangeConfirm   --'#' matches-->         Auth (access PIN replaced)
//
// Any '*' discards the buffer and enters ChangeAuth. A failed submission
// returns to the prior state defined for it and blocks the worker for the
// security delay.
//
// While the door is open every key is turned into a close request instead of
// PIN input.
package pin
