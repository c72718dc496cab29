// Package door implements the door state machine.
//
// A Controller owns the lock. Open and close intents arrive on a queue of
// capacity one and are applied by the door worker (Run). Opening starts an
// auto-close timer for the configured duration. An explicit close and the
// timer's own expiry race to finish the same open period; both take the
// pending auto-close under one mutex and only the path that gets it actuates
// the close.
//
// When the worker stops, an open door is closed.
package door
