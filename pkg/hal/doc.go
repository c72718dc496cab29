// Package hal connects the terminal to physical GPIO lines through periph.io.
//
// PeriphMatrix implements keypad.Matrix and EdgeSource on top of
// periph.io/x/conn/v3/gpio pins looked up by their "GPIO<n>" names. Outputs
// returned by Output satisfy the indicator package's Output interface
// directly, since gpio.PinIO already has Out(gpio.Level).
//
// The sim subpackage provides an in-memory board with the same interfaces
// for tests and hardware-free runs.
package hal
