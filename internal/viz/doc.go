// Package viz provides the terminal view of the hourglass.
//
// The package implements an interactive TUI using the Bubble Tea framework:
//
//   - [Model]: live hourglass drawn on a braille canvas next to a stats panel
//   - [Canvas]: Braille-based pixel canvas, 2x4 dots per cell
//   - a preset picker started by [RunInteractive]
//   - Theme selection with 5 built-in color schemes
//
// # Key Bindings
//
//	Space - Start/Stop the countdown
//	r     - Reset the countdown and refill the top chamber
//	R     - Restore the starting parameters
//	Tab   - Select a parameter, Up/Down to tune it
//	[ ]   - Shorten or lengthen the countdown
//	t     - Cycle color themes
//	g     - Toggle GIF recording
//	?     - Show help overlay
//	q     - Quit
//
// # Recording
//
// g starts and stops a recording. Frames are written to sandglass.gif in the
// current directory.
package viz
