// Package viz provides the interactive terminal tuner.
//
// [Tuner] is a Bubble Tea model that runs the closed loop for the selected
// plant and redraws the response whenever a gain changes. Gains move in the
// steps the plant advertises and never leave its range.
//
// # Key Bindings
//
//	tab/n, shift+tab/N - Next or previous plant
//	j/k                - Select gain
//	h/l                - Decrease or increase the selected gain
//	p, i, d            - Toggle a PID term
//	b/B, g/G           - Raise or lower the beta or gamma set-point weight
//	0                  - Restore the plant's default gains
//	r, enter           - Rerun
//	q                  - Quit
package viz
