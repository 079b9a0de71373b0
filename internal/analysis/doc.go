// Package analysis inspects finished runs.
//
//   - [Spectrum] and [DominantFrequency]: FFT of a feedback trace
//   - [PhasePortraitFromLog]: two plant log columns against each other
//   - [Crossings] and [Period]: setpoint crossings of an oscillating response
//   - [GainSweep]: late-time feedback values as one gain varies
//
// A sustained oscillation shows up as a single spectral peak and a steady
// crossing period:
//
//	f := analysis.DominantFrequency(res.Feedback, res.Params.Dt)
package analysis
