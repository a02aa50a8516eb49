// Package strength grades passwords on a 0-100 scale and maps scores onto
// a single five-band scale (very-weak, weak, medium, strong, very-strong).
//
// # Scoring
//
// Points are additive and capped at 100:
//
//	length >= 8: 25, >= 6: 15, >= 4: 10
//	uppercase: 20, lowercase: 20, digit: 20
//	symbol from [Symbols]: 15
//
// # What this package must NOT do
//
//   - Hold state or perform I/O. Every function is pure.
//   - Decide policy. Minimum scores are configured by the Engine.
package strength
