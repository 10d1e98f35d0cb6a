// Package fuzztests houses Go fuzz harnesses for the module decoders and
// the check pipeline behind them. Arbitrary input must either be rejected
// by the decoder or checked to completion, without panics and within a
// deadline.
package fuzztests
