// Package pipeline drives one run: it opens the inputs, streams reads through
// the density scorer and hands them to either the threshold sampler or the
// batched reorder engine, depending on which Config fields are populated.
//
// The driver is single-producer. Scores are computed strictly in stream
// order; the only fan-out is inside fingerprinting. The context is checked
// between records and a cancelled run never writes the savefile.
package pipeline
