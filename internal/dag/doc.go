// Package dag builds the dependency graph of a run.
//
// The graph is built backward from the requested goal paths. Each required
// path resolves either to the single rule able to produce it, instantiated
// on demand for the binding extracted from the path, or to an existing file
// that becomes a leaf. Only tasks the goals actually need are created, which
// keeps the graph small when sweeps are large.
//
// Structural problems (ambiguous producers, missing producers, cycles) are
// returned from Build, so nothing runs against a broken pipeline.
package dag
