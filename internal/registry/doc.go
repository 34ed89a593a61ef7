// Package registry holds the rules of a pipeline and the in-process action
// handlers that rules may refer to by name.
//
// Rules are validated as they are added: output templates must agree on
// their wildcards, and every wildcard used by an input must be bound either
// by the outputs or by a declared sweep. Checks that need the full rule set,
// such as `uses` references, run in Validate once loading is complete.
package registry
