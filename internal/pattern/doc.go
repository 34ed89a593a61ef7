// Package pattern compiles path templates with named wildcard slots and
// matches concrete paths against them.
//
// Matching is purely lexical: a Template never consults the filesystem. The
// result of a successful match is a Binding, the typed wildcard-name to
// value map that, together with a rule name, identifies a task instance.
package pattern
