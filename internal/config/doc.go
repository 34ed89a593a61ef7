// Package config defines the format-agnostic pipeline model and the Loader
// interface that format-specific loaders implement.
//
// A Model is what a pipeline file says. A RunConfig is the immutable value
// one run is executed with: the model's settings resolved against command
// line overrides, with sweeps converted into a sweep.Set. Concrete loaders,
// such as the HCL one, live in separate packages.
package config
