// Package mediagen implements the media generation provider interfaces as
// thin HTTP clients against the provider gateway. Every call is treated as
// atomic and opaque: the gateway either returns a usable artifact URL or the
// call fails.
package mediagen
