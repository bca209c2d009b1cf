// Package generation defines the boundary between the application core and
// the external generative-media providers. The core treats every provider
// call as atomic, opaque, and independently failable; implementations live
// under internal/platform.
package generation
