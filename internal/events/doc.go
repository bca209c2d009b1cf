// Package events provides the in-process event types and emitter used to
// decouple stage-entry services from background task creation.
package events
