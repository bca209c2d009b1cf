// Package store defines the persistence interfaces of the application.
// Implementations live under internal/platform; services depend only on the
// interfaces defined here.
package store
