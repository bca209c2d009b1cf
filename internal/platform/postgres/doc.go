// Package postgres implements the store interfaces using a PostgreSQL
// database as the storage backend. Aggregates are persisted as JSONB
// documents with a version column for compare-and-swap updates.
package postgres
