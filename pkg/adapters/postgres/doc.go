// Package postgres implements ports.Repository on PostgreSQL through
// database/sql and the lib/pq driver.
//
// The schema lives in schema.sql and is applied by Migrate. Writes that
// touch more than one table run in a single transaction.
package postgres
