// Package postgres provides PostgreSQL implementations of the store
// interfaces using the pgx driver through database/sql. All stores
// accept a DBTX so they operate identically over a connection pool or
// an open transaction.
package postgres
