// Package postgres implements the engine's AccountProvider and
// RoleProvider on PostgreSQL via sqlx. Schema DDL lives in schema.sql in
// this directory; migrations are the host application's concern.
package postgres
