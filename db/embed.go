// Package db provides the embedded database schema.
package db

import _ "embed"

// Schema contains the DDL for the reconciliation event log.
//
//go:embed migrations/001_schema.sql
var Schema string
