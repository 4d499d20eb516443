// Package postgres implements the store contracts on PostgreSQL via the pgx
// stdlib driver. Driver failures are classified into the store error taxonomy
// (transient vs. terminal) so the retry decorator above can act uniformly.
// Schema migrations are embedded and applied with goose.
package postgres
