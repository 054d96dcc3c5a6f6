// Package api defines wire-format types and converters for the HTTP status
// API. It translates internal run records into transport-friendly DTOs that
// external consumers can render without coupling to internal types.
//
// DTOs use camelCase JSON tags. Internal enums (runs.Status) are exposed as
// lowercase strings. Timestamps use RFC3339 with milliseconds.
package api
