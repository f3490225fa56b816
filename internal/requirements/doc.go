// Package requirements maintains the ordered requirement registry: records
// generated by the backend, merged from chat replies, and edited locally with
// an append-only change history.
package requirements
