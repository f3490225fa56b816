// Package backend is the HTTP client for the wizard backend service.
//
// Every call is a JSON POST against one of the fixed /api endpoints (the
// initial requirement generation may instead upload a dataset as multipart).
// Failures are tagged with services markers: transport problems carry
// services.ErrTransport, non-2xx statuses and undecodable bodies carry
// services.ErrMalformed. Retries only happen when the client is built with
// WithRetryMaxAttempts greater than one, and only for timeouts, 408, 429,
// and 5xx responses.
package backend
