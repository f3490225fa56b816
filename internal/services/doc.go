// Package services defines shared utilities consumed by the backend client,
// the executor, and the wizard workspace.
//
// Key responsibilities:
//   - Context helpers that stamp session names, list kinds, operation IDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified (transport, malformed response, backend rejection) without
//     string matching.
//
// Use these helpers when wiring new components so error handling and
// observability stay uniform across the client.
package services
