// Package chat keeps per-channel transcripts and posts chat messages to the
// backend.
//
// A Conversation sends the user message together with the rolling
// user/assistant history and any screen-specific members, records the
// assistant reply, and hands the raw reply to a caller-supplied handler. The
// requirements, blueprint, and plan screens all share it.
package chat
