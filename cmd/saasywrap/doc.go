// Package main hosts the saasywrap CLI entrypoint and command graph.
//
// The Cobra-based command tree drives one wizard session at a time: the
// initial requirements upload, requirement edits and chat, blueprint and plan
// generation, chat, and execution, plus transcript, preview, and export views.
// It centralizes configuration resolution, the per-session lock, and logger
// setup so subcommands only deal with a ready wizard.Workspace.
//
// Keep this package lean: new behaviour belongs in the internal packages and
// is surfaced here through dedicated commands or flags.
package main
