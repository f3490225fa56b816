// Package wizard assembles one session of the requirements, blueprint, and
// plan screens.
//
// A Workspace owns the requirement registry and one Board per operation kind
// (list, preview, transcript, chat, executor). It is the only place the
// components meet: requirement changes are reviewed against both boards, list
// changes are reviewed against the requirements, and every change is written
// to the session store before the call returns.
package wizard
