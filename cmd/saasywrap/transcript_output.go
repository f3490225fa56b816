package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"saasywrap/internal/chat"
	"saasywrap/internal/wizard"
)

var transcriptChannels = []string{wizard.RequirementsChannel, "blueprint", "plan"}

// transcriptMarks remembers transcript lengths so a command can echo only the
// entries its call appended.
type transcriptMarks map[string]int

func markTranscripts(ws *wizard.Workspace) transcriptMarks {
	marks := make(transcriptMarks, len(transcriptChannels))
	for _, channel := range transcriptChannels {
		if tr, ok := ws.Transcript(channel); ok {
			marks[channel] = tr.Len()
		}
	}
	return marks
}

// printNew writes the replies and notices appended since the marks were
// taken. Entries of primary are printed without a channel prefix.
func (m transcriptMarks) printNew(cmd *cobra.Command, ws *wizard.Workspace, primary string) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, channel := range transcriptChannels {
		tr, ok := ws.Transcript(channel)
		if !ok {
			continue
		}
		msgs := tr.Messages()
		start := m[channel]
		if start > len(msgs) {
			start = len(msgs)
		}
		for _, msg := range msgs[start:] {
			if msg.Role == chat.RoleUser {
				continue
			}
			line := transcriptLine(msg, colorize)
			if channel != primary {
				line = fmt.Sprintf("[%s] %s", channel, line)
			}
			fmt.Fprintln(out, line)
		}
	}
}
