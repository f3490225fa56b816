package wizard

import (
	"encoding/json"
	"fmt"

	"saasywrap/internal/chat"
	"saasywrap/internal/operation"
	"saasywrap/internal/requirements"
)

// BoardExport is the exported state of one operation list.
type BoardExport struct {
	Operations []operation.Operation     `json:"operations"`
	Preview    operation.PreviewSnapshot `json:"preview"`
	Transcript []chat.Message            `json:"transcript"`
}

// Export is a point-in-time copy of the whole workspace.
type Export struct {
	Session      string                      `json:"session"`
	UserID       string                      `json:"userId"`
	Initial      requirements.InitialContext `json:"initialContext"`
	Requirements []requirements.Requirement  `json:"requirements"`
	Transcript   []chat.Message              `json:"transcript"`
	Boards       map[string]BoardExport      `json:"boards"`
}

// Export captures the workspace state.
func (w *Workspace) Export() Export {
	out := Export{
		Session:      w.name,
		UserID:       w.registry.UserID(),
		Initial:      w.registry.InitialContext(),
		Requirements: w.registry.Snapshot(),
		Transcript:   w.reqTranscript.Messages(),
		Boards:       make(map[string]BoardExport, len(w.boards)),
	}
	for name, board := range w.boards {
		out.Boards[name] = BoardExport{
			Operations: board.List.Snapshot(),
			Preview:    board.Preview.Snapshot(),
			Transcript: board.Transcript.Messages(),
		}
	}
	return out
}

// Document converts the export into plain maps and slices keyed by the JSON
// member names, for encoders that do not honour json.Marshaler.
func (e Export) Document() (map[string]any, error) {
	encoded, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	return doc, nil
}
