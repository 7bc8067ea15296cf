package queue

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// ExportJSONL writes the current pending collection to w, one PendingWrite
// per line. The export is a snapshot: a backup taken before discarding the
// queue, or a diagnostic dump of what is still waiting to sync.
func (s *Store) ExportJSONL(ctx context.Context, w io.Writer) (int, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(w)
	for _, entry := range entries {
		line, err := json.Marshal(entry)
		if err != nil {
			return 0, fmt.Errorf("failed to encode entry %s: %w", entry.ID, err)
		}
		if _, err := bw.Write(append(line, '\n')); err != nil {
			return 0, fmt.Errorf("failed to write entry %s: %w", entry.ID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, fmt.Errorf("failed to flush export: %w", err)
	}

	return len(entries), nil
}

// ImportJSONL re-enqueues drafts from a JSONL export. Each imported draft
// gets a fresh id and a zero retry count: it is a new local acceptance, not
// a restoration of the old entry's sync history.
//
// Malformed lines abort the import with a line-numbered error before
// anything is enqueued.
func (s *Store) ImportJSONL(ctx context.Context, r io.Reader) (int, error) {
	var drafts []StoryDraft

	decoder := json.NewDecoder(r)
	lineNum := 0
	for {
		var entry PendingWrite
		if err := decoder.Decode(&entry); err != nil {
			if err == io.EOF {
				break
			}
			return 0, fmt.Errorf("invalid JSON at line %d: %w", lineNum+1, err)
		}
		lineNum++
		drafts = append(drafts, entry.Payload)
	}

	for i, draft := range drafts {
		if _, err := s.Append(ctx, draft); err != nil {
			return i, fmt.Errorf("failed to enqueue imported draft %d: %w", i+1, err)
		}
	}

	return len(drafts), nil
}
