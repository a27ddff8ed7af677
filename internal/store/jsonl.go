package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/stash-sh/stash/internal/domain"
)

// The log file is newline-delimited JSON: one self-contained bookmark
// object per line, UTF-8, always terminated by a single trailing newline.

func decodeRecords(content []byte) ([]*domain.Bookmark, error) {
	if len(content) == 0 {
		return []*domain.Bookmark{}, nil
	}

	lines := bytes.Split(content, []byte("\n"))
	records := make([]*domain.Bookmark, 0, len(lines))
	for i, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var b domain.Bookmark
		if err := json.Unmarshal(line, &b); err != nil {
			return nil, fmt.Errorf("decode log line %d: %w", i+1, err)
		}
		records = append(records, &b)
	}
	return records, nil
}

func encodeRecords(records []*domain.Bookmark) ([]byte, error) {
	var buf bytes.Buffer
	for _, b := range records {
		line, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode bookmark %s: %w", b.ID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// appendContent concatenates new encoded lines onto the existing blob,
// normalizing the boundary so the result keeps exactly one newline per
// record and a single trailing newline.
func appendContent(current, lines []byte) []byte {
	if len(current) == 0 {
		return lines
	}
	current = bytes.TrimRight(current, "\n")
	out := make([]byte, 0, len(current)+1+len(lines))
	out = append(out, current...)
	out = append(out, '\n')
	out = append(out, lines...)
	return out
}
