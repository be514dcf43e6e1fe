package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// maxLineBytes bounds a single audit line; raw hook input can be large.
const maxLineBytes = 4 << 20

// Filter selects entries when reading the audit log.
type Filter struct {
	// SessionID keeps only entries for this session when set.
	SessionID string
	// Decision keeps only entries with this decision when set.
	Decision string
	// Limit keeps only the newest Limit entries when positive.
	Limit int
}

func (f Filter) keep(e Entry) bool {
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.Decision != "" && e.Decision != f.Decision {
		return false
	}
	return true
}

// ReadEntries reads compressed archives (oldest first) followed by the live
// log at path and returns the entries that pass filter. Malformed lines are skipped.
func ReadEntries(path string, filter Filter) ([]Entry, error) {
	archives, err := Archives(path)
	if err != nil {
		return nil, fmt.Errorf("audit: list archives: %w", err)
	}

	var entries []Entry
	for _, archive := range archives {
		got, err := readArchive(archive, filter)
		if err != nil {
			return nil, err
		}
		entries = append(entries, got...)
	}

	f, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("audit: open log: %w", err)
	default:
		defer f.Close()
		got, err := decodeEntries(f, filter)
		if err != nil {
			return nil, err
		}
		entries = append(entries, got...)
	}

	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[len(entries)-filter.Limit:]
	}
	return entries, nil
}

func readArchive(path string, filter Filter) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open archive: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("audit: open zstd stream %s: %w", path, err)
	}
	defer dec.Close()

	return decodeEntries(dec, filter)
}

func decodeEntries(r io.Reader, filter Filter) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		if filter.keep(e) {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("audit: scan log: %w", err)
	}
	return entries, nil
}
