package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/dgerlanc/hookguard/internal/constants"
	"github.com/dgerlanc/hookguard/internal/logger"
)

// ArchiveExt is appended to rotated, compressed audit logs.
const ArchiveExt = ".zst"

// rotations disambiguates archives rotated within the same timestamp.
var rotations int

func shouldRotateLocked(incoming int) bool {
	if opts.MaxBytes <= 0 || size == 0 {
		return false
	}
	return size+int64(incoming) > opts.MaxBytes
}

// rotateLocked moves the live file aside, compresses it and reopens a fresh one.
// Rename happens first so a concurrent hook process appending to the old
// inode finishes its line inside the archive rather than being truncated.
func rotateLocked() error {
	if auditFile != nil {
		if err := auditFile.Close(); err != nil {
			return fmt.Errorf("audit: close rotated file: %w", err)
		}
		auditFile = nil
	}

	stamp := time.Now().UTC().Format("20060102T150405.000000000")
	rotations++
	rotated := fmt.Sprintf("%s.%s.%d.%04d", auditPath, stamp, os.Getpid(), rotations)
	if err := os.Rename(auditPath, rotated); err != nil {
		if openErr := openLocked(auditPath); openErr != nil {
			return fmt.Errorf("audit: reopen after failed rotation: %w", openErr)
		}
		if os.IsNotExist(err) {
			// Another process rotated first.
			return nil
		}
		return fmt.Errorf("audit: rename for rotation: %w", err)
	}

	if err := openLocked(auditPath); err != nil {
		return fmt.Errorf("audit: open new file: %w", err)
	}

	if err := compressFile(rotated, rotated+ArchiveExt); err != nil {
		return err
	}
	if err := os.Remove(rotated); err != nil {
		return fmt.Errorf("audit: remove uncompressed archive: %w", err)
	}

	logger.Debug("audit: rotated log", "archive", rotated+ArchiveExt)
	return pruneArchives(auditPath, opts.Keep)
}

// compressFile writes a zstd-compressed copy of src to dst.
func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("audit: open archive source: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.FileMode)
	if err != nil {
		return fmt.Errorf("audit: create archive: %w", err)
	}

	enc, err := zstd.NewWriter(out)
	if err != nil {
		out.Close()
		return fmt.Errorf("audit: create zstd encoder: %w", err)
	}
	if _, err := io.Copy(enc, in); err != nil {
		enc.Close()
		out.Close()
		return fmt.Errorf("audit: compress archive: %w", err)
	}
	if err := enc.Close(); err != nil {
		out.Close()
		return fmt.Errorf("audit: flush archive: %w", err)
	}
	return out.Close()
}

// Archives returns the compressed archives of path, oldest first.
// Archive names embed a sortable UTC timestamp, so lexical order is chronological.
func Archives(path string) ([]string, error) {
	matches, err := filepath.Glob(path + ".*" + ArchiveExt)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// pruneArchives deletes the oldest archives beyond keep. keep <= 0 keeps everything.
func pruneArchives(path string, keep int) error {
	if keep <= 0 {
		return nil
	}
	archives, err := Archives(path)
	if err != nil {
		return err
	}
	if len(archives) <= keep {
		return nil
	}
	var failed []string
	for _, old := range archives[:len(archives)-keep] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			failed = append(failed, filepath.Base(old))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("audit: prune archives: could not remove %s", strings.Join(failed, ", "))
	}
	return nil
}
