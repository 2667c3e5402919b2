// Package launcher resolves the absolute path to the stylesheet compiler
// subprocess binary and validates it before the host hands it to the
// subprocess channel. Locating/launching the binary itself is an external
// concern per this project's scope; launcher is the narrow interface the
// core receives an already-resolved result from — it does not decide which
// binary to run, only confirms the caller-supplied path is usable.
package launcher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"runtime"
)

// PlatformSuffix returns the conventional executable suffix for the
// current OS ("" everywhere but Windows, where it is ".exe"), for callers
// that build a path from a base name rather than a full path.
func PlatformSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

// Resolved is a verified, ready-to-launch executable path plus the checksum
// observed at verification time, for logging and drift detection.
type Resolved struct {
	Path     string
	Checksum string
}

// Resolve verifies that path exists, is a regular file, and is executable,
// then returns its resolved form. If wantChecksum is non-empty, the file's
// SHA256 must match it exactly or Resolve fails — this is how a host pins
// itself to a specific compiler build without embedding the binary itself.
func Resolve(path string, wantChecksum string) (*Resolved, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("launcher: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("launcher: %s is a directory, not an executable", path)
	}
	if info.Mode()&0o111 == 0 {
		return nil, fmt.Errorf("launcher: %s is not executable", path)
	}

	checksum, err := checksumFile(path)
	if err != nil {
		return nil, fmt.Errorf("launcher: checksum %s: %w", path, err)
	}

	if wantChecksum != "" && checksum != wantChecksum {
		return nil, fmt.Errorf("launcher: checksum mismatch for %s: got %s, want %s", path, checksum, wantChecksum)
	}

	return &Resolved{Path: path, Checksum: checksum}, nil
}

func checksumFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
