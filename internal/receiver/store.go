package receiver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrBadUID is returned for a UID that cannot be used as a path element.
var ErrBadUID = errors.New("invalid UID")

// Store writes received instances below Root as
// <study>/<series>/<sop>.dcm. Writes are atomic: a reader never sees a
// partial file.
type Store struct {
	Root string
}

// Save stores data and returns the path written.
func (s Store) Save(study, series, sop string, data []byte) (string, error) {
	for _, uid := range []string{study, series, sop} {
		if !validUID(uid) {
			return "", fmt.Errorf("%w: %q", ErrBadUID, uid)
		}
	}

	dir := filepath.Join(s.Root, study, series)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	path := filepath.Join(dir, sop+".dcm")

	tmp := filepath.Join(dir, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename file: %w", err)
	}
	return path, nil
}

// validUID accepts the DICOM UID alphabet: digits separated by dots.
func validUID(uid string) bool {
	if uid == "" || len(uid) > 64 || strings.HasPrefix(uid, ".") || strings.HasSuffix(uid, ".") {
		return false
	}
	for _, r := range uid {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}
