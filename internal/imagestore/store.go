package imagestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store writes detection crop images under a single directory and hands back
// stable relative paths. Filenames embed camera, plate and a millisecond
// timestamp; collisions within the same millisecond are accepted as negligible.
type Store struct {
	dir string
}

// NewStore ensures the target directory exists.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("imagestore: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("imagestore: create dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the crop bytes and returns the stored file path.
func (s *Store) Save(cameraID, plate string, data []byte, at time.Time) (string, error) {
	name := fmt.Sprintf("%s_%s_%d.jpg", sanitize(cameraID), sanitize(plate), at.UnixMilli())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("imagestore: write %s: %w", name, err)
	}
	return path, nil
}

// sanitize keeps filenames free of path separators and other surprises coming
// from untrusted OCR text.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
