package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Spool holds uploaded audio on local disk until its job finishes.
// Each upload gets a unique file; the job runner deletes it afterwards.
type Spool struct {
	dir string
}

// NewSpool creates the spool directory if needed. An empty dir uses the
// system temp directory.
func NewSpool(dir string) (*Spool, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Spool{dir: dir}, nil
}

// Save writes r to a new spool file. The original filename's extension is
// kept so transcription backends can sniff the format.
func (s *Spool) Save(r io.Reader, filename string) (string, error) {
	tmp, err := os.CreateTemp(s.dir, "upload-*"+safeExt(filename))
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	path := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(path)
		return "", fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close: %w", err)
	}
	return path, nil
}

// Adopt moves an existing file into the spool. Rename is tried first; across
// filesystems the file is copied and the source removed.
func (s *Spool) Adopt(src string) (string, error) {
	dst := filepath.Join(s.dir, "upload-"+uuid.NewString()+safeExt(src))
	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}

	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", src, err)
	}
	path, err := s.Save(f, src)
	f.Close()
	if err != nil {
		return "", err
	}
	if err := os.Remove(src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("remove source: %w", err)
	}
	return path, nil
}

// Dir returns the spool directory path.
func (s *Spool) Dir() string { return s.dir }

// safeExt returns the lowercase extension of name if it is short and plain.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
