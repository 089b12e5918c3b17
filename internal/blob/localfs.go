// Package blob is a minimal local-filesystem file store for resume uploads.
package blob

import (
	"io"
	"os"
	"path/filepath"
)

type LocalFS struct {
	Root string
}

func (l LocalFS) Put(relPath string, r io.Reader) (string, error) {
	clean := filepath.Clean(relPath)
	abs := filepath.Join(l.Root, clean)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(abs)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return clean, nil
}

func (l LocalFS) Open(relPath string) (*os.File, error) {
	clean := filepath.Clean(relPath)
	return os.Open(filepath.Join(l.Root, clean))
}

func (l LocalFS) Exists(relPath string) bool {
	clean := filepath.Clean(relPath)
	_, err := os.Stat(filepath.Join(l.Root, clean))
	return err == nil
}

func (l LocalFS) Delete(relPath string) error {
	clean := filepath.Clean(relPath)
	err := os.Remove(filepath.Join(l.Root, clean))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
