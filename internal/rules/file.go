package rules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/spice-statements/internal/common"
	"github.com/spf13/afero"
)

// FileBackend stores the rule document as a single YAML or JSON file.
type FileBackend struct {
	fs   afero.Fs
	path string
}

// NewFileBackend returns a backend for path on fs. A nil fs means the OS filesystem.
func NewFileBackend(fs afero.Fs, path string) *FileBackend {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileBackend{fs: fs, path: path}
}

// Path returns the rule file location.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads and decodes the rule file.
func (b *FileBackend) Load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(b.fs, b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &common.RuleStoreError{Op: "load", Source: b.path, Err: fmt.Errorf("rule file not found: %w", err)}
		}
		return nil, &common.RuleStoreError{Op: "load", Source: b.path, Err: err}
	}
	return Decode(data, b.path)
}

// Save encodes the document and replaces the rule file atomically: the new
// content goes to a temporary file in the same directory which is then renamed
// over the original.
func (b *FileBackend) Save(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(doc, FormatFor(b.path))
	if err != nil {
		return &common.RuleStoreError{Op: "save", Source: b.path, Err: err}
	}
	if err := b.writeAtomic(data); err != nil {
		return &common.RuleStoreError{Op: "save", Source: b.path, Err: err}
	}
	return nil
}

func (b *FileBackend) writeAtomic(data []byte) error {
	dir := filepath.Dir(b.path)
	if err := b.fs.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := afero.TempFile(b.fs, dir, "."+filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = b.fs.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}

	mode := os.FileMode(0o644)
	if info, statErr := b.fs.Stat(b.path); statErr == nil {
		mode = info.Mode().Perm()
	}
	if err := b.fs.Chmod(tmpName, mode); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := b.fs.Rename(tmpName, b.path); err != nil {
		cleanup()
		return fmt.Errorf("replace rule file: %w", err)
	}
	return nil
}
