package codegen

import (
	"fmt"
	"os"
	"path/filepath"
)

// GeneratedFile represents a single generated file
type GeneratedFile struct {
	Path    string // Relative path within output directory
	Content []byte
	Size    int64
}

// NewGeneratedFile builds a GeneratedFile and fills in its size
func NewGeneratedFile(path string, content []byte) GeneratedFile {
	return GeneratedFile{
		Path:    path,
		Content: content,
		Size:    int64(len(content)),
	}
}

// WriteFiles writes every file below dir, creating parent directories as
// needed. Existing files are truncated.
func WriteFiles(dir string, files []GeneratedFile) error {
	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(path, f.Content, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
	}
	return nil
}
