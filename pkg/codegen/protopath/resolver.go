package protopath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SchemaFile is a single schema definition to compile
type SchemaFile struct {
	// Path is the absolute path of the file
	Path string
	// IncludeBase is the include root the file is resolved against
	IncludeBase string
	// Name is Path relative to IncludeBase, slash separated. This is the name
	// the compiler and the descriptor set know the file by.
	Name string
}

// Layout describes where the primary schemas and shared definitions live
type Layout struct {
	// Root is the tool's own location. Relative directories, and relative
	// extra files when no base path is set, are resolved against it.
	Root string
	// SchemaDir is scanned non-recursively for schema files
	SchemaDir string
	// SharedIncludes are include roots that are always registered
	SharedIncludes []string
	// SharedInputs are files inside SharedIncludes that are always compiled,
	// ahead of the primary schemas
	SharedInputs []string
	// Suffix selects schema files in SchemaDir, e.g. ".proto"
	Suffix string
}

// ExtraSpec is the externally supplied list of additional schema files
type ExtraSpec struct {
	// Raw is the space-separated list of paths
	Raw string
	// BasePath is joined to every relative entry of Raw when HasBasePath is set
	BasePath    string
	HasBasePath bool
}

// FileSet is the resolved input of a generation run
type FileSet struct {
	Files        []SchemaFile
	IncludePaths []string
}

// Names returns the compiler-facing names of all files, in order
func (fs *FileSet) Names() []string {
	names := make([]string, len(fs.Files))
	for i, f := range fs.Files {
		names[i] = f.Name
	}
	return names
}

// ParseExtra splits a space-separated path list. Empty tokens produced by
// repeated or trailing spaces are dropped.
func ParseExtra(raw string) []string {
	var paths []string
	for _, token := range strings.Split(raw, " ") {
		if token == "" {
			continue
		}
		paths = append(paths, token)
	}
	return paths
}

// Resolve computes the files and include paths for a run. Shared inputs come
// first, then primary files in directory order, then extra files in the order
// they appear in extra.Raw.
func Resolve(layout Layout, extra ExtraSpec) (*FileSet, error) {
	root := layout.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		root = wd
	}

	set := &FileSet{}
	includes := newOrderedSet()
	seenFiles := newOrderedSet()
	seenNames := make(map[string]string)

	addFile := func(f SchemaFile) error {
		key := f.Path
		if real, err := filepath.EvalSymlinks(f.Path); err == nil {
			key = real
		}
		if !seenFiles.add(key) {
			return nil
		}
		if other, ok := seenNames[f.Name]; ok {
			return fmt.Errorf("%w: %s and %s are both named %q", ErrShadowedName, other, f.Path, f.Name)
		}
		if other, ok := shadowedBy(f, includes.items); ok {
			return fmt.Errorf("%w: %s is found first in an earlier include path as %s", ErrShadowedName, f.Path, other)
		}
		seenNames[f.Name] = f.Path
		set.Files = append(set.Files, f)
		return nil
	}

	for _, shared := range layout.SharedIncludes {
		includes.add(absUnder(root, shared))
	}

	for _, input := range layout.SharedInputs {
		f, err := sharedFile(absUnder(root, input), includes.items)
		if err != nil {
			return nil, err
		}
		if err := addFile(f); err != nil {
			return nil, err
		}
	}

	schemaDir := absUnder(root, layout.SchemaDir)
	includes.add(schemaDir)

	entries, err := os.ReadDir(schemaDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSchemaDirNotFound, schemaDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), layout.Suffix) {
			continue
		}
		err := addFile(SchemaFile{
			Path:        filepath.Join(schemaDir, entry.Name()),
			IncludeBase: schemaDir,
			Name:        entry.Name(),
		})
		if err != nil {
			return nil, err
		}
	}

	for _, token := range ParseExtra(extra.Raw) {
		path, err := ResolveExtra(root, token, extra)
		if err != nil {
			return nil, err
		}
		base := filepath.Dir(path)
		includes.add(base)
		err = addFile(SchemaFile{
			Path:        path,
			IncludeBase: base,
			Name:        filepath.Base(path),
		})
		if err != nil {
			return nil, err
		}
	}

	set.IncludePaths = includes.items
	return set, nil
}

// ResolveExtra resolves one entry of the extra files list. Absolute entries
// are used unmodified; relative ones are joined to the base path, or to root
// when there is none. The result is canonicalized against the filesystem.
func ResolveExtra(root, token string, extra ExtraSpec) (string, error) {
	path := token
	if !filepath.IsAbs(path) {
		if extra.HasBasePath {
			path = filepath.Join(absUnder(root, extra.BasePath), path)
		} else {
			path = filepath.Join(root, path)
		}
	}

	canonical, err := Canonicalize(path)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrUnresolvablePath, path, err)
	}
	return canonical, nil
}

// Canonicalize returns the absolute path with all symlinks evaluated. The
// path must exist and must not be a directory.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(real)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", errors.New("is a directory")
	}
	return real, nil
}

// sharedFile names a shared input relative to the include root holding it
func sharedFile(path string, includes []string) (SchemaFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return SchemaFile{}, fmt.Errorf("%w: %q: %w", ErrUnresolvablePath, path, err)
	}
	if info.IsDir() {
		return SchemaFile{}, fmt.Errorf("%w: %q: is a directory", ErrUnresolvablePath, path)
	}

	for _, include := range includes {
		rel, err := filepath.Rel(include, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return SchemaFile{Path: path, IncludeBase: include, Name: filepath.ToSlash(rel)}, nil
	}
	return SchemaFile{}, fmt.Errorf("%w: %q is not below any shared include path", ErrUnresolvablePath, path)
}

// shadowedBy reports a different file with the same name in an include path
// that comes before f's own. The compiler searches include paths in order and
// would read that file instead of f.
func shadowedBy(f SchemaFile, includes []string) (string, bool) {
	own, err := os.Stat(f.Path)
	if err != nil {
		return "", false
	}
	for _, include := range includes {
		if include == f.IncludeBase {
			break
		}
		candidate := filepath.Join(include, filepath.FromSlash(f.Name))
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() || os.SameFile(own, info) {
			continue
		}
		return candidate, true
	}
	return "", false
}

func absUnder(root, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(root, path)
}

// orderedSet keeps first-insertion order
type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(item string) bool {
	if _, ok := s.seen[item]; ok {
		return false
	}
	s.seen[item] = struct{}{}
	s.items = append(s.items, item)
	return true
}
