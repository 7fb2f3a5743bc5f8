package bank

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bankfeed/bankfeed/internal/model"
)

// Parser converts a bank statement file into statement records.
type Parser interface {
	Parse(r io.Reader) ([]model.StatementRecord, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers    map[string]Parser
	extensions map[string]string
}

// FileInfo describes a statement file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers:    make(map[string]Parser),
		extensions: make(map[string]string),
	}
}

// Register adds a parser and the file extensions it handles by default.
// Panics on duplicate format.
func (r *Registry) Register(p Parser, exts ...string) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
	for _, ext := range exts {
		r.extensions[strings.ToLower(ext)] = key
	}
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// ForFile returns the parser for a file: the named format when set,
// otherwise the one registered for the file extension.
func (r *Registry) ForFile(name, format string) (Parser, error) {
	if format != "" {
		if p := r.Get(format); p != nil {
			return p, nil
		}
		return nil, fmt.Errorf("unknown statement format %q", format)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if key, ok := r.extensions[ext]; ok {
		return r.parsers[key], nil
	}
	return nil, fmt.Errorf("no statement format for %s", name)
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&StatementCSVParser{}, ".csv")
	r.Register(&ChaseParser{})
	r.Register(&MT940Parser{}, ".sta", ".mt940")
	r.Register(&OFXParser{}, ".ofx", ".qfx")
	return r
}

// importDir is the subdirectory for statement files.
const importDir = "import"

// processedDir is the subdirectory for archived statement files.
const processedDir = "import/processed"

// Scan returns statement files in <repoRoot>/import/, sorted by name.
func Scan(repoRoot string) ([]FileInfo, error) {
	dir := filepath.Join(repoRoot, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// Select returns the files whose name starts with selector (case-insensitive).
func Select(files []FileInfo, selector string) []FileInfo {
	prefix := strings.ToLower(selector)
	var out []FileInfo
	for _, f := range files {
		if strings.HasPrefix(strings.ToLower(f.Name), prefix) {
			out = append(out, f)
		}
	}
	return out
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(repoRoot, fileName string) error {
	src := filepath.Join(repoRoot, importDir, fileName)
	dstDir := filepath.Join(repoRoot, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
