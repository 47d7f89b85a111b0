package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/sitelens-cli/internal/analysis"
)

// Parser reads one tabular file format into an analysis.Table.
type Parser interface {
	CanParse(filename string) bool
	Parse(name string, r io.Reader, opt Options) (*analysis.Table, error)
}

// Options extends the table options with spreadsheet sheet selection.
type Options struct {
	Table analysis.Options
	// SheetName selects an XLSX sheet; SheetIndex (1-based) is used when empty.
	SheetName  string
	SheetIndex int
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ErrUnsupported indicates a format is not supported yet.
var ErrUnsupported = errors.New("unsupported table format")

// Parse selects a parser by the file name and reads the table from r.
func Parse(name string, r io.Reader, opt Options) (*analysis.Table, error) {
	for _, p := range registry {
		if p.CanParse(name) {
			return p.Parse(filepath.Base(name), r, opt)
		}
	}
	return nil, fmt.Errorf("%s: %w", filepath.Base(name), ErrUnsupported)
}

// ParseFile opens path and parses it with the matching parser.
func ParseFile(path string, opt Options) (*analysis.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return Parse(path, f, opt)
}

func init() {
	Register(csvParser{})
	Register(xlsxParser{})
}
