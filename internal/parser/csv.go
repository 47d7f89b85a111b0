package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/sitelens-cli/internal/analysis"
)

type csvParser struct{}

func (csvParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".txt")
}

func (csvParser) Parse(name string, r io.Reader, opt Options) (*analysis.Table, error) {
	t, err := analysis.ReadDelimited(r, name, opt.Table)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return t, nil
}
