package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/sitelens-cli/internal/analysis"
)

type xlsxParser struct{}

func (xlsxParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

func (xlsxParser) Parse(name string, r io.Reader, opt Options) (*analysis.Table, error) {
	t, err := analysis.ReadXLSX(r, name, opt.Table, opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return t, nil
}
