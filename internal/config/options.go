package config

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/sitelens-cli/internal/analysis"
	"github.com/KaramelBytes/sitelens-cli/internal/pipeline"
)

// ParseDelimiter maps a delimiter setting to its rune; "" means auto.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	case "|":
		return '|', nil
	}
	return 0, fmt.Errorf("unsupported delimiter: %q (use ','|';'|'|'|'tab')", s)
}

// ParseDecimal maps a decimal separator setting to its rune; "" means auto.
func ParseDecimal(s string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case ",", "comma":
		return ',', nil
	case ".", "dot":
		return '.', nil
	}
	return 0, fmt.Errorf("unsupported decimal separator: %q (use '.'|'comma')", s)
}

// ParseThousands maps a thousands separator setting to its rune; "" means auto.
func ParseThousands(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case ".":
		return '.', nil
	case "'":
		return '\'', nil
	case " ", "space":
		return ' ', nil
	}
	return 0, fmt.Errorf("unsupported thousands separator: %q (use ','|'.'|'space')", s)
}

// PipelineOptions converts the configured parsing locale and policies into
// pipeline options.
func (c *Global) PipelineOptions() (pipeline.Options, error) {
	opt := pipeline.DefaultOptions()
	if err := ApplyTableOptions(&opt.Table, c.Delimiter, c.DecimalSeparator, c.ThousandsSeparator); err != nil {
		return opt, err
	}
	if c.ZeroHoursPolicy != "" {
		p, err := pipeline.ParseZeroHoursPolicy(c.ZeroHoursPolicy)
		if err != nil {
			return opt, err
		}
		opt.ZeroHours = p
	}
	if c.DuplicateKeyPolicy != "" {
		p, err := pipeline.ParseDuplicateKeyPolicy(c.DuplicateKeyPolicy)
		if err != nil {
			return opt, err
		}
		opt.DuplicateKeys = p
	}
	opt.RequirePayroll = c.RequirePayroll
	return opt, nil
}

// ApplyTableOptions sets the non-empty separator settings on opt.
func ApplyTableOptions(opt *analysis.Options, delimiter, decimal, thousands string) error {
	if delimiter != "" {
		d, err := ParseDelimiter(delimiter)
		if err != nil {
			return err
		}
		opt.Delimiter = d
	}
	if decimal != "" {
		d, err := ParseDecimal(decimal)
		if err != nil {
			return err
		}
		opt.DecimalSeparator = d
	}
	if thousands != "" {
		t, err := ParseThousands(thousands)
		if err != nil {
			return err
		}
		opt.ThousandsSeparator = t
	}
	return nil
}
