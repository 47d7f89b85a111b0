package analysis

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads one worksheet of a workbook into a Table. The first row is
// the header. If sheetName is empty the sheet is chosen by its 1-based
// sheetIndex, defaulting to the first sheet.
func ReadXLSX(r io.Reader, name string, opt Options, sheetName string, sheetIndex int) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return NewTable(name, nil, nil, opt), nil
	}
	target := ""
	if sheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, sheetName) {
				target = s
				break
			}
		}
		if target == "" {
			return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				sheetName, name, strings.Join(sheets, ", "))
		}
	} else {
		idx := sheetIndex
		if idx <= 0 {
			idx = 1
		}
		if idx > len(sheets) {
			return nil, fmt.Errorf("sheet index %d out of range in workbook '%s' (%d sheets)", idx, name, len(sheets))
		}
		target = sheets[idx-1]
	}

	rows, err := f.GetRows(target)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", target, err)
	}
	// skip leading blank rows before the header
	for len(rows) > 0 && blankRecord(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return NewTable(name, nil, nil, opt), nil
	}
	header := trimBOM(rows[0])
	data := make([][]string, 0, len(rows)-1)
	for _, rec := range rows[1:] {
		if blankRecord(rec) {
			continue
		}
		data = append(data, rec)
	}
	return NewTable(name, header, data, opt), nil
}
