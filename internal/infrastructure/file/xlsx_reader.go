package file

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrEmptyWorkbook = errors.New("workbook has no sheets")

// XLSXReader yields the rows of the first sheet keyed by the header row.
type XLSXReader struct {
	book   *excelize.File
	header []string
	rows   [][]string
	next   int
}

func OpenXLSX(path string) (*XLSXReader, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx %s: %w", path, err)
	}

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		book.Close()
		return nil, ErrEmptyWorkbook
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		book.Close()
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	r := &XLSXReader{book: book}
	if len(rows) > 0 {
		r.header = make([]string, len(rows[0]))
		for i, name := range rows[0] {
			r.header[i] = strings.ToUpper(strings.TrimSpace(name))
		}
		r.rows = rows[1:]
	}
	return r, nil
}

// Total counts data rows, blank ones included.
func (r *XLSXReader) Total() int64 {
	return int64(len(r.rows))
}

func (r *XLSXReader) Next() (map[string]string, error) {
	if r.next >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.next]
	r.next++

	record := make(map[string]string, len(r.header))
	for i, name := range r.header {
		if name == "" {
			continue
		}
		if i < len(row) {
			record[name] = strings.TrimSpace(row[i])
		} else {
			record[name] = ""
		}
	}
	return record, nil
}

func (r *XLSXReader) Close() error {
	return r.book.Close()
}
