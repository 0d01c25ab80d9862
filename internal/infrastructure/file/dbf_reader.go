package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Valentin-Kaiser/go-dbase/dbase"
	"github.com/mohammadpnp/catalog-import/internal/application/catalogimport"
	"golang.org/x/text/encoding"
)

const defaultDBFCharset = "cp1251"

var ErrInvalidDBF = errors.New("invalid dbf file")

// Visual FoxPro code page marks for the charsets catalog exports use.
var dbfCodePages = map[string]byte{
	"cp1251":       0xC9,
	"windows-1251": 0xC9,
	"cp866":        0x65,
	"ibm866":       0x65,
}

// dbfConverter adapts an x/text encoding to go-dbase.
type dbfConverter struct {
	enc      encoding.Encoding
	codePage byte
}

func (c dbfConverter) Decode(in []byte) ([]byte, error) {
	return c.enc.NewDecoder().Bytes(in)
}

func (c dbfConverter) Encode(in []byte) ([]byte, error) {
	return c.enc.NewEncoder().Bytes(in)
}

func (c dbfConverter) CodePage() byte {
	return c.codePage
}

// DBFReader streams records of a dBASE table. Deleted records are skipped
// and values are trimmed.
type DBFReader struct {
	table *dbase.File
}

func OpenDBF(path, encodingName string) (*DBFReader, error) {
	if strings.TrimSpace(encodingName) == "" {
		encodingName = defaultDBFCharset
	}
	name := strings.ToLower(strings.TrimSpace(encodingName))
	enc, ok := catalogimport.EncodingByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown encoding %q", catalogimport.ErrUndecodableSource, encodingName)
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open dbf %s: %w", path, err)
	}
	table, err := dbase.OpenTable(&dbase.Config{
		Filename:   path,
		Converter:  dbfConverter{enc: enc, codePage: dbfCodePages[name]},
		TrimSpaces: true,
		// dBASE III and IV exports are not FoxPro tables.
		Untested: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDBF, err)
	}
	return &DBFReader{table: table}, nil
}

// Total is the record count from the header, deleted records included.
func (r *DBFReader) Total() int64 {
	return int64(r.table.RowsCount())
}

func (r *DBFReader) Next() (map[string]string, error) {
	for !r.table.EOF() {
		row, err := r.table.Next()
		if err != nil {
			return nil, fmt.Errorf("read dbf record: %w", err)
		}
		if row.Deleted {
			continue
		}

		values, err := row.ToMap()
		if err != nil {
			return nil, fmt.Errorf("decode dbf record %d: %w", row.Position, err)
		}
		out := make(map[string]string, len(values))
		for field, value := range values {
			out[strings.ToUpper(strings.TrimSpace(field))] = dbfValue(value)
		}
		return out, nil
	}
	return nil, io.EOF
}

func (r *DBFReader) Close() error {
	return r.table.Close()
}

func dbfValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(strings.Trim(v, "\x00"))
	case []byte:
		return strings.TrimSpace(strings.Trim(string(v), "\x00"))
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format("2006-01-02")
	}
	return strings.TrimSpace(fmt.Sprint(value))
}
