package catalogimport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	"github.com/zeebo/xxh3"
	"golang.org/x/text/transform"
)

type ImportSource interface {
	Open(ctx context.Context, sourcePath string) (io.ReadCloser, error)
}

// RecordReader streams records of a structured export keyed by column name.
type RecordReader interface {
	Next() (map[string]string, error)
	Total() int64
	Close() error
}

type RecordSource interface {
	OpenRecords(ctx context.Context, sourcePath string, format catalog.SourceFormat, encodingName string) (RecordReader, error)
}

type rowStream interface {
	Next() (catalog.SourceRow, error)
	Close() error
}

type delimitedStream struct {
	closer io.Closer
	reader *bufio.Reader
	delim  string
	first  bool
}

func newDelimitedStream(rc io.ReadCloser, encodingName, delim string) (*delimitedStream, error) {
	enc, ok := EncodingByName(encodingName)
	if !ok {
		return nil, fmt.Errorf("%w: unknown encoding %q", ErrUndecodableSource, encodingName)
	}
	return &delimitedStream{
		closer: rc,
		reader: bufio.NewReaderSize(transform.NewReader(rc, enc.NewDecoder()), 64*1024),
		delim:  delim,
		first:  true,
	}, nil
}

func (s *delimitedStream) Next() (catalog.SourceRow, error) {
	for {
		line, err := s.reader.ReadString('\n')
		if line == "" && err != nil {
			return catalog.SourceRow{}, err
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return catalog.SourceRow{}, err
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		if s.first {
			s.first = false
			if IsHeaderLine(line, s.delim) {
				continue
			}
		}
		return ParseLine(line, s.delim), nil
	}
}

func (s *delimitedStream) Close() error {
	return s.closer.Close()
}

type recordStream struct {
	records RecordReader
}

func (s recordStream) Next() (catalog.SourceRow, error) {
	record, err := s.records.Next()
	if err != nil {
		return catalog.SourceRow{}, err
	}
	return ParseRecord(record), nil
}

func (s recordStream) Close() error {
	return s.records.Close()
}

// scanDelimited counts non-blank data lines, excluding a TMP_ID header, and
// hashes the raw bytes.
func scanDelimited(r io.Reader) (int64, string, error) {
	hasher := xxh3.New()
	scanner := bufio.NewScanner(io.TeeReader(r, hasher))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var count int64
	first := true
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			line = bytes.TrimPrefix(line, []byte("\xef\xbb\xbf"))
			if isHeaderBytes(line) {
				continue
			}
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, "", err
	}
	return count, checksumHex(hasher.Sum64()), nil
}

func isHeaderBytes(line []byte) bool {
	if len(line) < 6 || !bytes.EqualFold(line[:6], []byte("TMP_ID")) {
		return false
	}
	return len(line) == 6 || strings.ContainsRune("#;,\t ", rune(line[6]))
}

func checksumReader(r io.Reader) (string, error) {
	hasher := xxh3.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", err
	}
	return checksumHex(hasher.Sum64()), nil
}

func checksumHex(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

// shortHash is a stable tag for names that slugify to nothing.
func shortHash(s string) string {
	return strconv.FormatUint(xxh3.HashString(strings.ToLower(strings.TrimSpace(s))), 16)
}
