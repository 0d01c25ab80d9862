package catalogimport

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const (
	DefaultSampleSize = 50 * 1024
	sampleLines       = 5
	minPlausibleCols  = 2
)

// Delimiters in detection priority order.
var candidateDelimiters = []string{"#", ";", ",", "\t"}

// Tried after the hint and the detector's proposal.
var fallbackEncodings = []string{"cp1251", "windows-1251", "utf-8-sig", "utf-8", "iso-8859-1"}

var knownEncodings = map[string]encoding.Encoding{
	"utf-8":        unicode.UTF8BOM,
	"utf8":         unicode.UTF8BOM,
	"utf-8-sig":    unicode.UTF8BOM,
	"cp1251":       charmap.Windows1251,
	"windows-1251": charmap.Windows1251,
	"koi8-r":       charmap.KOI8R,
	"iso-8859-5":   charmap.ISO8859_5,
	"ibm866":       charmap.CodePage866,
	"cp866":        charmap.CodePage866,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"latin-1":      charmap.ISO8859_1,
}

// EncodingByName resolves a label such as "cp1251" or "utf-8-sig".
func EncodingByName(name string) (encoding.Encoding, bool) {
	enc, ok := knownEncodings[strings.ToLower(strings.TrimSpace(name))]
	return enc, ok
}

type Detection struct {
	Encoding  string
	Delimiter string
	// Proposed is what the statistical detector suggested, if anything.
	Proposed   string
	Confidence int
}

type Detector struct {
	logger *zap.Logger
}

func NewDetector(logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{logger: logger}
}

// Detect picks the first candidate encoding that decodes the sample's leading
// lines cleanly and yields a plausible field split.
func (d *Detector) Detect(sample []byte, encodingHint, delimiterHint string) (Detection, error) {
	lines := leadingLines(sample)
	candidates := make([]string, 0, len(fallbackEncodings)+2)
	if hint := strings.ToLower(strings.TrimSpace(encodingHint)); hint != "" {
		candidates = append(candidates, hint)
	}

	var detection Detection
	if result, err := chardet.NewTextDetector().DetectBest(sample); err == nil && result != nil {
		detection.Proposed = strings.ToLower(result.Charset)
		detection.Confidence = result.Confidence
		if _, ok := EncodingByName(detection.Proposed); ok {
			candidates = append(candidates, detection.Proposed)
		}
		d.logger.Debug("charset proposed",
			zap.String("charset", result.Charset),
			zap.Int("confidence", result.Confidence),
		)
	}
	candidates = append(candidates, fallbackEncodings...)

	decodedAny := false
	tried := make(map[string]bool, len(candidates))
	for _, name := range candidates {
		if tried[name] {
			continue
		}
		tried[name] = true

		enc, ok := EncodingByName(name)
		if !ok {
			d.logger.Warn("unknown encoding label skipped", zap.String("encoding", name))
			continue
		}

		text, err := decodeStrict(enc, lines)
		if err != nil {
			d.logger.Debug("encoding rejected", zap.String("encoding", name), zap.Error(err))
			continue
		}
		decodedAny = true

		first := firstLine(text)
		delim := delimiterHint
		if delim == "" {
			delim = detectDelimiter(first)
		}
		if first != "" && len(splitLine(first, delim)) < minPlausibleCols {
			d.logger.Debug("implausible field count", zap.String("encoding", name), zap.String("delimiter", delim))
			continue
		}

		detection.Encoding = name
		detection.Delimiter = delim
		return detection, nil
	}

	if decodedAny {
		return Detection{}, fmt.Errorf("%w: tried %s", ErrUnrecognizedLayout, strings.Join(candidates, ", "))
	}
	return Detection{}, fmt.Errorf("%w: tried %s", ErrUndecodableSource, strings.Join(candidates, ", "))
}

func detectDelimiter(line string) string {
	for _, d := range candidateDelimiters {
		if strings.Contains(line, d) {
			return d
		}
	}
	return candidateDelimiters[0]
}

// leadingLines returns the first complete lines of sample. The last line is
// dropped when the sample is full, since it may be cut mid-character.
func leadingLines(sample []byte) []byte {
	truncated := len(sample) >= DefaultSampleSize
	end := 0
	for i := 0; i < sampleLines; i++ {
		idx := bytes.IndexByte(sample[end:], '\n')
		if idx < 0 {
			if !truncated {
				end = len(sample)
			}
			break
		}
		end += idx + 1
	}
	return sample[:end]
}

func decodeStrict(enc encoding.Encoding, raw []byte) (string, error) {
	if enc == unicode.UTF8BOM {
		raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
		if !utf8.Valid(raw) {
			return "", errInvalidBytes
		}
		return string(raw), nil
	}

	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(out, utf8.RuneError) && !bytes.Contains(raw, []byte("\xef\xbf\xbd")) {
		return "", errInvalidBytes
	}
	return string(out), nil
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimRight(text, "\r")
}
