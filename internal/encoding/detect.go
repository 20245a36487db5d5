package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var boms = [][]byte{
	{0xEF, 0xBB, 0xBF}, // UTF-8
	{0xFF, 0xFE},       // UTF-16 LE
	{0xFE, 0xFF},       // UTF-16 BE
}

// NewUTF8Reader detects the encoding of the input and returns a reader that
// decodes it to UTF-8. Snapshot files written by the app are plain UTF-8;
// the rest of this handles files that passed through mail clients or older
// Windows tooling on their way back to us.
//
// Detection order:
//  1. BOM (UTF-8 BOM stripped, UTF-16 decoded)
//  2. Valid UTF-8 passes through unchanged
//  3. chardet heuristics for common single-byte charsets
//  4. Fallback to Windows-1252
func NewUTF8Reader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)

	buf, err := br.Peek(4096)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("peek: %w", err)
	}

	for _, bom := range boms {
		if bytes.HasPrefix(buf, bom) {
			// BOMOverride consumes the marker and picks the matching
			// UTF-8/UTF-16 decoder on its own.
			decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
			return transform.NewReader(br, decoder), nil
		}
	}

	if utf8.Valid(buf) {
		return br, nil
	}

	if result, detectErr := chardet.NewTextDetector().DetectBest(buf); detectErr == nil {
		switch result.Charset {
		case "UTF-8":
			return br, nil
		case "ISO-8859-1", "windows-1252":
			return transform.NewReader(br, charmap.Windows1252.NewDecoder()), nil
		case "ISO-8859-15":
			return transform.NewReader(br, charmap.ISO8859_15.NewDecoder()), nil
		case "ISO-8859-9":
			return transform.NewReader(br, charmap.ISO8859_9.NewDecoder()), nil
		}
	}

	return transform.NewReader(br, charmap.Windows1252.NewDecoder()), nil
}
