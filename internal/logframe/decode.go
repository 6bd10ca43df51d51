package logframe

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names the text encoding of an input log.
type Encoding string

const (
	// EncodingAuto honours a UTF-8 or UTF-16 byte order mark and falls
	// back to UTF-8 when there is none.
	EncodingAuto Encoding = "auto"
	// EncodingUTF8 reads UTF-8, stripping an optional BOM.
	EncodingUTF8 Encoding = "utf-8"
	// EncodingUTF16LE reads UTF-16 little endian (E-Prime's default export).
	EncodingUTF16LE Encoding = "utf-16le"
	// EncodingUTF16BE reads UTF-16 big endian.
	EncodingUTF16BE Encoding = "utf-16be"
)

// ParseEncoding validates an encoding name. Matching is case-insensitive
// and "" means auto.
func ParseEncoding(name string) (Encoding, error) {
	switch enc := Encoding(strings.ToLower(strings.TrimSpace(name))); enc {
	case "":
		return EncodingAuto, nil
	case EncodingAuto, EncodingUTF8, EncodingUTF16LE, EncodingUTF16BE:
		return enc, nil
	case "utf8":
		return EncodingUTF8, nil
	case "utf-16", "utf16":
		return EncodingUTF16LE, nil
	default:
		return "", fmt.Errorf("unsupported encoding %q (supported: auto, utf-8, utf-16le, utf-16be)", name)
	}
}

// NewDecodingReader wraps r so that it yields UTF-8 text.
func NewDecodingReader(r io.Reader, enc Encoding) (io.Reader, error) {
	var t transform.Transformer
	switch enc {
	case EncodingAuto, "":
		t = unicode.BOMOverride(unicode.UTF8.NewDecoder())
	case EncodingUTF8:
		t = unicode.UTF8BOM.NewDecoder()
	case EncodingUTF16LE:
		t = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case EncodingUTF16BE:
		t = unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	default:
		return nil, fmt.Errorf("unsupported encoding %q", enc)
	}
	return transform.NewReader(r, t), nil
}

// ParseFile opens path, decodes it and parses its frames.
func ParseFile(path string, enc Encoding, p *Parser) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	defer file.Close()

	r, err := NewDecodingReader(file, enc)
	if err != nil {
		return nil, err
	}

	res, err := p.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return res, nil
}
