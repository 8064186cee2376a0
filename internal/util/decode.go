package util

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
)

// DecodeText turns raw bytes of unknown encoding into a string.
//
// Strict UTF-8 is tried first, then UTF-16LE (only when a BOM is present or
// the bytes look like little-endian 16-bit text), GB18030 and Big5. A
// candidate is rejected if decoding introduced replacement characters. When
// every strict attempt fails the bytes are decoded as lossy UTF-8.
func DecodeText(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, utf8BOM))
	}

	if looksLikeUTF16LE(data) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		if s, ok := decodeStrict(dec, data); ok {
			return s
		}
	}

	for _, enc := range []encoding.Encoding{simplifiedchinese.GB18030, traditionalchinese.Big5} {
		if s, ok := decodeStrict(enc.NewDecoder(), data); ok {
			return s
		}
	}

	return strings.ToValidUTF8(string(data), "\uFFFD")
}

func decodeStrict(dec *encoding.Decoder, data []byte) (string, bool) {
	out, err := dec.Bytes(data)
	if err != nil {
		return "", false
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}

// looksLikeUTF16LE reports a BOM, or a high share of zero high bytes
func looksLikeUTF16LE(data []byte) bool {
	if bytes.HasPrefix(data, utf16LEBOM) {
		return true
	}
	if len(data) < 2 || len(data)%2 != 0 {
		return false
	}

	pairs := len(data) / 2
	zeros := 0
	for i := 1; i < len(data); i += 2 {
		if data[i] == 0 {
			zeros++
		}
	}
	return zeros*10 >= pairs*3
}
