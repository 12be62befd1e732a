// File path: internal/casedata/encoding.go
package casedata

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// readCaseFile loads a ruling document trying the encodings the corpus
// actually ships: UTF-8 first, then EUC-KR/CP949, then UTF-16 variants. When
// nothing decodes cleanly the UTF-8 reading keeps only its valid bytes.
func readCaseFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read case file: %w", err)
	}
	return decodeCaseText(data), nil
}

func decodeCaseText(data []byte) string {
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, utf8BOM))
	}
	decoders := []*encoding.Decoder{
		korean.EUCKR.NewDecoder(),
		unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(),
		unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder(),
		unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder(),
	}
	for _, dec := range decoders {
		out, err := dec.Bytes(data)
		if err != nil || !utf8.Valid(out) {
			continue
		}
		// The decoders substitute U+FFFD instead of failing, so a
		// replacement rune means the candidate encoding was wrong.
		if bytes.ContainsRune(out, utf8.RuneError) {
			continue
		}
		return string(out)
	}
	return strings.ToValidUTF8(string(data), "")
}
