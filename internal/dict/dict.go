// Package dict parses the two key/value table encodings TVPaint uses
// for metadata: a length-prefixed UTF-16BE table (project/scene/clip
// info nodes) and a nested-section UTF-8 "ini-like" table (LEXT image
// UID tables, XSRC, sound/label/object -info nodes).
package dict

import (
	"bufio"
	"encoding/binary"
	"strings"
	"unicode/utf16"

	"github.com/tvpio/tvpp/internal/tvperr"
)

// ParseUTF16 decodes a length-prefixed UTF-16BE key/value table:
// u32 BE field_count, then field_count*2 entries of
// {u16 BE length_in_code_units, UTF-16BE payload}. Interleaved entries
// form (key, value) pairs in order. Values under keys beginning with
// "History" are rot-13 obfuscated and are decoded before being
// returned, per the History-field convention documented in §4.3.
func ParseUTF16(data []byte) (map[string]string, error) {
	if len(data) < 4 {
		return nil, tvperr.New(tvperr.KindTruncatedChunk, "UTF-16 dict header needs 4 bytes, have %d", len(data))
	}
	fieldCount := binary.BigEndian.Uint32(data[0:4])

	cursor := 4
	entries := make([]string, 0, fieldCount*2)
	for e := uint32(0); e < fieldCount*2; e++ {
		if cursor+2 > len(data) {
			return nil, tvperr.New(tvperr.KindTruncatedChunk, "UTF-16 dict entry %d length truncated", e)
		}
		length := int(binary.BigEndian.Uint16(data[cursor : cursor+2]))
		cursor += 2
		byteLen := length * 2
		if cursor+byteLen > len(data) {
			return nil, tvperr.New(tvperr.KindTruncatedChunk,
				"UTF-16 dict entry %d needs %d bytes, only %d remain", e, byteLen, len(data)-cursor)
		}
		entries = append(entries, decodeUTF16BE(data[cursor:cursor+byteLen]))
		cursor += byteLen
	}

	out := make(map[string]string, fieldCount)
	for i := 0; i+1 < len(entries); i += 2 {
		key, value := entries[i], entries[i+1]
		if strings.HasPrefix(key, "History") {
			value = rot13(value)
		}
		out[key] = value
	}
	return out, nil
}

func decodeUTF16BE(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.BigEndian.Uint16(b[i*2 : i*2+2])
	}
	return string(utf16.Decode(units))
}

// rot13 applies the classic Caesar-13 substitution to ASCII letters,
// leaving every other byte untouched. TVPaint uses this to lightly
// obscure (not encrypt) project history fields.
func rot13(s string) string {
	out := []byte(s)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z':
			out[i] = 'a' + (c-'a'+13)%26
		case c >= 'A' && c <= 'Z':
			out[i] = 'A' + (c-'A'+13)%26
		}
	}
	return string(out)
}

// ParseINI parses the section-based UTF-8 dictionary format used by
// LEXT and XSRC: a "[section]" header sets the current section, and
// "key=value" lines under it are exposed flattened as "section.key",
// keeping the public shape identical to ParseUTF16's
// map[string]string. Sections do not nest: each header replaces the
// previous section, and an empty "[]" header returns to top-level keys.
func ParseINI(data []byte) (map[string]string, error) {
	out := make(map[string]string)
	var sectionStack []string

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			name := strings.TrimSpace(line[1 : len(line)-1])
			if name == "" {
				sectionStack = nil
				continue
			}
			sectionStack = []string{name}
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue // tolerate stray lines the way unknown clip idents are tolerated
		}
		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		if len(sectionStack) > 0 {
			key = strings.Join(sectionStack, ".") + "." + key
		}
		out[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, tvperr.Wrap(tvperr.KindIO, err, "scan ini dictionary")
	}
	return out, nil
}
