package sure

import (
	"fmt"
	"strings"
)

// Filenames on Linux are byte strings with no encoding guarantee, and
// the surefile format separates tokens with spaces. Bytes outside the
// printable range '!'..'~', and '=' itself, are stored as "=xx" with xx
// the lower-case hex of the byte.

// Escape encodes raw name bytes into the surefile representation.
func Escape(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, ch := range raw {
		if ch >= '!' && ch <= '~' && ch != '=' {
			b.WriteByte(ch)
		} else {
			fmt.Fprintf(&b, "=%02x", ch)
		}
	}
	return b.String()
}

// Unescape decodes an escaped name back into raw bytes.
func Unescape(text string) ([]byte, error) {
	buf := make([]byte, 0, len(text))
	phase := 0
	var tmp byte
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if phase == 0 {
			if ch == '=' {
				phase = 1
			} else {
				buf = append(buf, ch)
			}
			continue
		}
		tmp <<= 4
		switch {
		case ch >= '0' && ch <= '9':
			tmp |= ch - '0'
		case ch >= 'a' && ch <= 'f':
			tmp |= ch - 'a' + 10
		case ch >= 'A' && ch <= 'F':
			tmp |= ch - 'A' + 10
		default:
			return nil, fmt.Errorf("sure: invalid hex character %q in escape", ch)
		}
		phase++
		if phase == 3 {
			buf = append(buf, tmp)
			phase = 0
			tmp = 0
		}
	}
	if phase != 0 {
		return nil, fmt.Errorf("sure: truncated escape at end of %q", text)
	}
	return buf, nil
}
