package helpers

import "unicode/utf8"

const hexChars = "0123456789ABCDEF"
const firstASCII = 0x20
const lastASCII = 0x7E
const firstHighSurrogate = 0xD800
const lastLowSurrogate = 0xDFFF

func canPrintWithoutEscape(c rune, quoteChar byte) bool {
	if c <= lastASCII {
		return c >= firstASCII && c != '\\' && c != rune(quoteChar)
	}
	return c != '\uFEFF' && c != '\u2028' && c != '\u2029' && (c < firstHighSurrogate || c > lastLowSurrogate)
}

// Quotes text as a single-quoted JavaScript string literal. This is what the
// rooted export assignments and restored "from" clauses use.
func QuoteSingle(text string) []byte {
	return internalQuote(text, '\'')
}

func QuoteForJSON(text string) []byte {
	return internalQuote(text, '"')
}

func internalQuote(text string, quoteChar byte) []byte {
	bytes := make([]byte, 0, len(text)+2)
	bytes = append(bytes, quoteChar)

	for i := 0; i < len(text); {
		c, width := utf8.DecodeRuneInString(text[i:])

		// Fast path: a run of characters that don't need escaping
		if c != utf8.RuneError && canPrintWithoutEscape(c, quoteChar) {
			start := i
			i += width
			for i < len(text) {
				c, width = utf8.DecodeRuneInString(text[i:])
				if c == utf8.RuneError || !canPrintWithoutEscape(c, quoteChar) {
					break
				}
				i += width
			}
			bytes = append(bytes, text[start:i]...)
			continue
		}
		i += width

		switch c {
		case '\b':
			bytes = append(bytes, "\\b"...)
		case '\f':
			bytes = append(bytes, "\\f"...)
		case '\n':
			bytes = append(bytes, "\\n"...)
		case '\r':
			bytes = append(bytes, "\\r"...)
		case '\t':
			bytes = append(bytes, "\\t"...)
		case '\\':
			bytes = append(bytes, "\\\\"...)
		case rune(quoteChar):
			bytes = append(bytes, '\\', quoteChar)
		default:
			if c > 0xFFFF {
				c -= 0x10000
				bytes = appendUnicodeEscape(bytes, firstHighSurrogate+((c>>10)&0x3FF))
				c = 0xDC00 + (c & 0x3FF)
			}
			bytes = appendUnicodeEscape(bytes, c)
		}
	}

	return append(bytes, quoteChar)
}

func appendUnicodeEscape(bytes []byte, c rune) []byte {
	return append(bytes, '\\', 'u', hexChars[c>>12], hexChars[(c>>8)&15], hexChars[(c>>4)&15], hexChars[c&15])
}
