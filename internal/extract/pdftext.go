package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// The PDF path deliberately avoids a full format parser. Text-showing
// operators carry their operands as parenthesized literal strings, so a
// structural scan of the raw bytes recovers most text from uncompressed
// content streams. Compressed or image-only PDFs systematically fail the
// substance threshold; that is the intended trade-off.

const (
	// minLiteralStrings is the point below which the blind scan is
	// assumed to have missed a compressed content stream and the
	// stream regions are scanned as well.
	minLiteralStrings = 10

	// streamScanBytes bounds how far into each stream region the
	// rescue scan looks.
	streamScanBytes = 5000
)

var (
	literalStringRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
	textObjectRe    = regexp.MustCompile(`(?s)BT(.*?)ET`)
	streamRe        = regexp.MustCompile(`(?s)stream\r?\n(.*?)endstream`)

	// A literal that is only whitespace, digits, and punctuation is PDF
	// structure (coordinates, names, dates), not prose.
	junkLiteralRe = regexp.MustCompile(`^[\s\d\W]+$`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// scrapePDFText runs the structural best-effort extraction over raw PDF
// bytes and returns cleaned text, possibly empty.
func scrapePDFText(data []byte) string {
	text := decodeBytes(data)

	parts := literalStrings(text)
	for _, m := range textObjectRe.FindAllStringSubmatch(text, -1) {
		parts = append(parts, literalStrings(m[1])...)
	}

	if len(parts) < minLiteralStrings {
		for _, m := range streamRe.FindAllStringSubmatch(text, -1) {
			region := m[1]
			if len(region) > streamScanBytes {
				region = region[:streamScanBytes]
			}
			parts = append(parts, literalStrings(region)...)
		}
	}

	joined := strings.Join(parts, " ")
	joined = whitespaceRe.ReplaceAllString(joined, " ")
	joined = stripControl(joined)
	joined = strings.TrimSpace(joined)
	return truncateRunes(joined, maxPDFTextChars)
}

// decodeBytes interprets raw bytes as UTF-8 when valid and otherwise
// falls back to a single-byte codepage, so extraction never fails on
// encoding alone.
func decodeBytes(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}

// literalStrings extracts and unescapes all parenthesized literal
// strings in s, discarding ones that cannot be prose.
func literalStrings(s string) []string {
	var out []string
	for _, m := range literalStringRe.FindAllStringSubmatch(s, -1) {
		candidate := unescapeLiteral(m[1])
		if keepLiteral(candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

func keepLiteral(s string) bool {
	if utf8.RuneCountInString(s) < 3 {
		return false
	}
	return !junkLiteralRe.MatchString(s)
}

// unescapeLiteral resolves PDF backslash escapes: named escapes, octal
// byte values (up to three digits), escaped delimiters, and line
// continuations.
func unescapeLiteral(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch n := s[i]; n {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case '(', ')', '\\':
			sb.WriteByte(n)
		case '\n':
			// Line continuation: the backslash-newline pair vanishes.
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, err := strconv.ParseUint(s[i:j], 8, 16)
			if err == nil && v < 256 {
				sb.WriteByte(byte(v))
			}
			i = j - 1
		default:
			sb.WriteByte(n)
		}
	}
	return sb.String()
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
