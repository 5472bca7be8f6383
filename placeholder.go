package sqlsession

import "strings"

// countPlaceholders returns the number of positional "?" placeholders in
// query. Placeholders inside string literals, quoted identifiers and
// comments are not counted. Unterminated literals and comments run to the
// end of the text; the server reports them as syntax errors.
func countPlaceholders(query string) int {
	n := 0
	for i := 0; i < len(query); i++ {
		switch c := query[i]; c {
		case '?':
			n++
		case '\'', '"', '`':
			i = skipQuoted(query, i, c)
		case '-':
			if i+1 < len(query) && query[i+1] == '-' {
				i = skipLine(query, i)
			}
		case '/':
			if i+1 < len(query) && query[i+1] == '*' {
				end := strings.Index(query[i+2:], "*/")
				if end < 0 {
					return n
				}
				i += end + 3
			}
		}
	}
	return n
}

// skipQuoted returns the index of the quote closing the literal opened at
// start. A doubled quote and a backslash escape stay inside the literal.
func skipQuoted(query string, start int, quote byte) int {
	for i := start + 1; i < len(query); i++ {
		switch query[i] {
		case '\\':
			if quote != '`' {
				i++
			}
		case quote:
			if i+1 < len(query) && query[i+1] == quote {
				i++
				continue
			}
			return i
		}
	}
	return len(query)
}

func skipLine(query string, start int) int {
	end := strings.IndexByte(query[start:], '\n')
	if end < 0 {
		return len(query)
	}
	return start + end
}

// isBlank reports whether query holds nothing but whitespace, comments and semicolons.
func isBlank(query string) bool {
	for i := 0; i < len(query); i++ {
		switch c := query[i]; c {
		case ' ', '\t', '\n', '\r', '\f', '\v', ';':
		case '-':
			if i+1 < len(query) && query[i+1] == '-' {
				i = skipLine(query, i)
				continue
			}
			return false
		case '/':
			if i+1 < len(query) && query[i+1] == '*' {
				end := strings.Index(query[i+2:], "*/")
				if end < 0 {
					return true
				}
				i += end + 3
				continue
			}
			return false
		default:
			return false
		}
	}
	return true
}
