package sqldb

import (
	"fmt"
	"strings"
	"unicode"
)

// Keywords that must never appear in generated SQL, even inside a CTE.
// Postgres allows data-modifying statements inside WITH, so the leading
// SELECT check alone is not enough.
var forbiddenKeywords = map[string]bool{
	"insert":   true,
	"update":   true,
	"delete":   true,
	"drop":     true,
	"alter":    true,
	"create":   true,
	"truncate": true,
	"grant":    true,
	"revoke":   true,
	"merge":    true,
	"copy":     true,
	"call":     true,
	"exec":     true,
	"execute":  true,
	"attach":   true,
	"detach":   true,
	"vacuum":   true,
	"reindex":  true,
	"pragma":   true,
}

// validateStatement enforces the read-only contract for generated SQL: one
// SELECT (or WITH) statement, no forbidden keywords, and pure ASCII outside
// single-quoted string literals. Literals are exempt so questions asked in
// other languages can still match non-English data values.
func validateStatement(sqlText string) error {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return fmt.Errorf("empty statement")
	}

	var (
		tokens   []string
		current  strings.Builder
		inSingle bool
		inDouble bool
		sawSemi  bool
	)

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	runes := []rune(trimmed)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case inSingle:
			if r == '\'' {
				if i+1 < len(runes) && runes[i+1] == '\'' {
					i++
					continue
				}
				inSingle = false
			}
		case inDouble:
			if r > unicode.MaxASCII {
				return fmt.Errorf("non-ascii identifier character %q", r)
			}
			if r == '"' {
				inDouble = false
			}
		default:
			if sawSemi && !unicode.IsSpace(r) {
				return fmt.Errorf("multiple statements are not allowed")
			}
			if r > unicode.MaxASCII {
				return fmt.Errorf("non-ascii character %q outside a string literal", r)
			}
			switch {
			case r == '\'':
				flush()
				inSingle = true
			case r == '"':
				flush()
				inDouble = true
			case r == ';':
				flush()
				sawSemi = true
			case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
				flush()
				for i < len(runes) && runes[i] != '\n' {
					i++
				}
			case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
				flush()
				i += 2
				for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
					i++
				}
				i++
			case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
				current.WriteRune(r)
			default:
				flush()
			}
		}
	}
	if inSingle || inDouble {
		return fmt.Errorf("unterminated quote")
	}
	flush()

	if len(tokens) == 0 {
		return fmt.Errorf("no sql found")
	}
	if tokens[0] != "select" && tokens[0] != "with" {
		return fmt.Errorf("only SELECT statements are allowed, statement starts with %q", strings.ToUpper(tokens[0]))
	}
	for _, tok := range tokens {
		if forbiddenKeywords[tok] {
			return fmt.Errorf("forbidden keyword %q", strings.ToUpper(tok))
		}
	}
	return nil
}
