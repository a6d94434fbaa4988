package db

import (
	"database/sql"
	"errors"
	"strings"
	"unicode"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Row = map[string]any

// Field is the column metadata placeholder. Execute always returns an empty
// slice of it.
type Field struct {
	Name string `json:"name"`
}

// Result holds either the rows of a read or the summary of a write.
type Result struct {
	Rows         []Row  `json:"rows,omitempty"`
	InsertID     *int64 `json:"insertId"`
	AffectedRows int64  `json:"affectedRows"`

	write bool
}

func (r Result) IsWrite() bool { return r.write }

type Kind int

const (
	KindWrite Kind = iota
	KindRead
	KindIntrospection
)

func (k Kind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindIntrospection:
		return "introspection"
	default:
		return "write"
	}
}

// Classify inspects the verb of a statement, ignoring surrounding whitespace,
// comments and case. A WITH prefix is skipped so that a CTE feeding an INSERT
// still counts as a write.
func Classify(query string) Kind {
	switch statementVerb(query) {
	case "SHOW", "DESCRIBE", "DESC":
		return KindIntrospection
	case "SELECT", "PRAGMA", "WITH", "EXPLAIN", "VALUES":
		return KindRead
	default:
		return KindWrite
	}
}

func LeadingKeyword(query string) string {
	rest := strings.TrimSpace(query)
	for {
		switch {
		case strings.HasPrefix(rest, "--"):
			idx := strings.IndexByte(rest, '\n')
			if idx < 0 {
				return ""
			}
			rest = strings.TrimSpace(rest[idx+1:])
		case strings.HasPrefix(rest, "/*"):
			idx := strings.Index(rest, "*/")
			if idx < 0 {
				return ""
			}
			rest = strings.TrimSpace(rest[idx+2:])
		case strings.HasPrefix(rest, "("):
			rest = strings.TrimSpace(rest[1:])
		default:
			end := strings.IndexFunc(rest, func(r rune) bool {
				return !unicode.IsLetter(r)
			})
			if end < 0 {
				end = len(rest)
			}
			return strings.ToUpper(rest[:end])
		}
	}
}

// statementVerb is the leading keyword, or for a WITH statement the first
// verb found outside the common table expressions.
func statementVerb(query string) string {
	verb := LeadingKeyword(query)
	if verb != "WITH" {
		return verb
	}
	depth := 0
	for i := 0; i < len(query); {
		c := query[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := strings.IndexByte(query[i+1:], c)
			if end < 0 {
				return verb
			}
			i += end + 2
		case c == '-' && strings.HasPrefix(query[i:], "--"):
			end := strings.IndexByte(query[i:], '\n')
			if end < 0 {
				return verb
			}
			i += end + 1
		case c == '/' && strings.HasPrefix(query[i:], "/*"):
			end := strings.Index(query[i:], "*/")
			if end < 0 {
				return verb
			}
			i += end + 2
		case c == '(':
			depth++
			i++
		case c == ')':
			depth--
			i++
		case isWordByte(c):
			start := i
			for i < len(query) && isWordByte(query[i]) {
				i++
			}
			if depth != 0 {
				continue
			}
			switch word := strings.ToUpper(query[start:i]); word {
			case "SELECT", "VALUES", "INSERT", "REPLACE", "UPDATE", "DELETE":
				return word
			}
		default:
			i++
		}
	}
	return verb
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func insertsRows(query string) bool {
	switch statementVerb(query) {
	case "INSERT", "REPLACE":
		return true
	}
	return false
}

func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func IsUniqueViolation(err error) bool {
	return hasCode(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY) ||
		(err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed"))
}

func IsForeignKeyViolation(err error) bool {
	return hasCode(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY) ||
		(err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed"))
}

func hasCode(err error, codes ...int) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	for _, code := range codes {
		if serr.Code() == code {
			return true
		}
	}
	return false
}
