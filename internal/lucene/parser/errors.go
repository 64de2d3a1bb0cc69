package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SyntaxError reports malformed query text. Offset is a zero-based byte
// offset; Line and Column are one-based, with Column counted in runes.
type SyntaxError struct {
	Message string
	Offset  int
	Line    int
	Column  int
}

// Error implements error.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}

func newSyntaxError(input string, offset int, format string, args ...any) *SyntaxError {
	line, col := lineColumn(input, offset)
	return &SyntaxError{
		Message: fmt.Sprintf(format, args...),
		Offset:  offset,
		Line:    line,
		Column:  col,
	}
}

func lineColumn(input string, offset int) (line, col int) {
	if offset > len(input) {
		offset = len(input)
	}
	before := input[:offset]
	line = strings.Count(before, "\n") + 1
	if i := strings.LastIndexByte(before, '\n'); i >= 0 {
		before = before[i+1:]
	}
	return line, utf8.RuneCountInString(before) + 1
}
