// Package parser turns Lucene query text into an ast tree.
//
// The parser is hand written: a Lexer produces tokens with byte offsets and
// a recursive-descent Parser assembles right-recursive groups, recording the
// source Position of every node. Malformed input returns a *SyntaxError
// carrying the line and column of the offending token.
package parser
