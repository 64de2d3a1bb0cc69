package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lucq/internal/lucene/ast"
)

func TestParse_RoundTrip(t *testing.T) {
	testCases := []struct {
		input string
		want  string
	}{
		{"a", "a"},
		{"a b c", "a b c"},
		{"a AND b OR c", "a AND b OR c"},
		{"a && b || c", "a AND b OR c"},
		{"field:value", "field:value"},
		{"-a +b", "-a +b"},
		{"NOT a", "NOT a"},
		{"!a:b", "NOT a:b"},
		{`title:"quick fox"~2`, `title:"quick fox"~2`},
		{"name:/jo.*n/", "name:/jo.*n/"},
		{"age:[1 TO 5]", "age:[1 TO 5]"},
		{"age:{1 TO *]", "age:{1 TO *]"},
		{"age:1..5", "age:1..5"},
		{"age:>=30", "age:>=30"},
		{"hidden:true AND data.age:(>30 AND <=40)", "hidden:true AND data.age:(>30 AND <=40)"},
		{"_exists_:title", "_exists_:title"},
		{"-_missing_:title", "-_missing_:title"},
		{"(a b)^2", "(a b)^2"},
		{"a^2 b~1", "a^2 b~1"},
		{"terms:(field1 @exclude:foo @min:2)", "terms:(field1 @exclude:foo @min:2)"},
		{"date:(created~1d^America/Chicago)", "date:(created~1d^America/Chicago)"},
		{"price:-5", "price:-5"},
		{`path:a\:b`, "path:a:b"},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			root, err := Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, root.String())
		})
	}
}

func TestParse_RightRecursiveGroups(t *testing.T) {
	root, err := Parse("a b c")
	require.NoError(t, err)

	assert.Equal(t, "a", root.Left().(*ast.TermNode).Term)
	rest, ok := root.Right().(*ast.GroupNode)
	require.True(t, ok)
	assert.False(t, rest.HasParens)
	assert.Equal(t, "b", rest.Left().(*ast.TermNode).Term)
	assert.Equal(t, "c", rest.Right().(*ast.TermNode).Term)
	assert.Same(t, root, rest.Parent())
}

func TestParse_SingleClauseRoot(t *testing.T) {
	root, err := Parse("a")
	require.NoError(t, err)
	assert.Nil(t, root.Right())
	assert.Equal(t, "a", root.Left().(*ast.TermNode).Term)

	two, err := Parse("a b")
	require.NoError(t, err)
	assert.IsType(t, &ast.TermNode{}, two.Right(), "a trailing clause is not wrapped")
}

func TestParse_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "\n"} {
		root, err := Parse(input)
		require.NoError(t, err)
		assert.Empty(t, root.Children())
	}
}

func TestParse_Operators(t *testing.T) {
	root, err := Parse("a AND b OR c")
	require.NoError(t, err)
	assert.Equal(t, ast.OpAnd, root.Operator)
	assert.Equal(t, ast.OpOr, root.Right().(*ast.GroupNode).Operator)

	lower, err := Parse("a and b")
	require.NoError(t, err)
	assert.Equal(t, ast.OpDefault, lower.Operator, "lowercase keywords are terms")
	assert.Equal(t, "and", lower.Right().(*ast.GroupNode).Left().(*ast.TermNode).Term)
}

func TestParse_FieldScopedGroup(t *testing.T) {
	root, err := Parse("data.age:(>30 AND <=40)")
	require.NoError(t, err)

	g, ok := root.Left().(*ast.GroupNode)
	require.True(t, ok)
	assert.True(t, g.HasParens)
	assert.Equal(t, "data.age", g.Field)
	assert.Equal(t, ast.OpAnd, g.Operator)

	gt := g.Left().(*ast.TermRangeNode)
	assert.Equal(t, "30", gt.Min)
	assert.False(t, gt.MinInclusive)
	assert.Equal(t, ">", gt.Operator)
	assert.Equal(t, "data.age", ast.FullField(gt))

	le := g.Right().(*ast.TermRangeNode)
	assert.Equal(t, "40", le.Max)
	assert.True(t, le.MaxInclusive)
	assert.Equal(t, "<=", le.Operator)
}

func TestParse_NestedParens(t *testing.T) {
	root, err := Parse("(((a)))")
	require.NoError(t, err)

	depth := 0
	ast.Walk(root, func(n ast.Node) bool {
		if g, ok := n.(*ast.GroupNode); ok && g.HasParens {
			depth++
		}
		return true
	})
	assert.Equal(t, 3, depth)
}

func TestParse_PrefixAndNegation(t *testing.T) {
	root, err := Parse("-a +b:c NOT (d e)")
	require.NoError(t, err)

	a := root.Left().(*ast.TermNode)
	assert.Equal(t, "-", a.Prefix)
	assert.True(t, a.IsExcluded())

	rest := root.Right().(*ast.GroupNode)
	b := rest.Left().(*ast.TermNode)
	assert.Equal(t, "+", b.Prefix)
	assert.Equal(t, "b", b.Field)
	assert.Equal(t, "c", b.Term)

	g := rest.Right().(*ast.GroupNode)
	assert.True(t, g.IsNegated)
	assert.True(t, g.HasParens)
}

func TestParse_Ranges(t *testing.T) {
	testCases := []struct {
		input  string
		min    string
		max    string
		minInc bool
		maxInc bool
		delim  string
	}{
		{"f:[1 TO 5]", "1", "5", true, true, "TO"},
		{"f:{1 TO 5}", "1", "5", false, false, "TO"},
		{"f:[* TO 5}", "*", "5", true, false, "TO"},
		{`f:["a b" TO "c d"]`, "a b", "c d", true, true, "TO"},
		{"f:[-5 TO -1]", "-5", "-1", true, true, "TO"},
		{"f:[2024-01-01T00:00:00 TO now]", "2024-01-01T00:00:00", "now", true, true, "TO"},
		{"f:2020-01-01..2020-12-31", "2020-01-01", "2020-12-31", true, true, ".."},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			root, err := Parse(tc.input)
			require.NoError(t, err)
			r, ok := root.Left().(*ast.TermRangeNode)
			require.True(t, ok)
			assert.Equal(t, "f", r.Field)
			assert.Equal(t, tc.min, r.Min)
			assert.Equal(t, tc.max, r.Max)
			assert.Equal(t, tc.minInc, r.MinInclusive)
			assert.Equal(t, tc.maxInc, r.MaxInclusive)
			assert.Equal(t, tc.delim, r.Delimiter)
		})
	}
}

func TestParse_TermFlags(t *testing.T) {
	root, err := Parse(`"a \"b\"" /x\/y/ c*`)
	require.NoError(t, err)

	quoted := root.Left().(*ast.TermNode)
	assert.True(t, quoted.IsQuoted)
	assert.Equal(t, `a "b"`, quoted.Term)

	rest := root.Right().(*ast.GroupNode)
	regex := rest.Left().(*ast.TermNode)
	assert.True(t, regex.IsRegex)
	assert.Equal(t, "x/y", regex.Term)

	wildcard := rest.Right().(*ast.TermNode)
	assert.Equal(t, "c*", wildcard.Term)
}

func TestParse_Modifiers(t *testing.T) {
	root, err := Parse("percentiles:price~25,50,99 date:created^-5h")
	require.NoError(t, err)

	p := root.Left().(*ast.TermNode)
	assert.Equal(t, "25,50,99", p.Proximity)

	d := root.Right().(*ast.TermNode)
	assert.Equal(t, "-5h", d.Boost)
}

func TestParse_Positions(t *testing.T) {
	root, err := Parse("a\n  -b:c")
	require.NoError(t, err)

	assert.Equal(t, ast.Position{Offset: 0, Line: 1, Column: 1}, root.Left().Pos())
	assert.Equal(t, ast.Position{Offset: 4, Line: 2, Column: 3}, root.Right().Pos())
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		input   string
		message string
		column  int
	}{
		{"(a", "expected ')'", 3},
		{"a)", "unexpected ')'", 2},
		{"a AND", "expected clause after AND", 6},
		{"()", "empty group", 2},
		{`"open`, "unterminated quoted term", 1},
		{"/re", "unterminated regex", 1},
		{"f:[1 5]", "expected TO", 6},
		{"f:[1 TO 5", "expected ']' or '}'", 10},
		{"f:", "expected a term", 3},
		{"a^", "expected boost value", 2},
		{"_exists_:(", "expected field name", 10},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			_, err := Parse(tc.input)
			require.Error(t, err)

			var serr *SyntaxError
			require.ErrorAs(t, err, &serr)
			assert.Contains(t, serr.Message, tc.message)
			assert.Equal(t, 1, serr.Line)
			assert.Equal(t, tc.column, serr.Column)
		})
	}
}

func TestParse_TooDeep(t *testing.T) {
	input := ""
	for i := 0; i <= maxParenDepth; i++ {
		input += "("
	}
	_, err := Parse(input + "a")
	var serr *SyntaxError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Message, "nested too deeply")
}

func TestLexer_Tokens(t *testing.T) {
	lexer := NewLexer(`a:"b" && !c || [1 TO 2}`)
	var types []TokenType
	for {
		tok, err := lexer.NextToken()
		require.NoError(t, err)
		types = append(types, tok.Type)
		if tok.Type == TokenEOF {
			break
		}
	}
	assert.Equal(t, []TokenType{
		TokenTerm, TokenColon, TokenQuoted, TokenAnd, TokenNot, TokenTerm, TokenOr,
		TokenLBracket, TokenTerm, TokenTerm, TokenTerm, TokenRBrace, TokenEOF,
	}, types)
}
