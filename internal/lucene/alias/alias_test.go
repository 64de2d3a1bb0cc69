package alias

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func resolvedName(r *Result) string {
	if r == nil {
		return "<nil>"
	}
	return r.Name
}

func TestResolve_PrefixGrowth(t *testing.T) {
	m := Map{
		"a.b": {Name: "x"},
		"a":   {Name: "a-resolved", Fields: Map{"b": {Name: "y"}}},
	}

	assert.Equal(t, "x.c", resolvedName(New(m)("a.b.c")),
		"literal multi-part key wins over descending into a")
}

func TestResolve_DescendsIntoChildMap(t *testing.T) {
	m := Map{
		"a": {Name: "a-resolved", Fields: Map{"b": {Name: "b-resolved"}}},
	}

	assert.Equal(t, "a-resolved.b-resolved.d", resolvedName(New(m)("a.b.d")))
}

func TestResolve_LongestMatchAtEachLevel(t *testing.T) {
	// The child key "b.c" under "a" is never reached because the root level
	// commits its longest match "a.b" first.
	m := Map{
		"a":   {Name: "A", Fields: Map{"b.c": {Name: "Z"}}},
		"a.b": {Name: "X"},
	}
	r := New(m)

	assert.Equal(t, "X.c", resolvedName(r("a.b.c")))
	assert.Equal(t, "X.c.d", resolvedName(r("a.b.c.d")))
	assert.Equal(t, "A.x", resolvedName(r("a.x")))
}

func TestResolve_MultiDotKeyInChildLevel(t *testing.T) {
	m := Map{
		"a": {Name: "A", Fields: Map{"b.c": {Name: "Z"}}},
	}

	assert.Equal(t, "A.Z", resolvedName(New(m)("a.b.c")))
	assert.Equal(t, "A.b.d", resolvedName(New(m)("a.b.d")))
}

func TestResolve(t *testing.T) {
	m := Map{
		"user":    {Name: "account", Fields: Map{"mail": {Name: "email_address"}}},
		"age":     {Name: "data.age"},
		"keep":    {Fields: Map{"me": {Name: "renamed"}}},
		"company": {Name: "org"},
	}
	r := New(m)

	testCases := []struct {
		field string
		want  string
	}{
		{"user", "account"},
		{"user.mail", "account.email_address"},
		{"user.phone", "account.phone"},
		{"user.mail.domain", "account.email_address.domain"},
		{"age", "data.age"},
		{"AGE", "data.age"},
		{"keep.me", "keep.renamed"},
		{"unknown", "<nil>"},
		{"unknown.user", "<nil>"},
		{"", "<nil>"},
	}
	for _, tc := range testCases {
		t.Run(tc.field, func(t *testing.T) {
			assert.Equal(t, tc.want, resolvedName(r(tc.field)))
		})
	}
}

func TestResolve_CaseFoldIsDeterministic(t *testing.T) {
	m := Map{
		"aB": {Name: "second"},
		"Ab": {Name: "first"},
		"ab": {Name: "exact"},
	}
	r := New(m)

	assert.Equal(t, "exact", resolvedName(r("ab")), "an exact key wins over folded ones")
	for i := 0; i < 20; i++ {
		assert.Equal(t, "first", resolvedName(r("AB")), "folded ties pick the smallest key")
	}
}

func TestResult_ChildResolver(t *testing.T) {
	m := Map{
		"user": {Name: "account", Fields: Map{"mail": {Name: "email_address"}}},
	}

	res := New(m)("user")
	require.NotNil(t, res)
	require.NotNil(t, res.Resolver)

	assert.Equal(t, "account.email_address", resolvedName(res.Resolver("mail")))
	assert.Equal(t, "account.other", resolvedName(res.Resolver("other")))
	assert.Nil(t, res.Resolver(""))

	// Results of the child resolver scope further children too.
	child := res.Resolver("mail")
	assert.Equal(t, "account.email_address.host", resolvedName(child.Resolver("host")))
}

func TestScoped(t *testing.T) {
	m := Map{
		"data.age": {Name: "years"},
	}
	scoped := Scoped(New(m), "data")

	assert.Equal(t, "years", resolvedName(scoped("age")))
	assert.Nil(t, scoped("other"))
	assert.Nil(t, scoped(""))
	assert.Nil(t, Scoped(nil, "data"))
}

func TestEntry_UnmarshalYAML(t *testing.T) {
	doc := `
user:
  name: account
  fields:
    mail: email_address
age: data.age
`
	var m Map
	require.NoError(t, yaml.Unmarshal([]byte(doc), &m))

	assert.Equal(t, Map{
		"user": {Name: "account", Fields: Map{"mail": {Name: "email_address"}}},
		"age":  {Name: "data.age"},
	}, m)
}

func TestEntry_UnmarshalJSON(t *testing.T) {
	doc := `{"user": {"name": "account", "fields": {"mail": "email_address"}}, "age": "data.age"}`

	var m Map
	require.NoError(t, json.Unmarshal([]byte(doc), &m))

	assert.Equal(t, Map{
		"user": {Name: "account", Fields: Map{"mail": {Name: "email_address"}}},
		"age":  {Name: "data.age"},
	}, m)
}

func TestEntry_UnmarshalJSON_Invalid(t *testing.T) {
	var m Map
	err := json.Unmarshal([]byte(`{"user": 42}`), &m)

	assert.ErrorContains(t, err, "alias entry")
}
