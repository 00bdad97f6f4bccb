package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"
)

func TestLookup_BaseLanguage(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"en", "en"},
		{"en-GB", "en"},
		{"fr-CA", "fr"},
		{"de-AT", "de"},
		{"es", "es"},
		{"it-CH", "it"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			d, err := Lookup(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Code())
		})
	}
}

func TestLookup_Errors(t *testing.T) {
	_, err := Lookup("not a tag!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid dialect")

	_, err = Lookup("ja")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dialect")
	assert.Contains(t, err.Error(), "en, es")
}

func TestLookup_WellFormedUnknownSubtag(t *testing.T) {
	_, err := Lookup("xx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported dialect "xx" (available: `)
}

func TestDefault(t *testing.T) {
	d := Default()
	assert.Equal(t, "en", d.Code())
	assert.Equal(t, "English", d.Name())
	assert.Equal(t, "en", d.String())
}

func TestCodes_Sorted(t *testing.T) {
	assert.Equal(t, []string{"de", "en", "es", "fr", "it"}, Codes())

	all, err := All()
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "de", all[0].Code())
	assert.Equal(t, "Deutsch", all[0].Native())
}

func TestKeywords_ReturnsCopy(t *testing.T) {
	d := Default()
	kws := d.Keywords(Given)
	require.Equal(t, []string{"Given"}, kws)

	kws[0] = "mutated"
	assert.Equal(t, []string{"Given"}, d.Keywords(Given))
}

func TestKeyword_English(t *testing.T) {
	d := Default()

	tests := []struct {
		text    string
		kind    KeywordKind
		keyword string
		ok      bool
	}{
		{"Given the service is up", Given, "Given", true},
		{"  When the user pays", When, "When", true},
		{"Then", Then, "Then", true},
		{"And more", And, "And", true},
		{"But not that", But, "But", true},
		{"Givenness is not a keyword", "", "", false},
		{"given lowercase", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			kind, kw, ok := d.Keyword(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.keyword, kw)
		})
	}
}

func TestKeyword_FrenchLongestMatchAndApostrophe(t *testing.T) {
	d, err := Lookup("fr")
	require.NoError(t, err)

	kind, kw, ok := d.Keyword("Et que le panier est vide")
	require.True(t, ok)
	assert.Equal(t, And, kind)
	assert.Equal(t, "Et que", kw)

	kind, kw, ok = d.Keyword("Lorsqu'il paie")
	require.True(t, ok)
	assert.Equal(t, When, kind)
	assert.Equal(t, "Lorsqu'", kw)

	kind, _, ok = d.Keyword("Étant donné un client")
	require.True(t, ok)
	assert.Equal(t, Given, kind)
}

func TestKeyword_DecomposedInputMatches(t *testing.T) {
	d, err := Lookup("fr")
	require.NoError(t, err)

	decomposed := norm.NFD.String("Étant donné un client")
	require.NotEqual(t, "Étant donné un client", decomposed)

	kind, kw, ok := d.Keyword(decomposed)
	require.True(t, ok)
	assert.Equal(t, Given, kind)
	assert.Equal(t, "Étant donné", kw)
}

func TestCompileCatalog_RejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "syntax error",
			src:  `dialects: {`,
			want: "compile dialect catalog",
		},
		{
			name: "no dialects",
			src:  `other: 1`,
			want: "no dialects",
		},
		{
			name: "empty keyword list",
			src: `
#Dialect: {
	name: string
	native: string
	"given": [string, ...string]
	"when": [string, ...string]
	"then": [string, ...string]
	"and": [string, ...string]
	"but": [string, ...string]
}
dialects: [string]: #Dialect
dialects: xx: {
	name: "X"
	native: "X"
	"given": []
	"when": ["W"]
	"then": ["T"]
	"and": ["A"]
	"but": ["B"]
}`,
			want: "dialect catalog",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileCatalog(tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
