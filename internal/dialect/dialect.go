// Package dialect provides the localized step keywords scenarios are written in.
//
// The catalog is an embedded CUE document validated against a #Dialect schema
// when first used. Dialects are looked up by BCP 47 tag and resolved by base
// language, so "fr-CA" and "fr" both select French.
//
// The execution engine never inspects a Dialect: it passes it through to the
// step actions untouched. Only the scenario loader uses it, to check that each
// step starts with a keyword of the scenario's language.
package dialect

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

//go:embed catalog.cue
var catalogCUE string

// DefaultCode is the dialect used when none is configured.
const DefaultCode = "en"

// KeywordKind is the role of a step keyword.
type KeywordKind string

const (
	Given KeywordKind = "given"
	When  KeywordKind = "when"
	Then  KeywordKind = "then"
	And   KeywordKind = "and"
	But   KeywordKind = "but"
)

// KeywordKinds lists every kind in declaration order.
var KeywordKinds = []KeywordKind{Given, When, Then, And, But}

// Dialect is one language's set of step keywords.
// Dialects are immutable and safe to share between goroutines.
type Dialect struct {
	code     string
	tag      language.Tag
	name     string
	native   string
	keywords map[KeywordKind][]string

	// All keywords, longest first, for prefix matching
	ordered []keyword
}

type keyword struct {
	kind KeywordKind
	text string
}

// entry mirrors #Dialect in catalog.cue.
type entry struct {
	Name   string   `json:"name"`
	Native string   `json:"native"`
	Given  []string `json:"given"`
	When   []string `json:"when"`
	Then   []string `json:"then"`
	And    []string `json:"and"`
	But    []string `json:"but"`
}

var (
	catalogOnce sync.Once
	catalog     map[string]*Dialect
	catalogErr  error
)

// Lookup returns the dialect for a BCP 47 language code.
// Regional variants resolve to their base language ("de-AT" → "de").
func Lookup(code string) (*Dialect, error) {
	dialects, err := loadCatalog()
	if err != nil {
		return nil, err
	}

	// A well-formed but unknown subtag still yields a tag; let the catalog
	// check reject it.
	tag, err := language.Parse(code)
	var unknown language.ValueError
	if err != nil && !errors.As(err, &unknown) {
		return nil, fmt.Errorf("invalid dialect %q: %w", code, err)
	}
	base, _ := tag.Base()

	d, ok := dialects[base.String()]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q (available: %s)", code, strings.Join(Codes(), ", "))
	}
	return d, nil
}

// Default returns the English dialect.
// Panics if the embedded catalog is invalid, which is a build defect.
func Default() *Dialect {
	d, err := Lookup(DefaultCode)
	if err != nil {
		panic(fmt.Sprintf("dialect: default dialect unavailable: %v", err))
	}
	return d
}

// Codes returns the catalog's language codes, sorted.
// Returns nil if the catalog failed to load.
func Codes() []string {
	dialects, err := loadCatalog()
	if err != nil {
		return nil
	}
	codes := make([]string, 0, len(dialects))
	for code := range dialects {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// All returns every dialect ordered by code.
func All() ([]*Dialect, error) {
	dialects, err := loadCatalog()
	if err != nil {
		return nil, err
	}
	all := make([]*Dialect, 0, len(dialects))
	for _, code := range Codes() {
		all = append(all, dialects[code])
	}
	return all, nil
}

// Code returns the catalog code ("en", "fr", ...).
func (d *Dialect) Code() string { return d.code }

// Tag returns the parsed language tag.
func (d *Dialect) Tag() language.Tag { return d.tag }

// Name returns the English name of the language.
func (d *Dialect) Name() string { return d.name }

// Native returns the language's own name for itself.
func (d *Dialect) Native() string { return d.native }

// Keywords returns a copy of the keywords of one kind.
func (d *Dialect) Keywords(kind KeywordKind) []string {
	return append([]string(nil), d.keywords[kind]...)
}

// Keyword reports which keyword step text starts with.
//
// Text is NFC-normalized first so decomposed accents still match.
// A keyword must be followed by whitespace or the end of the text, unless it
// ends in an apostrophe ("Lorsqu'il ...").
func (d *Dialect) Keyword(text string) (KeywordKind, string, bool) {
	text = norm.NFC.String(strings.TrimSpace(text))
	for _, kw := range d.ordered {
		if !strings.HasPrefix(text, kw.text) {
			continue
		}
		rest := text[len(kw.text):]
		if rest == "" || strings.HasSuffix(kw.text, "'") {
			return kw.kind, kw.text, true
		}
		if r, _ := utf8.DecodeRuneInString(rest); unicode.IsSpace(r) {
			return kw.kind, kw.text, true
		}
	}
	return "", "", false
}

// String returns the code.
func (d *Dialect) String() string {
	return d.code
}

func loadCatalog() (map[string]*Dialect, error) {
	catalogOnce.Do(func() {
		catalog, catalogErr = compileCatalog(catalogCUE)
	})
	return catalog, catalogErr
}

// compileCatalog evaluates a catalog document and builds the dialects.
func compileCatalog(src string) (map[string]*Dialect, error) {
	ctx := cuecontext.New()
	value := ctx.CompileString(src, cue.Filename("catalog.cue"))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile dialect catalog: %w", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate dialect catalog: %w", err)
	}

	dialectsVal := value.LookupPath(cue.ParsePath("dialects"))
	if !dialectsVal.Exists() {
		return nil, fmt.Errorf("dialect catalog has no dialects")
	}

	iter, err := dialectsVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterate dialects: %w", err)
	}

	dialects := make(map[string]*Dialect)
	for iter.Next() {
		code := iter.Selector().Unquoted()

		var e entry
		if err := iter.Value().Decode(&e); err != nil {
			return nil, fmt.Errorf("dialect %s: %w", code, err)
		}

		tag, err := language.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("dialect %s: invalid language code: %w", code, err)
		}

		dialects[code] = newDialect(code, tag, e)
	}

	if len(dialects) == 0 {
		return nil, fmt.Errorf("dialect catalog has no dialects")
	}
	return dialects, nil
}

func newDialect(code string, tag language.Tag, e entry) *Dialect {
	d := &Dialect{
		code:   code,
		tag:    tag,
		name:   e.Name,
		native: e.Native,
		keywords: map[KeywordKind][]string{
			Given: normalize(e.Given),
			When:  normalize(e.When),
			Then:  normalize(e.Then),
			And:   normalize(e.And),
			But:   normalize(e.But),
		},
	}

	for _, kind := range KeywordKinds {
		for _, text := range d.keywords[kind] {
			d.ordered = append(d.ordered, keyword{kind: kind, text: text})
		}
	}
	// Longest first so "Et que" wins over "Et"
	sort.SliceStable(d.ordered, func(i, j int) bool {
		return len(d.ordered[i].text) > len(d.ordered[j].text)
	})
	return d
}

func normalize(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = norm.NFC.String(w)
	}
	return out
}
