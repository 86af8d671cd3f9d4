// Package resourcelocator builds, reserves and archives the resource
// locators (URL paths) of content nodes.
package resourcelocator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sulu/sulu-sub013/repository"
)

// DefaultSeparator joins the words of a slug
const DefaultSeparator = "-"

// boundaries are turned into the separator instead of being dropped
const boundaries = `-_./\:;,+`

// commonReplacements apply to every locale
var commonReplacements = map[rune]string{
	'ß': "ss",
	'æ': "ae",
	'ø': "oe",
	'œ': "oe",
	'đ': "d",
	'ł': "l",
	'þ': "th",
}

// localeReplacements transliterate characters before diacritics are removed
var localeReplacements = map[string]map[rune]string{
	"de": {'ä': "ae", 'ö': "oe", 'ü': "ue", '&': " und "},
	"en": {'&': " and "},
	"fr": {'&': " et "},
	"it": {'&': " e "},
	"nl": {'&': " en "},
	"es": {'&': " y "},
}

// NodeReader looks up nodes by ID; repository.Tx satisfies it
type NodeReader interface {
	GetNode(ctx context.Context, id string) (*repository.Node, error)
}

// PathResolver turns title parts into slugs and joins them onto parent paths
type PathResolver struct {
	defaultSeparator string
	separators       map[string]string
	// patterns holds the compiled segment pattern of every separator in use
	patterns map[string]*regexp.Regexp
}

// NewPathResolver creates a resolver. localeSeparators overrides the
// separator for individual locales or languages.
func NewPathResolver(defaultSeparator string, localeSeparators map[string]string) *PathResolver {
	if defaultSeparator == "" {
		defaultSeparator = DefaultSeparator
	}
	separators := make(map[string]string, len(localeSeparators))
	patterns := map[string]*regexp.Regexp{defaultSeparator: compileSegmentPattern(defaultSeparator)}
	for locale, separator := range localeSeparators {
		separators[strings.ToLower(locale)] = separator
		if _, ok := patterns[separator]; !ok {
			patterns[separator] = compileSegmentPattern(separator)
		}
	}
	return &PathResolver{
		defaultSeparator: defaultSeparator,
		separators:       separators,
		patterns:         patterns,
	}
}

func compileSegmentPattern(separator string) *regexp.Regexp {
	return regexp.MustCompile(`^[a-z0-9]+(` + regexp.QuoteMeta(separator) + `[a-z0-9]+)*$`)
}

// baseLanguage reduces a locale such as de_AT to its language
func baseLanguage(locale string) string {
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return strings.ToLower(locale)
	}
	base, _ := tag.Base()
	return base.String()
}

// Separator returns the separator used for locale
func (r *PathResolver) Separator(locale string) string {
	if separator, ok := r.separators[strings.ToLower(locale)]; ok {
		return separator
	}
	if separator, ok := r.separators[baseLanguage(locale)]; ok {
		return separator
	}
	return r.defaultSeparator
}

// Slug builds a single path segment from parts
func (r *PathResolver) Slug(parts []string, locale string) (string, error) {
	if len(parts) == 0 {
		return "", &repository.MissingArgumentError{Argument: "parts"}
	}
	separator := r.Separator(locale)
	text := strings.ToLower(strings.Join(parts, " "))

	replacements := localeReplacements[baseLanguage(locale)]
	var transliterated strings.Builder
	for _, c := range text {
		if replacement, ok := replacements[c]; ok {
			transliterated.WriteString(replacement)
			continue
		}
		if replacement, ok := commonReplacements[c]; ok {
			transliterated.WriteString(replacement)
			continue
		}
		transliterated.WriteRune(c)
	}

	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), transliterated.String())
	if err != nil {
		return "", fmt.Errorf("error removing diacritics: %w", err)
	}

	var slug strings.Builder
	pending := false
	for _, c := range folded {
		switch {
		case (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9'):
			if pending && slug.Len() > 0 {
				slug.WriteString(separator)
			}
			pending = false
			slug.WriteRune(c)
		case unicode.IsSpace(c) || strings.ContainsRune(boundaries, c) || strings.ContainsRune(separator, c):
			pending = true
		}
	}

	if slug.Len() == 0 {
		return "", &repository.ValidationError{Field: "parts", Message: "slug is empty after removing disallowed characters"}
	}
	return slug.String(), nil
}

// Generate joins the slug of parts onto parentPath
func (r *PathResolver) Generate(parts []string, parentPath, locale string) (string, error) {
	parent := NormalizeParentPath(parentPath)
	if parent != "" {
		// ancestors may have been slugged in other locales
		if err := r.validate(parent, r.isSegment); err != nil {
			return "", err
		}
	}
	slug, err := r.Slug(parts, locale)
	if err != nil {
		return "", err
	}
	return Join(parent, slug), nil
}

// GenerateForNode is Generate with the parent path taken from the node
// identified by parentID. A parent outside scope counts as unresolved.
func (r *PathResolver) GenerateForNode(ctx context.Context, nodes NodeReader, parts []string, parentID, scope, locale string) (string, error) {
	if len(parts) == 0 {
		return "", &repository.MissingArgumentError{Argument: "parts"}
	}
	parent, err := nodes.GetNode(ctx, parentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", &repository.MissingArgumentError{Argument: "parent " + parentID}
		}
		return "", err
	}
	if parent.Scope != scope {
		return "", &repository.MissingArgumentError{Argument: "parent " + parentID}
	}
	return r.Generate(parts, parent.Path, locale)
}

// Validate checks that path is "/" or a sequence of well-formed segments
// joined with the separator of locale
func (r *PathResolver) Validate(path, locale string) error {
	pattern := r.patterns[r.Separator(locale)]
	return r.validate(path, pattern.MatchString)
}

// isSegment reports whether segment is well-formed for any configured separator
func (r *PathResolver) isSegment(segment string) bool {
	for _, pattern := range r.patterns {
		if pattern.MatchString(segment) {
			return true
		}
	}
	return false
}

func (r *PathResolver) validate(path string, valid func(segment string) bool) error {
	if path == "/" {
		return nil
	}
	if !strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return &repository.ValidationError{Field: "path", Message: fmt.Sprintf("%q must start and must not end with /", path)}
	}
	for _, segment := range strings.Split(path[1:], "/") {
		if !valid(segment) {
			return &repository.ValidationError{Field: "path", Message: fmt.Sprintf("invalid segment %q in %q", segment, path)}
		}
	}
	return nil
}

// NormalizeParentPath returns "" for the top level and otherwise a path with
// a leading and no trailing slash
func NormalizeParentPath(path string) string {
	path = strings.TrimRight(strings.TrimSpace(path), "/")
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// Join appends segment to parent
func Join(parent, segment string) string {
	return NormalizeParentPath(parent) + "/" + segment
}

// ParentOf returns the parent part of path, "" for top-level paths
func ParentOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i <= 0 {
		return ""
	}
	return path[:i]
}

// Segment returns the last segment of path
func Segment(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}
