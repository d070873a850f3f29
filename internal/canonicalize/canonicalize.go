// Package canonicalize normalizes artist/composer/performer display names
// so near-duplicate spellings ("The Beatles" vs "Beatles, The") render to
// one folder name. It is purely cosmetic: nothing here feeds dir_id,
// scoring, or state transitions — only the Planner's rendered path.
package canonicalize

import "strings"

// Cache is consulted before falling back to the built-in normalization
// rules, letting callers override individual names (e.g. from a
// user-curated alias list) without forking this package.
type Cache interface {
	GetCanonicalName(name, category string) (string, bool)
	SetCanonicalName(name, category, canonical string)
}

// memCache is a minimal in-process Cache; the CLI may swap in a
// persistent-backed implementation.
type memCache struct {
	m map[string]string
}

// NewMemCache returns a Cache backed by a plain map, adequate for a single
// CLI invocation's lifetime.
func NewMemCache() Cache {
	return &memCache{m: make(map[string]string)}
}

func key(name, category string) string { return category + "\x00" + strings.ToLower(name) }

func (c *memCache) GetCanonicalName(name, category string) (string, bool) {
	v, ok := c.m[key(name, category)]
	return v, ok
}

func (c *memCache) SetCanonicalName(name, category, canonical string) {
	c.m[key(name, category)] = canonical
}

// Canonicalizer canonicalizes a single display name.
type Canonicalizer struct {
	cache Cache
}

func New(cache Cache) *Canonicalizer {
	if cache == nil {
		cache = NewMemCache()
	}
	return &Canonicalizer{cache: cache}
}

// Canonicalize returns name's canonical display form for category (e.g.
// "artist", "composer"). It checks the cache first, then applies the
// built-in "Article, Surname" un-inversion rule, then caches the result.
func Canonicalize(c *Canonicalizer, name, category string) string {
	if name == "" {
		return name
	}
	if cached, ok := c.cache.GetCanonicalName(name, category); ok {
		return cached
	}
	result := unInvertArticle(name)
	c.cache.SetCanonicalName(name, category, result)
	return result
}

var leadingArticles = []string{"The", "A", "An"}

// unInvertArticle turns "Beatles, The" into "The Beatles". Names without a
// comma-inverted article pass through unchanged.
func unInvertArticle(name string) string {
	parts := strings.SplitN(name, ",", 2)
	if len(parts) != 2 {
		return name
	}
	tail := strings.TrimSpace(parts[1])
	for _, article := range leadingArticles {
		if strings.EqualFold(tail, article) {
			return article + " " + strings.TrimSpace(parts[0])
		}
	}
	return name
}

// CanonicalizeMulti splits a multi-valued name field on ";" or ",",
// canonicalizes and de-duplicates each (case-insensitively), and always
// joins the result with "; " — never a bare comma, which would be
// ambiguous with the split itself.
func CanonicalizeMulti(c *Canonicalizer, names, category string) string {
	if names == "" {
		return names
	}
	raw := strings.FieldsFunc(names, func(r rune) bool { return r == ';' || r == ',' })

	seen := make(map[string]bool)
	var out []string
	for _, n := range raw {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		canon := Canonicalize(c, n, category)
		k := strings.ToLower(canon)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, canon)
	}
	return strings.Join(out, "; ")
}
