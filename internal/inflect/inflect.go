package inflect

import (
	"sync"

	"github.com/gertd/go-pluralize"
)

// Inflector converts words between singular and plural forms.
type Inflector interface {
	Plural(word string) string
	Singular(word string) string
}

// Option configures a Client.
type Option func(*pluralize.Client)

// WithIrregular registers an irregular singular/plural pair.
func WithIrregular(singular, plural string) Option {
	return func(c *pluralize.Client) {
		c.AddIrregularRule(singular, plural)
	}
}

// WithUncountable registers a word whose plural equals its singular.
func WithUncountable(word string) Option {
	return func(c *pluralize.Client) {
		c.AddUncountableRule(word)
	}
}

// Client is the go-pluralize backed Inflector.
// Rules are fixed at construction, so a Client is safe for concurrent use.
type Client struct {
	rules *pluralize.Client
}

// New creates a Client with the default English rules plus opts.
func New(opts ...Option) *Client {
	rules := pluralize.NewClient()
	for _, opt := range opts {
		opt(rules)
	}
	return &Client{rules: rules}
}

// Plural returns the plural form of word. Empty input yields empty output.
func (c *Client) Plural(word string) string {
	if word == "" {
		return ""
	}
	return c.rules.Plural(word)
}

// Singular returns the singular form of word.
func (c *Client) Singular(word string) string {
	if word == "" {
		return ""
	}
	return c.rules.Singular(word)
}

var (
	defaultOnce sync.Once
	defaultInfl *Client
)

// Default returns the shared Client with the stock English rules.
func Default() Inflector {
	defaultOnce.Do(func() {
		defaultInfl = New()
	})
	return defaultInfl
}

// Static maps words through fixed tables and falls back to Next.
// Useful in tests that need a rule set independent of the English one.
type Static struct {
	Plurals map[string]string
	Next    Inflector
}

// Plural looks word up in Plurals, then in the values of Plurals (so
// plural input stays plural), then defers to Next.
func (s Static) Plural(word string) string {
	if p, ok := s.Plurals[word]; ok {
		return p
	}
	for _, p := range s.Plurals {
		if p == word {
			return word
		}
	}
	if s.Next != nil {
		return s.Next.Plural(word)
	}
	return word
}

// Singular reverses Plurals, then defers to Next.
func (s Static) Singular(word string) string {
	for singular, p := range s.Plurals {
		if p == word {
			return singular
		}
	}
	if _, ok := s.Plurals[word]; ok {
		return word
	}
	if s.Next != nil {
		return s.Next.Singular(word)
	}
	return word
}
