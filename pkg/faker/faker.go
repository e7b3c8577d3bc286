// Package faker provides the synthetic value generator handed to every
// anonymizable model.
package faker

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"golang.org/x/text/language"
)

// Faker produces synthetic values. A single instance is created per run and
// passed into each model's ToAnonymize call.
type Faker interface {
	Locale() string

	Name() string
	FirstName() string
	LastName() string
	Username() string
	Email() string
	SafeEmail(id any) string
	Phone() string
	Company() string

	Street() string
	City() string
	Zip() string
	Country() string

	IPv4() string
	UUID() string
	Password(length int) string
	Date() time.Time
	Numerify(pattern string) string
	Word() string
}

// Generator is the gofakeit-backed Faker.
type Generator struct {
	f      *gofakeit.Faker
	locale language.Tag
	raw    string
}

// New creates a Generator for locale. A zero seed picks a random one.
//
// gofakeit ships a single English data set; the locale is validated and
// exposed through Locale() so models can format locale-specific values.
func New(locale string, seed uint64) (*Generator, error) {
	if locale == "" {
		locale = "en_US"
	}
	tag, err := ParseLocale(locale)
	if err != nil {
		return nil, fmt.Errorf("invalid faker locale %q: %w", locale, err)
	}

	return &Generator{
		f:      gofakeit.New(seed),
		locale: tag,
		raw:    locale,
	}, nil
}

// ParseLocale parses a POSIX-style (en_US) or BCP 47 (en-US) locale name.
func ParseLocale(locale string) (language.Tag, error) {
	return language.Parse(strings.ReplaceAll(strings.TrimSpace(locale), "_", "-"))
}

// Locale returns the configured locale as written in configuration.
func (g *Generator) Locale() string { return g.raw }

// Tag returns the parsed locale.
func (g *Generator) Tag() language.Tag { return g.locale }

func (g *Generator) Name() string      { return g.f.Name() }
func (g *Generator) FirstName() string { return g.f.FirstName() }
func (g *Generator) LastName() string  { return g.f.LastName() }
func (g *Generator) Username() string  { return g.f.Username() }
func (g *Generator) Email() string     { return g.f.Email() }
func (g *Generator) Phone() string     { return g.f.Phone() }
func (g *Generator) Company() string   { return g.f.Company() }
func (g *Generator) Street() string    { return g.f.Street() }
func (g *Generator) City() string      { return g.f.City() }
func (g *Generator) Zip() string       { return g.f.Zip() }
func (g *Generator) Country() string   { return g.f.Country() }
func (g *Generator) IPv4() string      { return g.f.IPv4Address() }
func (g *Generator) Date() time.Time   { return g.f.Date() }
func (g *Generator) Word() string      { return g.f.Word() }

// SafeEmail returns an address under example.com that embeds id, which keeps
// unique email columns unique across the whole table.
func (g *Generator) SafeEmail(id any) string {
	return fmt.Sprintf("%s.%v@example.com", g.f.Username(), id)
}

// UUID returns a version 4 UUID drawn from the seeded source.
func (g *Generator) UUID() string { return g.f.UUID() }

// Password returns a random password of the given length.
func (g *Generator) Password(length int) string {
	if length <= 0 {
		length = 16
	}
	return g.f.Password(true, true, true, true, false, length)
}

// Numerify replaces every '#' in pattern with a random digit.
func (g *Generator) Numerify(pattern string) string { return g.f.Numerify(pattern) }
