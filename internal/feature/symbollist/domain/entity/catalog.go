package entity

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Catalog is the immutable set of chartable symbols, built once at startup.
// Codes are upper-cased; lookups are case-insensitive.
type Catalog struct {
	symbols []Symbol
	index   map[string]int
}

// NewCatalog validates symbols and returns a catalog preserving their order.
func NewCatalog(symbols []Symbol) (*Catalog, error) {
	if len(symbols) == 0 {
		return nil, errors.New("catalog: no symbols")
	}
	c := &Catalog{
		symbols: make([]Symbol, 0, len(symbols)),
		index:   make(map[string]int, len(symbols)),
	}
	for _, s := range symbols {
		code := strings.ToUpper(strings.TrimSpace(s.Code))
		if code == "" {
			return nil, errors.New("catalog: empty symbol code")
		}
		if _, dup := c.index[code]; dup {
			return nil, fmt.Errorf("catalog: duplicate symbol %s", code)
		}
		locations := make([]string, 0, len(s.Locations))
		for _, l := range s.Locations {
			if l = strings.TrimSpace(l); l != "" {
				locations = append(locations, l)
			}
		}
		if len(locations) == 0 {
			return nil, fmt.Errorf("catalog: symbol %s has no source locations", code)
		}
		name := strings.TrimSpace(s.Name)
		if name == "" {
			name = code
		}
		c.index[code] = len(c.symbols)
		c.symbols = append(c.symbols, Symbol{Code: code, Name: name, Locations: locations})
	}
	return c, nil
}

// Locations returns a copy of the source locations of code.
func (c *Catalog) Locations(code string) ([]string, bool) {
	i, ok := c.index[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, false
	}
	return slices.Clone(c.symbols[i].Locations), true
}

// Codes returns the symbol codes in catalog order.
func (c *Catalog) Codes() []string {
	codes := make([]string, len(c.symbols))
	for i, s := range c.symbols {
		codes[i] = s.Code
	}
	return codes
}

// Symbols returns a deep copy of the catalog entries in order.
func (c *Catalog) Symbols() []Symbol {
	out := make([]Symbol, len(c.symbols))
	for i, s := range c.symbols {
		s.Locations = slices.Clone(s.Locations)
		out[i] = s
	}
	return out
}

// Len returns the number of symbols.
func (c *Catalog) Len() int {
	return len(c.symbols)
}
