package webhdfs

import (
	"net/url"
	"strings"
)

// Params is an ordered query parameter list. Unlike url.Values it encodes
// parameters in insertion order.
type Params struct {
	keys   []string
	values []string
}

// Add appends key=value.
func (p *Params) Add(key, value string) *Params {
	p.keys = append(p.keys, key)
	p.values = append(p.values, value)
	return p
}

// Get returns the first value stored for key.
func (p *Params) Get(key string) (string, bool) {
	for i, k := range p.keys {
		if k == key {
			return p.values[i], true
		}
	}
	return "", false
}

// Len returns the number of parameters.
func (p *Params) Len() int { return len(p.keys) }

// Encode renders the parameters as a query string, escaping keys and values.
func (p *Params) Encode() string {
	var b strings.Builder
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.values[i]))
	}
	return b.String()
}
