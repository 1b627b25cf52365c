package hdr

import "strings"

// Param is one x265 option. An empty Value is emitted as a bare flag.
type Param struct {
	Key   string
	Value string
}

func (p Param) String() string {
	if p.Value == "" {
		return p.Key
	}
	return p.Key + "=" + p.Value
}

// Params is an insertion-ordered set of x265 options. Keys are unique;
// setting an existing key replaces its value in place.
type Params []Param

// ParseParams splits an -x265-params string back into Params.
func ParseParams(s string) Params {
	var p Params
	for _, tok := range strings.Split(s, ":") {
		if tok == "" {
			continue
		}
		k, v, _ := strings.Cut(tok, "=")
		p.Set(k, v)
	}
	return p
}

func (p Params) index(key string) int {
	for i, kv := range p {
		if kv.Key == key {
			return i
		}
	}
	return -1
}

// Get returns the value for key.
func (p Params) Get(key string) (string, bool) {
	if i := p.index(key); i >= 0 {
		return p[i].Value, true
	}
	return "", false
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	return p.index(key) >= 0
}

// Set inserts or replaces key.
func (p *Params) Set(key, value string) {
	if i := p.index(key); i >= 0 {
		(*p)[i].Value = value
		return
	}
	*p = append(*p, Param{Key: key, Value: value})
}

// SetIfMissing inserts key only when it is absent.
func (p *Params) SetIfMissing(key, value string) {
	if !p.Has(key) {
		*p = append(*p, Param{Key: key, Value: value})
	}
}

// Delete removes key, keeping the order of the rest.
func (p *Params) Delete(key string) {
	if i := p.index(key); i >= 0 {
		*p = append((*p)[:i], (*p)[i+1:]...)
	}
}

// Merge sets every entry of other, overriding existing keys.
func (p *Params) Merge(other Params) {
	for _, kv := range other {
		p.Set(kv.Key, kv.Value)
	}
}

// Clone returns an independent copy.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	copy(out, p)
	return out
}

// Keys returns the keys in order.
func (p Params) Keys() []string {
	keys := make([]string, len(p))
	for i, kv := range p {
		keys[i] = kv.Key
	}
	return keys
}

// String joins the options with colons for -x265-params.
func (p Params) String() string {
	parts := make([]string, len(p))
	for i, kv := range p {
		parts[i] = kv.String()
	}
	return strings.Join(parts, ":")
}

// FormatMaxCLL renders a max-cll value. Nil uses DefaultContentLightLevel.
func FormatMaxCLL(cll *ContentLightLevel) string {
	if cll == nil {
		return DefaultContentLightLevel().String()
	}
	return cll.String()
}
