// Package record holds the open-schema infobox record and its typed field
// values.
package record

import (
	"bytes"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Reserved keys present on every built record.
const (
	KeyTitle    = "title"
	KeyWikiLink = "wiki_link"
)

// Record is an insertion-ordered mapping from field name to Value. Setting an
// existing key replaces its value in place.
type Record struct {
	fields *orderedmap.OrderedMap[string, Value]
}

func New() *Record {
	return &Record{fields: orderedmap.New[string, Value]()}
}

func (r *Record) Set(key string, v Value) {
	r.fields.Set(key, v)
}

func (r *Record) Get(key string) (Value, bool) {
	return r.fields.Get(key)
}

// GetOr returns the value for key or fallback when the key is absent.
func (r *Record) GetOr(key string, fallback Value) Value {
	if v, ok := r.fields.Get(key); ok {
		return v
	}
	return fallback
}

func (r *Record) Has(key string) bool {
	_, ok := r.fields.Get(key)
	return ok
}

func (r *Record) Delete(key string) bool {
	_, ok := r.fields.Delete(key)
	return ok
}

func (r *Record) Len() int {
	return r.fields.Len()
}

func (r *Record) Keys() []string {
	keys := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Each visits fields in insertion order until fn returns false.
func (r *Record) Each(fn func(key string, v Value) bool) {
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

func (r *Record) Title() string {
	v, _ := r.GetOr(KeyTitle, Missing()).Text()
	return v
}

func (r *Record) WikiLink() string {
	v, _ := r.GetOr(KeyWikiLink, Missing()).Text()
	return v
}

// IsPrimitive reports whether every field survives the primitive format.
func (r *Record) IsPrimitive() bool {
	ok := true
	r.Each(func(_ string, v Value) bool {
		ok = v.IsPrimitive()
		return ok
	})
	return ok
}

// Equal compares two records as mappings; key order is not significant.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.Len() != o.Len() {
		return false
	}
	equal := true
	r.Each(func(key string, v Value) bool {
		ov, ok := o.Get(key)
		equal = ok && v.Equal(ov)
		return equal
	})
	return equal
}

// MarshalJSON writes the fields as a JSON object in insertion order without
// HTML escaping.
func (r *Record) MarshalJSON() ([]byte, error) {
	var (
		buf bytes.Buffer
		err error
	)
	buf.WriteByte('{')
	r.Each(func(key string, v Value) bool {
		var k, val []byte
		if k, err = marshalNoEscape(key); err != nil {
			return false
		}
		if val, err = v.MarshalJSON(); err != nil {
			err = fmt.Errorf("field %q: %w", key, err)
			return false
		}
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(val)
		return true
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	fields := orderedmap.New[string, Value]()
	if err := fields.UnmarshalJSON(data); err != nil {
		return err
	}
	r.fields = fields
	return nil
}

// EqualCollections compares two record collections position by position.
func EqualCollections(a, b []*Record) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
