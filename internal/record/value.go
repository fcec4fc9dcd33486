package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"
)

type Kind int

const (
	KindMissing Kind = iota
	KindText
	KindList
	KindInt
	KindMoney
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindInt:
		return "int"
	case KindMoney:
		return "money"
	case KindDate:
		return "date"
	default:
		return "missing"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k := KindMissing; k <= KindDate; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return KindMissing, fmt.Errorf("unknown value kind %q", s)
}

var ErrNotPrimitive = errors.New("value is not primitive-serializable")

// Value is a single infobox field. Money and Date values may be null, which
// means the field was a normalization target but could not be parsed.
type Value struct {
	kind  Kind
	text  string
	list  []string
	num   int
	money float64
	date  time.Time
	valid bool
}

func Missing() Value { return Value{} }

func Text(s string) Value { return Value{kind: KindText, text: s, valid: true} }

func List(items ...string) Value {
	if items == nil {
		items = []string{}
	}
	return Value{kind: KindList, list: items, valid: true}
}

func Int(n int) Value { return Value{kind: KindInt, num: n, valid: true} }

func Money(amount float64) Value { return Value{kind: KindMoney, money: amount, valid: true} }

func NullMoney() Value { return Value{kind: KindMoney} }

func Date(t time.Time) Value { return Value{kind: KindDate, date: t, valid: true} }

func NullDate() Value { return Value{kind: KindDate} }

func (v Value) Kind() Kind { return v.kind }

// IsNull reports a Missing value or a null Money/Date.
func (v Value) IsNull() bool { return !v.valid }

// IsPrimitive reports whether the value survives the primitive (JSON) format.
func (v Value) IsPrimitive() bool {
	switch v.kind {
	case KindMoney, KindDate:
		return false
	}
	return true
}

func (v Value) Text() (string, bool) { return v.text, v.kind == KindText }

func (v Value) List() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return slices.Clone(v.list), true
}

func (v Value) Int() (int, bool) { return v.num, v.kind == KindInt }

func (v Value) Money() (float64, bool) { return v.money, v.kind == KindMoney && v.valid }

func (v Value) Date() (time.Time, bool) { return v.date, v.kind == KindDate && v.valid }

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.valid != o.valid {
		return false
	}
	if !v.valid {
		return true
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindList:
		return slices.Equal(v.list, o.list)
	case KindInt:
		return v.num == o.num
	case KindMoney:
		return v.money == o.money
	case KindDate:
		return v.date.Equal(o.date)
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindText:
		return strconv.Quote(v.text)
	case KindList:
		return fmt.Sprintf("%q", v.list)
	case KindInt:
		return strconv.Itoa(v.num)
	case KindMoney:
		if !v.valid {
			return "money(null)"
		}
		return "money(" + strconv.FormatFloat(v.money, 'f', -1, 64) + ")"
	case KindDate:
		if !v.valid {
			return "date(null)"
		}
		return "date(" + v.date.Format(time.DateOnly) + ")"
	}
	return "missing"
}

// MarshalJSON encodes primitive values only; Money and Date fail with
// ErrNotPrimitive.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindMissing:
		return []byte("null"), nil
	case KindText:
		return marshalNoEscape(v.text)
	case KindList:
		return marshalNoEscape(v.list)
	case KindInt:
		return []byte(strconv.Itoa(v.num)), nil
	}
	return nil, fmt.Errorf("%s field: %w", v.kind, ErrNotPrimitive)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.New("empty JSON value")
	}
	switch data[0] {
	case 'n':
		*v = Missing()
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("list field: %w", err)
		}
		*v = List(items...)
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("integer field %s: %w", data, err)
	}
	*v = Int(n)
	return nil
}

func marshalNoEscape(x any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(x); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
