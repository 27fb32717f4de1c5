package client

import (
	"encoding"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"unicode/utf8"
)

// Param links a URL parameter attribute to its value.
// A nil Value omits the pair from the encoded output.
type Param struct {
	Attr  string
	Value any
}

// P is shorthand for Param{Attr: attr, Value: value}.
func P(attr string, value any) Param {
	return Param{Attr: attr, Value: value}
}

var errInvalidUTF8 = errors.New("value is not valid UTF-8")

// formEscaper rewrites [url.QueryEscape] output to the classic
// form-encoding alphabet, which keeps '*' and escapes '~'.
var formEscaper = strings.NewReplacer("%2A", "*", "~", "%7E")

// Encode converts params to "attr1=value1&attr2=value2". Values are
// form-encoded as UTF-8; attributes are written verbatim. Params with a
// nil value are skipped without leaving a separator behind.
//
// Encode panics with a *[ConfigError] when a value cannot be converted
// to text. That is a programming error, not a request failure.
func Encode(params ...Param) string {
	var b strings.Builder
	for _, p := range params {
		text, ok := paramText(p)
		if !ok {
			continue
		}

		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.Attr)
		b.WriteByte('=')
		b.WriteString(formEscaper.Replace(url.QueryEscape(text)))
	}

	return b.String()
}

// paramText returns the textual form of p.Value, or false when the value
// is absent.
func paramText(p Param) (string, bool) {
	if isNil(p.Value) {
		return "", false
	}

	var text string
	switch v := p.Value.(type) {
	case string:
		text = v
	case encoding.TextMarshaler:
		b, err := v.MarshalText()
		if err != nil {
			panic(&ConfigError{Attr: p.Attr, Err: err})
		}
		text = string(b)
	case fmt.Stringer:
		text = v.String()
	default:
		text = fmt.Sprint(v)
	}

	if !utf8.ValidString(text) {
		panic(&ConfigError{Attr: p.Attr, Err: errInvalidUTF8})
	}

	return text, true
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}

	return false
}
