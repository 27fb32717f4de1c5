package client_test

import (
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/adamwoolhether/ajax/client"
)

type badText struct{}

func (badText) MarshalText() ([]byte, error) { return nil, errors.New("cannot marshal") }

func TestEncode(t *testing.T) {
	var nilPtr *int
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	testCases := []struct {
		name   string
		params []client.Param
		exp    string
	}{
		{
			name: "empty",
			exp:  "",
		},
		{
			name:   "all nil",
			params: []client.Param{client.P("a", nil), client.P("b", nilPtr)},
			exp:    "",
		},
		{
			name:   "ordered pairs",
			params: []client.Param{client.P("attr1", "value1"), client.P("attr2", "value2")},
			exp:    "attr1=value1&attr2=value2",
		},
		{
			name:   "leading nil skipped",
			params: []client.Param{client.P("a", nil), client.P("b", "2")},
			exp:    "b=2",
		},
		{
			name:   "trailing nil skipped",
			params: []client.Param{client.P("a", "1"), client.P("b", nil)},
			exp:    "a=1",
		},
		{
			name:   "middle nils skipped",
			params: []client.Param{client.P("a", "1"), client.P("b", nil), client.P("c", nil), client.P("d", "4")},
			exp:    "a=1&d=4",
		},
		{
			name:   "values converted to text",
			params: []client.Param{client.P("n", 42), client.P("f", 1.5), client.P("ok", true)},
			exp:    "n=42&f=1.5&ok=true",
		},
		{
			name:   "text marshaler",
			params: []client.Param{client.P("at", ts)},
			exp:    "at=2024-05-01T10%3A00%3A00Z",
		},
		{
			name:   "stringer",
			params: []client.Param{client.P("ip", net.IPv4(10, 0, 0, 1))},
			exp:    "ip=10.0.0.1",
		},
		{
			name:   "form encoding",
			params: []client.Param{client.P("q", "a b&c=d/é*~")},
			exp:    "q=a+b%26c%3Dd%2F%C3%A9*%7E",
		},
		{
			name:   "empty string is kept",
			params: []client.Param{client.P("a", ""), client.P("b", "x")},
			exp:    "a=&b=x",
		},
		{
			name:   "attribute written verbatim",
			params: []client.Param{client.P("a b", "1"), client.P("", "2")},
			exp:    "a b=1&=2",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := client.Encode(tc.params...)
			if got != tc.exp {
				t.Errorf("expected %q, got %q", tc.exp, got)
			}

			if strings.HasPrefix(got, "&") || strings.HasSuffix(got, "&") || strings.Contains(got, "&&") {
				t.Errorf("malformed separators in %q", got)
			}
		})
	}
}

func TestEncode_SeparatorCount(t *testing.T) {
	values := []any{"x", nil, 1, nil, nil, "y", "z", nil}

	for n := range len(values) + 1 {
		params := make([]client.Param, 0, n)
		included := 0
		for i := range n {
			params = append(params, client.P("k", values[i]))
			if values[i] != nil {
				included++
			}
		}

		got := client.Encode(params...)
		seps := strings.Count(got, "&")

		switch {
		case included == 0 && got != "":
			t.Errorf("n=%d: expected empty string, got %q", n, got)
		case included > 0 && seps != included-1:
			t.Errorf("n=%d: expected %d separators, got %d in %q", n, included-1, seps, got)
		}
	}
}

func TestEncode_ConfigErrorPanics(t *testing.T) {
	testCases := []struct {
		name  string
		param client.Param
	}{
		{name: "marshal failure", param: client.P("bad", badText{})},
		{name: "invalid utf-8", param: client.P("bad", string([]byte{0xff, 0xfe}))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				r := recover()
				err, ok := r.(error)
				if !ok {
					t.Fatalf("expected error panic, got %v", r)
				}

				var ce *client.ConfigError
				if !errors.As(err, &ce) || ce.Attr != "bad" {
					t.Errorf("expected ConfigError for attr bad, got %v", err)
				}
				if !errors.Is(err, client.ErrConfig) {
					t.Errorf("expected ErrConfig, got %v", err)
				}
			}()

			client.Encode(client.P("ok", "1"), tc.param)
		})
	}
}
