package client

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Listener receives the result of one request on the client's callback
// context. Exactly one of Done or Fail is called, then Always.
type Listener interface {
	// Done is called with the response text when the request succeeded.
	Done(body string)
	// Fail is called with the error responsible for the failure.
	Fail(err error)
	// Always is called after Done or Fail. success is true when Done was called.
	Always(success bool)
}

// Funcs adapts plain functions to a [Listener]. Nil fields are skipped.
type Funcs struct {
	OnDone   func(body string)
	OnFail   func(err error)
	OnAlways func(success bool)
}

func (f Funcs) Done(body string) {
	if f.OnDone != nil {
		f.OnDone(body)
	}
}

func (f Funcs) Fail(err error) {
	if f.OnFail != nil {
		f.OnFail(err)
	}
}

func (f Funcs) Always(success bool) {
	if f.OnAlways != nil {
		f.OnAlways(success)
	}
}

// nopListener is used when no listener was attached.
var nopListener Listener = Funcs{}

// JSONObject is a decoded JSON object.
type JSONObject = map[string]any

// JSONListener is a [Listener] whose success path receives the response
// decoded as a JSON object. An error returned from Done is delivered to
// Fail, letting handlers reject an unexpected document shape without
// their own error plumbing.
type JSONListener interface {
	Done(obj JSONObject) error
	Fail(err error)
	Always(success bool)
}

// JSONFuncs adapts plain functions to a [JSONListener]. Nil fields are skipped.
type JSONFuncs struct {
	OnDone   func(obj JSONObject) error
	OnFail   func(err error)
	OnAlways func(success bool)
}

func (f JSONFuncs) Done(obj JSONObject) error {
	if f.OnDone != nil {
		return f.OnDone(obj)
	}

	return nil
}

func (f JSONFuncs) Fail(err error) {
	if f.OnFail != nil {
		f.OnFail(err)
	}
}

func (f JSONFuncs) Always(success bool) {
	if f.OnAlways != nil {
		f.OnAlways(success)
	}
}

// JSONOption is a functional option for [JSON].
type JSONOption func(*jsonOpts)

type jsonOpts struct {
	useNumber bool
}

// WithJSONNumber tells the decoder to use [json.Decoder.UseNumber],
// preserving number precision as [json.Number] instead of float64.
func WithJSONNumber() JSONOption {
	return func(opts *jsonOpts) {
		opts.useNumber = true
	}
}

// JSON wraps jl so it can be attached wherever a [Listener] is expected.
// A body that is not a single JSON object is reported to jl.Fail as a
// *[DecodeError], and the following Always call reports false.
func JSON(jl JSONListener, optFns ...JSONOption) Listener {
	var opts jsonOpts
	for _, opt := range optFns {
		opt(&opts)
	}

	return &jsonAdapter{inner: jl, opts: opts}
}

// jsonAdapter relies on Done/Fail and Always for one request running in
// the same unit of work on the callback context.
type jsonAdapter struct {
	inner  JSONListener
	opts   jsonOpts
	failed bool
}

func (a *jsonAdapter) Done(body string) {
	obj, err := decodeObject(body, a.opts.useNumber)
	if err != nil {
		a.Fail(&DecodeError{Raw: body, Err: err})
		return
	}

	if err := a.inner.Done(obj); err != nil {
		a.Fail(err)
	}
}

func (a *jsonAdapter) Fail(err error) {
	a.failed = true
	a.inner.Fail(err)
}

func (a *jsonAdapter) Always(success bool) {
	failed := a.failed
	a.failed = false
	a.inner.Always(success && !failed)
}

var (
	errNotObject    = errors.New("not a JSON object")
	errTrailingData = errors.New("unexpected data after JSON object")
)

func decodeObject(body string, useNumber bool) (JSONObject, error) {
	d := json.NewDecoder(strings.NewReader(body))
	if useNumber {
		d.UseNumber()
	}

	var obj JSONObject
	if err := d.Decode(&obj); err != nil {
		return nil, err
	}

	// "null" decodes without error into a nil map.
	if obj == nil {
		return nil, errNotObject
	}

	if _, err := d.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}

	return obj, nil
}
