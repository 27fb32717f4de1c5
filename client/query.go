package client

import (
	"context"
)

// Query is a single-shot fluent request builder created by [Client.Query].
// Each verb snapshots the URL, body and pending listener, starts one
// asynchronous request, and returns the same Query for chaining.
//
// A Query is not safe for concurrent use by multiple goroutines.
type Query struct {
	c        *Client
	ctx      context.Context
	listener Listener
	handles  []*Handle
}

// Finish attaches l as the pending listener without issuing a request.
// A nil l resets it to a listener that ignores every result.
func (q *Query) Finish(l Listener) *Query {
	if l == nil {
		l = nopListener
	}
	q.listener = l
	return q
}

// Get issues a GET request to rawURL. A non-nil l replaces the pending listener.
func (q *Query) Get(rawURL string, l Listener) *Query {
	q.use(l)
	return q.issue(MethodGet, rawURL, nil)
}

// GetQuery issues a GET request to rawURL + "?" + query. query must
// already be encoded.
func (q *Query) GetQuery(rawURL, query string, l Listener) *Query {
	return q.Get(rawURL+"?"+query, l)
}

// GetParams issues a GET request with params encoded by [Encode] as its query string.
func (q *Query) GetParams(rawURL string, params []Param, l Listener) *Query {
	return q.GetQuery(rawURL, Encode(params...), l)
}

// Post issues a POST request with an empty body.
func (q *Query) Post(rawURL string, l Listener) *Query {
	return q.PostParams(rawURL, nil, l)
}

// PostString issues a POST request whose body is written as is.
func (q *Query) PostString(rawURL, body string, l Listener) *Query {
	q.use(l)
	return q.issue(MethodPost, rawURL, &body)
}

// PostParams issues a POST request with params encoded by [Encode] as its body.
func (q *Query) PostParams(rawURL string, params []Param, l Listener) *Query {
	return q.PostString(rawURL, Encode(params...), l)
}

// Request issues a POST when method is "post" and a GET otherwise,
// including for unrecognised methods. params are encoded as the body or
// the query string accordingly.
func (q *Query) Request(rawURL, method string, params []Param, l Listener) *Query {
	if ParseMethod(method) == MethodPost {
		return q.PostParams(rawURL, params, l)
	}

	return q.GetParams(rawURL, params, l)
}

// Handle returns the handle of the most recently issued request, or nil
// when nothing was issued yet.
func (q *Query) Handle() *Handle {
	if len(q.handles) == 0 {
		return nil
	}

	return q.handles[len(q.handles)-1]
}

// Handles returns the handles of every request issued by q, oldest first.
func (q *Query) Handles() []*Handle {
	return q.handles
}

func (q *Query) use(l Listener) {
	if l != nil {
		q.listener = l
	}
}

func (q *Query) issue(method Method, rawURL string, body *string) *Query {
	q.handles = append(q.handles, q.c.issue(q.ctx, method, rawURL, body, q.listener))
	return q
}
