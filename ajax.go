// Package ajax exposes the asynchronous request client builder.
package ajax

import (
	"github.com/adamwoolhether/ajax/client"
)

// NewClient instantiates a new *Client with the provided options.
// If not specified, a default http.Client is used and callbacks run on
// a loop goroutine owned by the client.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}
