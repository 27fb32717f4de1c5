// Package client issues HTTP requests off the calling goroutine and
// delivers their results to listeners on a designated callback context.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithTimeout(10 * time.Second),
//		client.WithUserAgent("myapp/1.0"),
//		client.WithThrottle(5, 1),
//	)
//	defer c.Close(ctx)
//
// Without [WithExecutor] the client owns a private [Loop] and every
// callback runs on that loop's goroutine. Applications with their own
// event loop pass an [Executor] that schedules onto it.
//
// # Issuing Requests
//
// A [Query] is a one-shot builder. [Query.Finish] sets the pending
// listener, and each verb issues one request:
//
//	c.Query().
//		Finish(listener).
//		GetParams("https://api.example.com/search", []client.Param{
//			client.P("q", "go"),
//			client.P("page", 2),
//			client.P("filter", nil), // skipped
//		}, nil)
//
// Verbs return immediately. Exactly one of Done or Fail is called for
// each request, followed by Always.
//
// # Parameters
//
// [Encode] produces application/x-www-form-urlencoded text. Pairs whose
// value is nil are omitted, and values are converted to text before
// escaping. Attribute names are written as given.
//
// # Response Bodies
//
// Bodies are read line by line and joined without separators, so a
// multi-line body arrives as one string with its line breaks removed.
// Only status 200 counts as success; any other status is delivered as a
// [*StatusError].
//
// # JSON
//
// [JSON] wraps a [JSONListener] so Done receives a decoded object. A body
// that is not a JSON object is reported to Fail as a [*DecodeError].
package client
