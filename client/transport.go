package client

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Transport performs one blocking request. Implementations must report
// every failure through the returned [Outcome] and never panic.
type Transport interface {
	Execute(ctx context.Context, req Request) Outcome
}

// TransportFunc adapts a function to a [Transport].
type TransportFunc func(ctx context.Context, req Request) Outcome

func (f TransportFunc) Execute(ctx context.Context, req Request) Outcome { return f(ctx, req) }

const (
	formContentType = "application/x-www-form-urlencoded"
	requestIDHeader = "X-Request-ID"
	spanName        = "ajax.request"
)

// httpTransport executes requests with an *http.Client.
type httpTransport struct {
	c      *http.Client
	tracer trace.Tracer
	logger *slog.Logger
}

func (t *httpTransport) Execute(ctx context.Context, req Request) Outcome {
	ctx, span := t.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("http.request.method", string(req.Method)),
		attribute.String("url.full", req.URL),
		attribute.String("ajax.request_id", req.ID.String()),
	)

	outcome := t.execute(ctx, req)

	var se *StatusError
	if errors.As(outcome.Err, &se) {
		span.SetAttributes(attribute.Int("http.response.status_code", se.StatusCode))
	}
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Err.Error())
	} else {
		span.SetAttributes(attribute.Int("http.response.status_code", http.StatusOK))
	}

	return outcome
}

func (t *httpTransport) execute(ctx context.Context, req Request) Outcome {
	if err := validateRequest(req); err != nil {
		return Failed(&TransportError{Op: "validate", URL: req.URL, Err: err})
	}

	var body io.Reader
	if req.Method == MethodPost && req.Body != nil {
		body = strings.NewReader(*req.Body)
	}

	hr, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, body)
	if err != nil {
		return Failed(&TransportError{Op: "open", URL: req.URL, Err: err})
	}

	if req.Method == MethodPost {
		hr.Header.Set("Content-Type", formContentType)
	}
	hr.Header.Set(requestIDHeader, req.ID.String())
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(hr.Header))

	resp, err := t.c.Do(hr)
	if err != nil {
		return Failed(&TransportError{Op: "do", URL: req.URL, Err: err})
	}

	discardBody := false
	defer func() {
		if discardBody {
			if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize)); err != nil {
				t.logger.Error("failed to discard unused body", "request_id", req.ID, "error", err)
			}
		}
		if err := resp.Body.Close(); err != nil {
			t.logger.Error("failed to close response body", "request_id", req.ID, "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		discardBody = true
		return Failed(&StatusError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)})
	}

	text, err := readLines(resp.Body)
	if err != nil {
		return Failed(&TransportError{Op: "read", URL: req.URL, Err: err})
	}

	return Succeeded(text)
}

// readLines reads r line by line and concatenates the lines without any
// separator, so every "\n", "\r\n" and "\r" terminator disappears from
// the result.
func readLines(r io.Reader) (string, error) {
	br := bufio.NewReader(r)

	var b strings.Builder
	for {
		line, err := br.ReadString('\n')
		b.WriteString(stripTerminators(line))

		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
	}
}

var terminators = strings.NewReplacer("\r", "", "\n", "")

func stripTerminators(line string) string {
	if !strings.ContainsAny(line, "\r\n") {
		return line
	}

	return terminators.Replace(line)
}
