// Package http serves the fee ledger JSON API.
//
// This file implements the Builder Pattern for JSON and CSV responses so
// every handler writes status, headers and bodies the same way.

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	data       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.data = v
	return b
}

// Write encodes the body before touching w, so an encoding failure still
// produces a clean 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	body, err := json.Marshal(b.data)
	if err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(body, '\n'))
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Data(ErrorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}

func ServiceUnavailableError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}

// WithRequestID stamps the request id into an error body.
func (b *JSONResponseBuilder) WithRequestID(id string) *JSONResponseBuilder {
	if body, ok := b.data.(ErrorBody); ok && id != "" {
		body.RequestID = id
		b.data = body
	}
	return b
}

// CSVResponse renders a download. The body is rendered into memory first
// so a failing render becomes a JSON 500 instead of a truncated file.
type CSVResponse struct {
	filename    string
	contentType string
	render      func(io.Writer) error
}

func NewCSVResponse(filename string, render func(io.Writer) error) *CSVResponse {
	return &CSVResponse{
		filename:    filename,
		contentType: "text/csv; charset=utf-8",
		render:      render,
	}
}

// NewTextResponse is a CSVResponse for plain text attachments.
func NewTextResponse(filename string, render func(io.Writer) error) *CSVResponse {
	c := NewCSVResponse(filename, render)
	c.contentType = "text/plain; charset=utf-8"
	return c
}

func (c *CSVResponse) Write(w http.ResponseWriter) error {
	var buf bytes.Buffer
	if err := c.render(&buf); err != nil {
		return fmt.Errorf("render %s: %w", c.filename, err)
	}
	w.Header().Set("Content-Type", c.contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", c.filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
	return nil
}
