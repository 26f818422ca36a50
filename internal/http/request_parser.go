// This file implements utilities for parsing and validating request data:
// JSON bodies, CSV uploads and the shared query parameters.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"feeledger/internal/core"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 10 << 20
)

// Format selects the representation of a report.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMessages Format = "messages"
)

// DecodeJSON reads a single JSON object from the body into dst. Unknown
// fields and trailing data are rejected as invalid input.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			return fmt.Errorf("%w: content type must be application/json", core.ErrInvalidInput)
		}
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", core.ErrInvalidInput)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body exceeds %d bytes", core.ErrInvalidInput, maxErr.Limit)
		default:
			return fmt.Errorf("%w: malformed JSON: %v", core.ErrInvalidInput, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON object", core.ErrInvalidInput)
	}
	return nil
}

// ReadUpload returns the CSV payload of r. It accepts either a raw body
// or a multipart form with the file in the "file" field.
func ReadUpload(w http.ResponseWriter, r *http.Request) (io.Reader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var data []byte
	if mt == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxUploadBody); err != nil {
			return nil, fmt.Errorf("%w: malformed upload: %v", core.ErrInvalidInput, err)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("%w: upload has no file field", core.ErrInvalidInput)
		}
		defer f.Close()
		if data, err = io.ReadAll(f); err != nil {
			return nil, fmt.Errorf("%w: read upload: %v", core.ErrInvalidInput, err)
		}
	} else {
		var err error
		if data, err = io.ReadAll(r.Body); err != nil {
			return nil, fmt.Errorf("%w: read upload: %v", core.ErrInvalidInput, err)
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: upload is empty", core.ErrInvalidInput)
	}
	return bytes.NewReader(data), nil
}

// ParseFormat reads ?format=, defaulting to JSON. Only JSON and the
// listed formats are accepted.
func ParseFormat(query url.Values, allowed ...Format) (Format, error) {
	v := Format(strings.ToLower(strings.TrimSpace(query.Get("format"))))
	if v == "" || v == FormatJSON {
		return FormatJSON, nil
	}
	for _, f := range allowed {
		if v == f {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported format %q", core.ErrInvalidInput, v)
}

// ParseClassParam reads ?class=. An absent class is returned as "".
func ParseClassParam(query url.Values) (core.ClassCategory, error) {
	v := strings.TrimSpace(query.Get("class"))
	if v == "" {
		return "", nil
	}
	return core.ParseClassCategory(v)
}
