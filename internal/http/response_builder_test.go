package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONResponseBuilder(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/students/STU-1").
		Data(map[string]int{"count": 2}).
		Write(rec)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("Location") != "/api/students/STU-1" {
		t.Errorf("Location = %q", rec.Header().Get("Location"))
	}
	if rec.Body.String() != "{\"count\":2}\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestJSONResponseBuilderEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusCreated).Data(make(chan int)).Write(rec)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *JSONResponseBuilder
		status  int
	}{
		{"bad request", BadRequestError("bad"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("invalid input: x"), http.StatusUnprocessableEntity},
		{"not found", NotFoundError("not found"), http.StatusNotFound},
		{"internal", InternalServerError(), http.StatusInternalServerError},
		{"rate limit", TooManyRequestsError(), http.StatusTooManyRequests},
		{"unavailable", ServiceUnavailableError("down"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.builder.WithRequestID("req_1").Write(rec)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body ErrorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error == "" || body.RequestID != "req_1" {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestCSVResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	err := NewCSVResponse("ledger_STU-1.csv", func(w io.Writer) error {
		_, err := io.WriteString(w, "a,b\n1,2\n")
		return err
	}).Write(rec)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if rec.Header().Get("Content-Disposition") != `attachment; filename="ledger_STU-1.csv"` {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if rec.Body.String() != "a,b\n1,2\n" {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	err = NewTextResponse("messages.txt", func(w io.Writer) error { return errors.New("boom") }).Write(rec)
	if err == nil {
		t.Fatal("expected render error")
	}
	if rec.Body.Len() != 0 || rec.Header().Get("Content-Disposition") != "" {
		t.Error("failed render wrote a partial response")
	}
}
