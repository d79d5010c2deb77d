package api

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestMaxDepthKey(t *testing.T) {
	data, err := json.Marshal(MaxDepth{MaxDepth: 3})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"max-depth":3}` {
		t.Fatalf("got %s", data)
	}
}

func TestDisplayNamesPairs(t *testing.T) {
	var m Mail
	if err := json.Unmarshal([]byte(`{"id":"1","date":1700000000000,"displayNames":[["u1","Ada"],["u2","Bob"]]}`), &m); err != nil {
		t.Fatal(err)
	}
	if len(m.DisplayNames) != 2 || m.DisplayNames[1][1] != "Bob" {
		t.Fatalf("unexpected display names %v", m.DisplayNames)
	}
	if m.Date != 1700000000000 {
		t.Fatalf("unexpected date %d", m.Date)
	}
}

func TestError(t *testing.T) {
	var err error = &Error{Status: 400, Message: "empty recipients"}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Retryable() {
		t.Fatalf("400 must not be retryable")
	}
	if err.Error() != "api: status 400: empty recipients" {
		t.Fatalf("got %q", err.Error())
	}
	if !(&Error{Status: 503}).Retryable() || !(&Error{Status: 429}).Retryable() {
		t.Fatal("429 and 5xx must be retryable")
	}
}

func TestIDs(t *testing.T) {
	if got := IDs("a", "b").Encode(); got != "id=a&id=b" {
		t.Fatalf("got %q", got)
	}
}
