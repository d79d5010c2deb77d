package s3

import (
	"errors"
	"testing"

	"github.com/rbaliyan/conversation/store"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri    string
		bucket string
		key    string
		ok     bool
	}{
		{"s3://bucket/conversation/attachments/2024/01/abc", "bucket", "conversation/attachments/2024/01/abc", true},
		{"s3://bucket/", "", "", false},
		{"s3://bucket", "", "", false},
		{"gs://bucket/key", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := parseURI(tt.uri)
			if !tt.ok {
				if !errors.Is(err, store.ErrInvalidID) {
					t.Fatalf("expected ErrInvalidID, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Fatalf("got (%q, %q), want (%q, %q)", bucket, key, tt.bucket, tt.key)
			}
		})
	}
}
