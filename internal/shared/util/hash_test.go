package util

import (
	"bytes"
	"errors"
	"testing"
)

func TestHashUserKey(t *testing.T) {
	id := "4b7e1c9a-0000-4000-8000-000000000001"
	got := HashUserKey(id)
	if got != HashUserKey(id) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(got))
	}
}

func TestHashBytesKnownDigest(t *testing.T) {
	const want = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got := HashBytes([]byte("hello world")); got != want {
		t.Fatalf("HashBytes = %s, want %s", got, want)
	}
	if HashBytes([]byte("hello world")) != HashBytes([]byte("hello world")) {
		t.Fatalf("expected deterministic digest")
	}
	if HashBytes([]byte("hello world")) == HashBytes([]byte("hello world!")) {
		t.Fatalf("expected different digests for different content")
	}
}

func TestHashReaderMatchesHashBytes(t *testing.T) {
	payload := bytes.Repeat([]byte("signed-content-"), 4096)
	got, n, err := HashReader(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}
	if n != int64(len(payload)) {
		t.Fatalf("expected %d bytes read, got %d", len(payload), n)
	}
	if got != HashBytes(payload) {
		t.Fatalf("HashReader digest %s differs from HashBytes %s", got, HashBytes(payload))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestHashReaderPropagatesReadError(t *testing.T) {
	if _, _, err := HashReader(failingReader{}); err == nil {
		t.Fatalf("expected error from failing reader")
	}
}
