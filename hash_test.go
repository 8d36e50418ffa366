package doublet

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

// TestHashContent checks that streaming through the pooled buffer gives the
// same sum as hashing the content directly.
func TestHashContent(t *testing.T) {
	testCases := []struct {
		name    string
		content []byte
	}{
		{name: "Normal entry", content: []byte("test content")},
		{name: "Empty entry", content: []byte{}},
		{name: "Larger than the buffer", content: bytes.Repeat([]byte("0123456789abcdef"), 5000)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h1 := xxhash.New()
			h2 := xxhash.New()

			if err := hashContent(bytes.NewReader(tc.content), h1); err != nil {
				t.Fatalf("hashContent() error = %v", err)
			}
			h2.Write(tc.content)

			if !bytes.Equal(h1.Sum(nil), h2.Sum(nil)) {
				t.Errorf("hashContent() produced different hash than direct hashing")
			}
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read failure") }

func TestHashContent_Fail(t *testing.T) {
	if err := hashContent(failingReader{}, xxhash.New()); err == nil {
		t.Error("Expected an error from a failing reader")
	}
	if _, err := digest(failingReader{}, nil); err == nil {
		t.Error("Expected digest to propagate the read error")
	}
}

func TestDigestUsesConfiguredHash(t *testing.T) {
	memFs := afero.NewMemMapFs()
	writeZip(t, memFs, "/lib/a.jar", map[string]string{"res": "content"})

	m := newTestMonitor(t, memFs,
		WithExplicitPath("/lib/a.jar"),
		WithHashFunc(func() hash.Hash { return sha256.New() }),
	)

	l, ok := m.WhichResource(context.Background(), "res")
	if !ok {
		t.Fatal("Expected res to be found")
	}
	got, err := l.Digest()
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}
	sum := sha256.Sum256([]byte("content"))
	if want := hex.EncodeToString(sum[:]); got != want {
		t.Errorf("Digest = %s, want %s", got, want)
	}
}
