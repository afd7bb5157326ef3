package firefox

import (
	"bytes"
	"strings"
	"testing"
)

func TestMozLz4(t *testing.T) {
	payload := []byte(strings.Repeat(`{"title":"Bookmarks Toolbar","children":[]}`, 50))
	enc, err := CompressMozLz4(payload)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(enc, []byte("mozLz40\x00")) {
		t.Fatalf("missing magic: %q", enc[:8])
	}
	if len(enc) >= len(payload) {
		t.Errorf("repetitive payload did not compress: %d >= %d", len(enc), len(payload))
	}
	dec, err := DecompressMozLz4(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, payload) {
		t.Error("decoded payload differs")
	}
}

func TestDecompressMozLz4_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short", []byte("mozLz4")},
		{"bad magic", []byte("notLz40\x00\x05\x00\x00\x00hello")},
		{"truncated block", []byte("mozLz40\x00\xff\x00\x00\x00\xf0")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecompressMozLz4(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMozLz4_Empty(t *testing.T) {
	enc, err := CompressMozLz4(nil)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := DecompressMozLz4(enc)
	if err != nil {
		t.Fatal(err)
	}
	if len(dec) != 0 {
		t.Errorf("decoded %d bytes", len(dec))
	}
}
