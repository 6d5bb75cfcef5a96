package prg

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReadFrom(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		img := new(Image)
		if _, err := img.ReadFrom(bytes.NewReader([]byte{0x0D, 0x08, 0xA9, 0x01, 0x60})); err != nil {
			t.Fatal(err)
		}
		if img.Load != 0x080D {
			t.Errorf("load: got $%04X, want $080D", img.Load)
		}
		if want := []byte{0xA9, 0x01, 0x60}; !bytes.Equal(img.Data, want) {
			t.Errorf("data: got % x, want % x", img.Data, want)
		}
		if img.End() != 0x0810 {
			t.Errorf("end: got $%04X, want $0810", img.End())
		}
	})

	t.Run("no payload", func(t *testing.T) {
		for _, raw := range [][]byte{nil, {0x00}, {0x00, 0x06}} {
			img := new(Image)
			if _, err := img.ReadFrom(bytes.NewReader(raw)); !errors.Is(err, ErrEmpty) {
				t.Errorf("%d bytes: got %v, want ErrEmpty", len(raw), err)
			}
		}
	})

	t.Run("too large", func(t *testing.T) {
		raw := append([]byte{0xF0, 0xFF}, make([]byte, 0x11)...)
		img := new(Image)
		if _, err := img.ReadFrom(bytes.NewReader(raw)); !errors.Is(err, ErrTooLarge) {
			t.Errorf("got %v, want ErrTooLarge", err)
		}
	})

	t.Run("fills to the top", func(t *testing.T) {
		raw := append([]byte{0xF0, 0xFF}, make([]byte, 0x10)...)
		img := new(Image)
		if _, err := img.ReadFrom(bytes.NewReader(raw)); err != nil {
			t.Fatal(err)
		}
		if img.End() != 0x10000 {
			t.Errorf("end: got %#X, want 0x10000", img.End())
		}
	})
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.prg")
	if err := os.WriteFile(path, []byte{0x00, 0x06, 0xEA, 0x00}, 0o644); err != nil {
		t.Fatal(err)
	}

	img, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	want := &Image{Load: 0x0600, Data: []byte{0xEA, 0x00}}
	if diff := cmp.Diff(want, img); diff != "" {
		t.Errorf("image mismatch (-want +got):\n%s", diff)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "nope.prg")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
