// Package prg loads raw program images in the .prg format most 6502
// assemblers emit: a two-byte little-endian load address followed by the
// payload, and nothing else.
package prg

import (
	"errors"
	"fmt"
	"io"
	"os"

	"phi2/emu/log"
)

var (
	// ErrEmpty reports an image with no payload after the load address.
	ErrEmpty = errors.New("image has no payload")

	// ErrTooLarge reports an image extending past the top of the 64 KiB
	// address space.
	ErrTooLarge = errors.New("image extends past the top of memory")
)

// Image is a program image and the address it loads at.
type Image struct {
	Load uint16 // load address of Data[0]
	Data []byte
}

// End returns the first address past the image. The value can be 0x10000
// for an image that fills memory up to the very top.
func (img *Image) End() int {
	return int(img.Load) + len(img.Data)
}

// Open loads a program image from file.
func Open(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img := new(Image)
	if _, err := img.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.ModPRG.InfoZ("image loaded").
		String("path", path).
		Hex16("load", img.Load).
		Int("bytes", len(img.Data)).
		End()
	return img, nil
}

// ReadFrom implements the io.ReaderFrom interface.
func (img *Image) ReadFrom(r io.Reader) (int64, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	if len(buf) <= 2 {
		return 0, ErrEmpty
	}

	img.Load = uint16(buf[1])<<8 | uint16(buf[0])
	img.Data = buf[2:]
	if img.End() > 0x10000 {
		return 0, fmt.Errorf("%d bytes at $%04X: %w", len(img.Data), img.Load, ErrTooLarge)
	}
	return int64(len(buf)), nil
}
