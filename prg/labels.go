package prg

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Symbols maps addresses to the labels naming them.
type Symbols map[uint16]string

// At returns the label at addr. The signature matches the symbol resolver
// the trace layer upgrades a bus to.
func (s Symbols) At(addr uint16) (string, bool) {
	name, ok := s[addr]
	return name, ok
}

// OpenLabels loads a VICE label file.
func OpenLabels(path string) (Symbols, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	syms, err := ReadLabels(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return syms, nil
}

// ReadLabels parses the VICE monitor label format, one "al C:<hex> .<name>"
// line per label. Blank lines and ; comments are skipped. When a file
// defines the same address twice the first definition wins.
func ReadLabels(r io.Reader) (Symbols, error) {
	syms := make(Symbols)

	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, ";") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != 3 || fields[0] != "al" {
			return nil, fmt.Errorf("line %d: not a label line: %q", line, text)
		}

		addr, err := strconv.ParseUint(strings.TrimPrefix(fields[1], "C:"), 16, 16)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad address %q", line, fields[1])
		}
		name := strings.TrimPrefix(fields[2], ".")
		if name == "" {
			return nil, fmt.Errorf("line %d: empty label name", line)
		}

		if _, ok := syms[uint16(addr)]; !ok {
			syms[uint16(addr)] = name
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return syms, nil
}
