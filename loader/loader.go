// Package loader provides loading of raw 8086 binaries.
package loader

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// MaxProgramSize is the largest program the 16-bit instruction pointer can
// address.
const MaxProgramSize = 1 << 16

// ErrTooLarge is returned for programs that do not fit the address space.
var ErrTooLarge = errors.New("program exceeds the 64 KiB address space")

// Program represents a loaded flat binary ready for execution. Execution
// starts at the first byte.
type Program struct {
	// Name identifies where the program came from.
	Name string
	// Code holds the instruction stream.
	Code []byte
}

// Load reads a flat binary from path.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Read(f, path)
}

// Read reads a flat binary from r. name is recorded in the Program.
func Read(r io.Reader, name string) (*Program, error) {
	// Read one byte past the limit to detect oversized input.
	code, err := io.ReadAll(io.LimitReader(r, MaxProgramSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read program %s: %w", name, err)
	}

	if len(code) > MaxProgramSize {
		return nil, fmt.Errorf("%s: %w", name, ErrTooLarge)
	}

	return &Program{Name: name, Code: code}, nil
}
