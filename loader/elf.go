// Package loader provides program loading for CGRA-32 executables. It
// accepts ELF64 images as well as raw flat binaries.
package loader

import (
	"debug/elf"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/cgrasim/mem"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a loadable segment from a program image.
type Segment struct {
	// VirtAddr is the virtual address where this segment should be loaded.
	VirtAddr uint64
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint64
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded program ready for execution.
type Program struct {
	// EntryPoint is the virtual address where execution should begin.
	EntryPoint uint64
	// Segments contains all loadable segments from the image.
	Segments []Segment
}

// Load parses an ELF64 binary and returns a Program ready for loading into
// the simulator's memory. CGRA-32 has no registered ELF machine value, so
// toolchains emit EM_NONE; both EM_NONE and EM_RISCV images are accepted.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("not a 64-bit ELF file")
	}
	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("not a little-endian ELF file")
	}
	if f.Machine != elf.EM_NONE && f.Machine != elf.EM_RISCV {
		return nil, fmt.Errorf("unsupported ELF machine type: %v", f.Machine)
	}

	prog := &Program{
		EntryPoint: f.Entry,
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w",
					phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf(
					"short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		var flags SegmentFlags
		if phdr.Flags&elf.PF_X != 0 {
			flags |= SegmentFlagExecute
		}
		if phdr.Flags&elf.PF_W != 0 {
			flags |= SegmentFlagWrite
		}
		if phdr.Flags&elf.PF_R != 0 {
			flags |= SegmentFlagRead
		}

		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: phdr.Vaddr,
			Data:     data,
			MemSize:  phdr.Memsz,
			Flags:    flags,
		})
	}

	return prog, nil
}

// LoadRaw reads a flat binary image as a single RWX segment at base. The
// entry point is the base address. The image must hold whole instruction
// words.
func LoadRaw(path string, base uint64) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("raw image is empty")
	}
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("raw image size %d is not word-aligned", len(data))
	}

	return &Program{
		EntryPoint: base,
		Segments: []Segment{
			{
				VirtAddr: base,
				Data:     data,
				MemSize:  uint64(len(data)),
				Flags:    SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
			},
		},
	}, nil
}

// LoadInto copies every segment into the given memory, zero-filling BSS
// tails.
func (p *Program) LoadInto(memory *mem.Memory) {
	for _, seg := range p.Segments {
		memory.LoadSegment(seg.VirtAddr, seg.Data, seg.MemSize)
	}
}
