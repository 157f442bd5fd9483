package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cgrasim/insts"
	"github.com/sarchlab/cgrasim/loader"
	"github.com/sarchlab/cgrasim/mem"
)

// elfSegment describes one program header for the test ELF builder.
type elfSegment struct {
	ptype uint32
	flags uint32
	vaddr uint64
	data  []byte
	memsz uint64
}

// writeELF builds a minimal ELF64 image with the given machine value and
// segments.
func writeELF(path string, machine uint16, entry uint64, segs []elfSegment) {
	header := make([]byte, 64)

	copy(header[0:4], []byte{0x7f, 'E', 'L', 'F'})
	header[4] = 2 // ELFCLASS64
	header[5] = 1 // ELFDATA2LSB
	header[6] = 1 // version
	binary.LittleEndian.PutUint16(header[16:18], 2) // ET_EXEC
	binary.LittleEndian.PutUint16(header[18:20], machine)
	binary.LittleEndian.PutUint32(header[20:24], 1)
	binary.LittleEndian.PutUint64(header[24:32], entry)
	binary.LittleEndian.PutUint64(header[32:40], 64) // phoff
	binary.LittleEndian.PutUint16(header[52:54], 64) // ehsize
	binary.LittleEndian.PutUint16(header[54:56], 56) // phentsize
	binary.LittleEndian.PutUint16(header[56:58], uint16(len(segs)))

	dataOff := uint64(64 + 56*len(segs))
	var phdrs, payload []byte
	for _, seg := range segs {
		phdr := make([]byte, 56)
		binary.LittleEndian.PutUint32(phdr[0:4], seg.ptype)
		binary.LittleEndian.PutUint32(phdr[4:8], seg.flags)
		binary.LittleEndian.PutUint64(phdr[8:16], dataOff+uint64(len(payload)))
		binary.LittleEndian.PutUint64(phdr[16:24], seg.vaddr)
		binary.LittleEndian.PutUint64(phdr[24:32], seg.vaddr)
		binary.LittleEndian.PutUint64(phdr[32:40], uint64(len(seg.data)))
		binary.LittleEndian.PutUint64(phdr[40:48], seg.memsz)
		binary.LittleEndian.PutUint64(phdr[48:56], 0x1000)
		phdrs = append(phdrs, phdr...)
		payload = append(payload, seg.data...)
	}

	file, err := os.Create(path)
	Expect(err).To(BeNil())
	defer func() { _ = file.Close() }()

	_, _ = file.Write(header)
	_, _ = file.Write(phdrs)
	_, _ = file.Write(payload)
}

// codeWords encodes a two-instruction program image.
func codeWords() []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4],
		insts.EncodeALUImm(insts.OpADDI, 1, 0, 42))
	binary.LittleEndian.PutUint32(buf[4:8], insts.EncodeHALT())
	return buf
}

var _ = Describe("ELF Loader", func() {
	var tempDir string

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	Describe("Load", func() {
		Context("with a valid image", func() {
			var elfPath string

			BeforeEach(func() {
				elfPath = filepath.Join(tempDir, "test.elf")
				writeELF(elfPath, 0, 0x400000, []elfSegment{
					{ptype: 1, flags: 0x5, vaddr: 0x400000,
						data: codeWords(), memsz: 8},
				})
			})

			It("should load without error", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog).NotTo(BeNil())
			})

			It("should extract the entry point", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.EntryPoint).To(Equal(uint64(0x400000)))
			})

			It("should extract the segment contents", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(HaveLen(1))
				Expect(prog.Segments[0].Data).To(Equal(codeWords()))
				Expect(prog.Segments[0].Flags & loader.SegmentFlagExecute).
					NotTo(BeZero())
			})
		})

		Context("with an invalid file", func() {
			It("should return error for a non-existent file", func() {
				_, err := loader.Load("/nonexistent/path/to/file.elf")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to open"))
			})

			It("should return error for a non-ELF file", func() {
				path := filepath.Join(tempDir, "not-elf.bin")
				Expect(os.WriteFile(path, []byte("not an elf file"), 0644)).
					To(Succeed())

				_, err := loader.Load(path)
				Expect(err).To(HaveOccurred())
			})

			It("should return error for an unsupported machine type", func() {
				path := filepath.Join(tempDir, "x86.elf")
				writeELF(path, 62, 0x400000, nil) // EM_X86_64

				_, err := loader.Load(path)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("machine"))
			})
		})

		Context("with multiple segments", func() {
			It("should load code and data segments", func() {
				path := filepath.Join(tempDir, "multi.elf")
				data := []byte{0x01, 0x02, 0x03, 0x04}
				writeELF(path, 0, 0x400000, []elfSegment{
					{ptype: 1, flags: 0x5, vaddr: 0x400000,
						data: codeWords(), memsz: 8},
					{ptype: 1, flags: 0x6, vaddr: 0x600000,
						data: data, memsz: 4},
				})

				prog, err := loader.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(HaveLen(2))
				Expect(prog.Segments[1].Data).To(Equal(data))
				Expect(prog.Segments[1].Flags & loader.SegmentFlagWrite).
					NotTo(BeZero())
			})
		})

		Context("with a BSS tail", func() {
			It("should report Memsz larger than the file data", func() {
				path := filepath.Join(tempDir, "bss.elf")
				writeELF(path, 0, 0x400000, []elfSegment{
					{ptype: 1, flags: 0x6, vaddr: 0x600000,
						data: []byte{0xAA, 0xBB}, memsz: 1024},
				})

				prog, err := loader.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments[0].Data).To(HaveLen(2))
				Expect(prog.Segments[0].MemSize).To(Equal(uint64(1024)))
			})
		})

		Context("with no loadable segments", func() {
			It("should return an empty segment list", func() {
				path := filepath.Join(tempDir, "no-load.elf")
				writeELF(path, 0, 0x400000, []elfSegment{
					{ptype: 4, flags: 0x4, vaddr: 0}, // PT_NOTE
				})

				prog, err := loader.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(BeEmpty())
			})
		})
	})

	Describe("LoadRaw", func() {
		It("should wrap a flat image in a single RWX segment", func() {
			path := filepath.Join(tempDir, "flat.bin")
			Expect(os.WriteFile(path, codeWords(), 0644)).To(Succeed())

			prog, err := loader.LoadRaw(path, 0x1000)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.EntryPoint).To(Equal(uint64(0x1000)))
			Expect(prog.Segments).To(HaveLen(1))
			Expect(prog.Segments[0].VirtAddr).To(Equal(uint64(0x1000)))
			Expect(prog.Segments[0].Data).To(Equal(codeWords()))
		})

		It("should reject an empty image", func() {
			path := filepath.Join(tempDir, "empty.bin")
			Expect(os.WriteFile(path, nil, 0644)).To(Succeed())

			_, err := loader.LoadRaw(path, 0)
			Expect(err).To(HaveOccurred())
		})

		It("should reject an image that is not word-aligned", func() {
			path := filepath.Join(tempDir, "ragged.bin")
			Expect(os.WriteFile(path, []byte{1, 2, 3}, 0644)).To(Succeed())

			_, err := loader.LoadRaw(path, 0)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("word-aligned"))
		})
	})

	Describe("LoadInto", func() {
		It("should copy segments into memory and zero-fill BSS", func() {
			memory := mem.NewMemory()
			memory.Write8(0x2002, 0xFF) // stale byte inside the BSS tail

			prog := &loader.Program{
				EntryPoint: 0x2000,
				Segments: []loader.Segment{
					{VirtAddr: 0x2000, Data: []byte{0x11, 0x22}, MemSize: 8},
				},
			}
			prog.LoadInto(memory)

			Expect(memory.Read8(0x2000)).To(Equal(uint8(0x11)))
			Expect(memory.Read8(0x2001)).To(Equal(uint8(0x22)))
			Expect(memory.Read8(0x2002)).To(Equal(uint8(0)))
		})
	})
})
