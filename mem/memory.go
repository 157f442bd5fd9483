// Package mem provides the functional memory model and the bus endpoint
// contract used by cgrasim core models.
package mem

// PageSize is the granularity of the sparse backing store.
const PageSize = 4096

// Memory is a sparse, page-backed functional memory. Pages are allocated on
// first touch; unwritten locations read as zero. All multi-byte accesses are
// little-endian.
type Memory struct {
	pages map[uint64][]byte
}

// NewMemory creates an empty functional memory.
func NewMemory() *Memory {
	return &Memory{
		pages: make(map[uint64][]byte),
	}
}

// page returns the page containing addr, allocating it if needed.
func (m *Memory) page(addr uint64, allocate bool) []byte {
	pageID := addr / PageSize
	p, ok := m.pages[pageID]
	if !ok && allocate {
		p = make([]byte, PageSize)
		m.pages[pageID] = p
	}
	return p
}

// Read8 reads one byte.
func (m *Memory) Read8(addr uint64) uint8 {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr%PageSize]
}

// Write8 writes one byte.
func (m *Memory) Write8(addr uint64, value uint8) {
	p := m.page(addr, true)
	p[addr%PageSize] = value
}

// Read16 reads a 16-bit little-endian value.
func (m *Memory) Read16(addr uint64) uint16 {
	return uint16(m.Read8(addr)) | uint16(m.Read8(addr+1))<<8
}

// Write16 writes a 16-bit little-endian value.
func (m *Memory) Write16(addr uint64, value uint16) {
	m.Write8(addr, uint8(value))
	m.Write8(addr+1, uint8(value>>8))
}

// Read32 reads a 32-bit little-endian value.
func (m *Memory) Read32(addr uint64) uint32 {
	return uint32(m.Read16(addr)) | uint32(m.Read16(addr+2))<<16
}

// Write32 writes a 32-bit little-endian value.
func (m *Memory) Write32(addr uint64, value uint32) {
	m.Write16(addr, uint16(value))
	m.Write16(addr+2, uint16(value>>16))
}

// Read64 reads a 64-bit little-endian value.
func (m *Memory) Read64(addr uint64) uint64 {
	return uint64(m.Read32(addr)) | uint64(m.Read32(addr+4))<<32
}

// Write64 writes a 64-bit little-endian value.
func (m *Memory) Write64(addr uint64, value uint64) {
	m.Write32(addr, uint32(value))
	m.Write32(addr+4, uint32(value>>32))
}

// ReadBytes copies size bytes starting at addr into a new slice.
func (m *Memory) ReadBytes(addr uint64, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = m.Read8(addr + uint64(i))
	}
	return data
}

// WriteBytes copies data into memory starting at addr.
func (m *Memory) WriteBytes(addr uint64, data []byte) {
	for i, b := range data {
		m.Write8(addr+uint64(i), b)
	}
}

// LoadSegment copies a program segment into memory and zero-fills the
// remainder up to memSize (BSS-style).
func (m *Memory) LoadSegment(addr uint64, data []byte, memSize uint64) {
	m.WriteBytes(addr, data)
	for i := uint64(len(data)); i < memSize; i++ {
		m.Write8(addr+i, 0)
	}
}

// ReadValue reads a value of the given size (1, 2, 4, or 8 bytes).
func (m *Memory) ReadValue(addr uint64, size int) uint64 {
	switch size {
	case 1:
		return uint64(m.Read8(addr))
	case 2:
		return uint64(m.Read16(addr))
	case 4:
		return uint64(m.Read32(addr))
	default:
		return m.Read64(addr)
	}
}

// WriteValue writes a value of the given size (1, 2, 4, or 8 bytes).
func (m *Memory) WriteValue(addr uint64, size int, value uint64) {
	switch size {
	case 1:
		m.Write8(addr, uint8(value))
	case 2:
		m.Write16(addr, uint16(value))
	case 4:
		m.Write32(addr, uint32(value))
	default:
		m.Write64(addr, value)
	}
}
