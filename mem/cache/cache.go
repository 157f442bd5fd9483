// Package cache provides a write-back cache bus endpoint built on Akita
// cache components. Cores connect their memory ports to a Cache to obtain
// realistic hit/miss latencies for stall simulation.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache geometry and latency parameters.
type Config struct {
	// Size in bytes.
	Size int
	// Associativity is the number of ways.
	Associativity int
	// BlockSize in bytes (cache line size).
	BlockSize int
	// HitLatency in cycles.
	HitLatency uint64
	// MissLatency in cycles, including the fill from the backing store.
	MissLatency uint64
}

// DefaultInstConfig returns the default instruction-side cache geometry:
// 32KB, 4-way, 64B lines.
func DefaultInstConfig() Config {
	return Config{
		Size:          32 * 1024,
		Associativity: 4,
		BlockSize:     64,
		HitLatency:    1,
		MissLatency:   20,
	}
}

// DefaultDataConfig returns the default data-side cache geometry:
// 32KB, 8-way, 64B lines.
func DefaultDataConfig() Config {
	return Config{
		Size:          32 * 1024,
		Associativity: 8,
		BlockSize:     64,
		HitLatency:    2,
		MissLatency:   20,
	}
}

// BackingStore is the next level of the memory hierarchy. *mem.Memory
// satisfies it directly.
type BackingStore interface {
	ReadBytes(addr uint64, size int) []byte
	WriteBytes(addr uint64, data []byte)
}

// Statistics holds cache access counters.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// Cache is a write-back, write-allocate cache that implements mem.Endpoint.
// Tag and replacement state live in an Akita cache directory; line data is
// stored alongside, indexed by (set, way).
type Cache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	lines     [][]byte
	backing   BackingStore
	stats     Statistics
}

// New creates a cache with the given geometry over a backing store.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)

	lines := make([][]byte, numSets*config.Associativity)
	for i := range lines {
		lines[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		lines:   lines,
		backing: backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns the access counters.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// Access implements mem.Endpoint. The returned latency is HitLatency on a
// hit and MissLatency on a miss (fill included).
func (c *Cache) Access(
	addr uint64,
	size int,
	isWrite bool,
	data uint64,
) (uint64, uint64, error) {
	if isWrite {
		c.stats.Writes++
	} else {
		c.stats.Reads++
	}

	blockAddr := c.blockAlign(addr)
	block := c.directory.Lookup(0, blockAddr)

	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		line := c.lines[c.lineIndex(block)]
		offset := addr - blockAddr
		if isWrite {
			storeValue(line, offset, size, data)
			block.IsDirty = true
			return 0, c.config.HitLatency, nil
		}
		return loadValue(line, offset, size), c.config.HitLatency, nil
	}

	c.stats.Misses++
	value := c.fill(addr, size, isWrite, data)
	return value, c.config.MissLatency, nil
}

// fill handles a miss: evict a victim (writing it back if dirty), fetch the
// line from the backing store, then apply the access.
func (c *Cache) fill(addr uint64, size int, isWrite bool, data uint64) uint64 {
	blockAddr := c.blockAlign(addr)

	victim := c.directory.FindVictim(blockAddr)
	line := c.lines[c.lineIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		if victim.IsDirty {
			c.stats.Writebacks++
			c.backing.WriteBytes(victim.Tag, line)
		}
	}

	copy(line, c.backing.ReadBytes(blockAddr, c.config.BlockSize))

	victim.Tag = blockAddr // tag holds the block-aligned address
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)

	offset := addr - blockAddr
	if isWrite {
		storeValue(line, offset, size, data)
		victim.IsDirty = true
		return 0
	}
	return loadValue(line, offset, size)
}

// Flush writes back all dirty lines and invalidates the cache.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.stats.Writebacks++
				c.backing.WriteBytes(block.Tag, c.lines[c.lineIndex(block)])
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Invalidate drops the line containing addr without writeback.
func (c *Cache) Invalidate(addr uint64) {
	block := c.directory.Lookup(0, c.blockAlign(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Reset invalidates all lines and clears the counters.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

func (c *Cache) blockAlign(addr uint64) uint64 {
	return addr / uint64(c.config.BlockSize) * uint64(c.config.BlockSize)
}

func (c *Cache) lineIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

// loadValue extracts a little-endian value from a cache line.
func loadValue(line []byte, offset uint64, size int) uint64 {
	var value uint64
	for i := 0; i < size; i++ {
		value |= uint64(line[int(offset)+i]) << (i * 8)
	}
	return value
}

// storeValue writes a little-endian value into a cache line.
func storeValue(line []byte, offset uint64, size int, value uint64) {
	for i := 0; i < size; i++ {
		line[int(offset)+i] = byte(value >> (i * 8))
	}
}
