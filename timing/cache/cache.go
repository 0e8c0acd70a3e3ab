// Package cache models L1 cache occupancy on the Akita cache directory. Only
// tags, LRU order and dirty bits are tracked; line contents stay in the
// emulator's memory, so the model never alters program state.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `json:"size" yaml:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity" yaml:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size" yaml:"block_size"`
	// HitLatency in cycles
	HitLatency uint64 `json:"hit_latency" yaml:"hit_latency"`
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64 `json:"miss_latency" yaml:"miss_latency"`
}

// DefaultL1IConfig returns the default instruction cache: 16KB, 4-way,
// 64B lines.
func DefaultL1IConfig() Config {
	return Config{
		Size:          16 * 1024,
		Associativity: 4,
		BlockSize:     64,
		HitLatency:    1,
		MissLatency:   50,
	}
}

// DefaultL1DConfig returns the default data cache: 16KB, 4-way, 64B lines.
func DefaultL1DConfig() Config {
	return Config{
		Size:          16 * 1024,
		Associativity: 4,
		BlockSize:     64,
		HitLatency:    1,
		MissLatency:   50,
	}
}

// NumSets returns the number of sets the configuration describes.
func (c Config) NumSets() int {
	if c.Associativity <= 0 || c.BlockSize <= 0 {
		return 0
	}
	return c.Size / (c.Associativity * c.BlockSize)
}

// Validate checks that the geometry is consistent.
func (c Config) Validate() error {
	if c.Size <= 0 || c.Associativity <= 0 || c.BlockSize <= 0 {
		return fmt.Errorf("cache size, associativity and block_size must be > 0")
	}
	if c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("block_size %d is not a power of two", c.BlockSize)
	}
	if c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("size %d is not a multiple of associativity*block_size", c.Size)
	}
	if c.HitLatency == 0 {
		return fmt.Errorf("hit_latency must be > 0")
	}
	return nil
}

// AccessResult describes one access, which may span two lines.
type AccessResult struct {
	// Hit is true when every line touched was resident.
	Hit bool
	// Lines is the number of lines the access touched.
	Lines int
	// Misses is the number of touched lines that were not resident.
	Misses int
	// Latency is the sum of the per-line latencies.
	Latency uint64
	// Stall is the part of Latency beyond a hit on every line.
	Stall uint64
	// Evicted is true if a valid line was replaced.
	Evicted bool
	// EvictedAddr is the block address of the last replaced line.
	EvictedAddr uint64
}

// Statistics holds cache performance statistics. Hits and Misses count
// lines, Reads and Writes count accesses.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// Cache is a set-associative, write-allocate tag model.
type Cache struct {
	config    Config
	directory *akitacache.DirectoryImpl
	stats     Statistics
}

// New creates a new cache with the given configuration. The configuration
// must pass Validate.
func New(config Config) *Cache {
	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			config.NumSets(),
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// Contains reports whether the line holding addr is resident.
func (c *Cache) Contains(addr uint64) bool {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	return block != nil && block.IsValid
}

// Dirty reports whether the line holding addr is resident and written.
func (c *Cache) Dirty(addr uint64) bool {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	return block != nil && block.IsValid && block.IsDirty
}

func (c *Cache) blockAddr(addr uint64) uint64 {
	return addr &^ uint64(c.config.BlockSize-1)
}

// Read records a load of size bytes at addr.
func (c *Cache) Read(addr uint64, size int) AccessResult {
	c.stats.Reads++
	return c.access(addr, size, false)
}

// Write records a store of size bytes at addr. A missing line is allocated
// and marked dirty.
func (c *Cache) Write(addr uint64, size int) AccessResult {
	c.stats.Writes++
	return c.access(addr, size, true)
}

func (c *Cache) access(addr uint64, size int, write bool) AccessResult {
	if size < 1 {
		size = 1
	}

	result := AccessResult{Hit: true}
	first := c.blockAddr(addr)
	last := c.blockAddr(addr + uint64(size) - 1)
	for line := first; ; line += uint64(c.config.BlockSize) {
		c.touch(line, write, &result)
		if line == last {
			break
		}
	}
	return result
}

func (c *Cache) touch(line uint64, write bool, result *AccessResult) {
	result.Lines++

	block := c.directory.Lookup(0, line)
	if block != nil && block.IsValid {
		c.stats.Hits++
		result.Latency += c.config.HitLatency
	} else {
		c.stats.Misses++
		result.Hit = false
		result.Misses++
		result.Latency += c.config.MissLatency
		result.Stall += c.config.MissLatency - c.config.HitLatency

		block = c.allocate(line, result)
		if block == nil {
			return
		}
	}

	if write {
		block.IsDirty = true
	}
	c.directory.Visit(block)
}

func (c *Cache) allocate(line uint64, result *AccessResult) *akitacache.Block {
	victim := c.directory.FindVictim(line)
	if victim == nil {
		return nil
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = victim.Tag
		if victim.IsDirty {
			c.stats.Writebacks++
		}
	}

	victim.Tag = line
	victim.IsValid = true
	victim.IsDirty = false
	return victim
}

// Invalidate drops the line holding addr without counting a writeback.
func (c *Cache) Invalidate(addr uint64) {
	block := c.directory.Lookup(0, c.blockAddr(addr))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush invalidates every line, counting a writeback for each dirty one.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all lines and clears statistics.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
