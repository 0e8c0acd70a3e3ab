// Package core provides a timing model layered on the functional emulator.
// It charges every retired instruction its class latency, branch redirect
// penalties and L1 cache miss stalls.
package core

import (
	"fmt"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/latency"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Stalls is the number of cycles lost to cache misses and device accesses.
	Stalls uint64
	// Flushes is the number of control-flow redirects that paid a penalty.
	Flushes uint64

	ICacheHits   uint64
	ICacheMisses uint64
	DCacheHits   uint64
	DCacheMisses uint64
}

// CPI returns cycles per retired instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Core represents a timing CPU core model.
type Core struct {
	emulator *emu.Emulator
	latency  *latency.Table

	icacheConfig *cache.Config
	dcacheConfig *cache.Config
	icache       *cache.Cache
	dcache       *cache.Cache

	stats Stats
}

// Option is a functional option for configuring the Core.
type Option func(*Core)

// WithLatencyTable replaces the default latency table.
func WithLatencyTable(table *latency.Table) Option {
	return func(c *Core) {
		c.latency = table
	}
}

// WithICache enables an instruction cache with the given configuration.
func WithICache(config cache.Config) Option {
	return func(c *Core) {
		c.icacheConfig = &config
	}
}

// WithDCache enables a data cache with the given configuration.
func WithDCache(config cache.Config) Option {
	return func(c *Core) {
		c.dcacheConfig = &config
	}
}

// NewCore attaches a timing model to emulator. Instructions retired by the
// emulator are accounted whether they are stepped through the Core or
// through the emulator directly. The model only observes: architectural
// state is the same with or without it.
func NewCore(emulator *emu.Emulator, opts ...Option) (*Core, error) {
	c := &Core{
		emulator: emulator,
		latency:  latency.NewTable(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.icacheConfig != nil {
		if err := c.icacheConfig.Validate(); err != nil {
			return nil, fmt.Errorf("invalid L1I config: %w", err)
		}
		c.icache = cache.New(*c.icacheConfig)
	}
	if c.dcacheConfig != nil {
		if err := c.dcacheConfig.Validate(); err != nil {
			return nil, fmt.Errorf("invalid L1D config: %w", err)
		}
		c.dcache = cache.New(*c.dcacheConfig)
	}

	emulator.OnRetire(c.account)

	return c, nil
}

// Emulator returns the functional emulator the core is attached to.
func (c *Core) Emulator() *emu.Emulator {
	return c.emulator
}

// ICache returns the instruction cache, or nil when disabled.
func (c *Core) ICache() *cache.Cache {
	return c.icache
}

// DCache returns the data cache, or nil when disabled.
func (c *Core) DCache() *cache.Cache {
	return c.dcache
}

// Halted returns true if the emulator has stopped.
func (c *Core) Halted() bool {
	return c.emulator.Halted()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	return c.stats
}

// Step executes one instruction.
func (c *Core) Step() emu.StepResult {
	return c.emulator.Step()
}

// Run executes until the emulator halts.
func (c *Core) Run() emu.StepResult {
	return c.emulator.Run()
}

// Reset clears the statistics and invalidates the caches. The emulator
// itself is not reset.
func (c *Core) Reset() {
	c.stats = Stats{}
	if c.icache != nil {
		c.icache.Reset()
	}
	if c.dcache != nil {
		c.dcache.Reset()
	}
}

func (c *Core) account(res emu.StepResult) {
	inst := res.Inst
	if inst == nil {
		return
	}

	c.stats.Instructions++
	cycles := c.latency.GetLatency(inst)

	taken := res.NextPC != res.PC+4
	if penalty := c.latency.BranchPenalty(inst, taken); penalty > 0 {
		cycles += penalty
		c.stats.Flushes++
	}

	stall := c.fetch(res.PC)
	if res.Access.Valid {
		stall += c.dataAccess(res.Access)
	}

	if inst.Op == insts.OpFENCEI && c.icache != nil {
		c.icache.Flush()
	}

	c.stats.Stalls += stall
	c.stats.Cycles += cycles + stall
}

func (c *Core) fetch(pc uint64) uint64 {
	if c.icache == nil {
		return 0
	}

	res := c.icache.Read(pc, 4)
	c.stats.ICacheHits += uint64(res.Lines - res.Misses)
	c.stats.ICacheMisses += uint64(res.Misses)
	return res.Stall
}

// dataAccess charges a load or store. The caches only track tags, so
// memory contents are never touched here.
func (c *Core) dataAccess(access emu.MemAccess) uint64 {
	size := access.Width.Bytes()
	if !c.emulator.Memory().Contains(access.Addr, size) {
		return c.latency.Config().MemoryLatency
	}
	if c.dcache == nil {
		return 0
	}

	var res cache.AccessResult
	if access.Write {
		res = c.dcache.Write(access.Addr, int(size))
	} else {
		res = c.dcache.Read(access.Addr, int(size))
	}

	c.stats.DCacheHits += uint64(res.Lines - res.Misses)
	c.stats.DCacheMisses += uint64(res.Misses)
	return res.Stall
}
