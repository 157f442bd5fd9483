// Package simpoint generates SimPoint basic-block vectors (BBVs) from an
// instruction stream. The output is the gzip'd text format consumed by the
// SimPoint analysis tool: one line per interval, holding (block id, count)
// pairs for every basic block touched since the previous emission.
//
// The profiler is purely observational; it never affects execution. Cores
// run with no profiler attached pay nothing.
package simpoint

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
)

// Profiler samples retired-instruction PCs and emits one BBV record every
// interval instructions.
type Profiler struct {
	interval uint64

	file io.Closer // underlying file, nil when writer-backed
	gz   *gzip.Writer

	// Basic-block identity: start PC -> 1-based block ID, assigned on first
	// sight (SimPoint convention).
	blockIDs map[uint64]uint64
	nextID   uint64

	// Current basic block. A block ends when the observed PC is not the
	// sequential successor of the previous one.
	blockStart uint64
	blockInsts uint64
	blockOpen  bool
	expectedPC uint64

	// Histogram for the current interval: block ID -> instruction count.
	counts        map[uint64]uint64
	intervalInsts uint64

	records uint64
	closed  bool
	err     error
}

// New creates a profiler writing gzip'd BBV records to the file at path.
func New(path string, interval uint64) (*Profiler, error) {
	if interval == 0 {
		return nil, fmt.Errorf("simpoint interval must be > 0")
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create BBV file: %w", err)
	}

	p := newProfiler(f, interval)
	p.file = f
	return p, nil
}

// NewWithWriter creates a profiler writing gzip'd BBV records to w. The
// caller owns w; Close only flushes the gzip stream.
func NewWithWriter(w io.Writer, interval uint64) *Profiler {
	return newProfiler(w, interval)
}

func newProfiler(w io.Writer, interval uint64) *Profiler {
	return &Profiler{
		interval: interval,
		gz:       gzip.NewWriter(w),
		blockIDs: make(map[uint64]uint64),
		counts:   make(map[uint64]uint64),
	}
}

// Observe records one retired instruction at pc. Every interval
// instructions it emits a BBV record and resets the histogram.
func (p *Profiler) Observe(pc uint64) {
	if !p.blockOpen || pc != p.expectedPC {
		p.finishBlock()
		p.blockStart = pc
		p.blockOpen = true
	}

	p.blockInsts++
	p.intervalInsts++
	p.expectedPC = pc + 4

	if p.intervalInsts >= p.interval {
		p.finishBlock()
		p.emit()
	}
}

// Records returns the number of BBV records emitted so far.
func (p *Profiler) Records() uint64 {
	return p.records
}

// Close flushes the gzip stream and closes the output file. A partial
// interval in progress is discarded, matching the SimPoint convention of
// analyzing whole intervals only. Closing twice is a no-op.
func (p *Profiler) Close() error {
	if p.closed {
		return p.err
	}
	p.closed = true

	if err := p.gz.Close(); err != nil && p.err == nil {
		p.err = err
	}
	if p.file != nil {
		if err := p.file.Close(); err != nil && p.err == nil {
			p.err = err
		}
	}
	return p.err
}

// finishBlock folds the open block's instruction count into the interval
// histogram.
func (p *Profiler) finishBlock() {
	if !p.blockOpen || p.blockInsts == 0 {
		return
	}

	id, ok := p.blockIDs[p.blockStart]
	if !ok {
		p.nextID++
		id = p.nextID
		p.blockIDs[p.blockStart] = id
	}
	p.counts[id] += p.blockInsts

	p.blockInsts = 0
	p.blockOpen = false
}

// emit writes one BBV record and resets the interval histogram.
func (p *Profiler) emit() {
	ids := make([]uint64, 0, len(p.counts))
	for id := range p.counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if _, err := p.gz.Write([]byte("T")); err != nil && p.err == nil {
		p.err = err
	}
	for _, id := range ids {
		if _, err := fmt.Fprintf(p.gz, ":%d:%d ", id, p.counts[id]); err != nil && p.err == nil {
			p.err = err
		}
	}
	if _, err := p.gz.Write([]byte("\n")); err != nil && p.err == nil {
		p.err = err
	}

	p.counts = make(map[uint64]uint64)
	p.intervalInsts = 0
	p.records++
}
