package vm

import (
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Reference counting
// ---------------------------------------------------------------------------

// RCount is the reference count embedded in every shared cell. The count
// tracks holder references (stack slots, package members, container
// elements are internal edges and not counted here); marked is collector
// working state and meaningless between collections.
type RCount struct {
	count  int32
	marked bool
}

// Inc adds one holder reference.
func (rc *RCount) Inc() {
	rc.count++
}

// Dec drops one holder reference.
func (rc *RCount) Dec() {
	rc.count--
}

// Count returns the current holder reference count.
func (rc *RCount) Count() int32 {
	return rc.count
}

// gcCell is the protocol every shared cell implements for the collector.
type gcCell interface {
	rc() *RCount
	// children visits every value the cell holds a strong edge to.
	children(visit func(Value))
	// breakCycle drops the cell's outgoing edges so an unreachable cycle
	// can be reclaimed by the host collector.
	breakCycle()
}

// cellsOf emits the shared cells a value holds edges to, drilling through
// named boxes, interface boxes and pointers.
func cellsOf(v Value, emit func(gcCell)) {
	switch v.Type() {
	case TypeStruct:
		if rc := v.Struct(); rc != nil {
			emit(rc)
		}
	case TypeArray:
		if rc := v.Array(); rc != nil {
			emit(rc)
		}
	case TypeSlice:
		if rc := v.Slice(); rc != nil {
			emit(rc)
		}
	case TypeMap:
		if rc := v.Map(); rc != nil {
			emit(rc)
		}
	case TypeClosure:
		if rc := v.Closure(); rc != nil {
			emit(rc)
		}
	case TypeNamed:
		cellsOf(v.Named().V, emit)
	case TypeInterface:
		o := v.Iface()
		if o.ffi == nil {
			cellsOf(o.V, emit)
		}
	case TypePointer:
		p := v.Pointer()
		if p == nil {
			return
		}
		switch p.Kind {
		case PtrStruct, PtrStructField:
			emit(p.Struct)
		case PtrArray:
			emit(p.Array)
		case PtrSlice, PtrSliceMember:
			emit(p.Slice)
		case PtrMap:
			emit(p.Map)
		case PtrUserData:
			if p.userCell != nil {
				emit(p.userCell)
			}
		}
	}
}

// AddRef records a new holder reference to v's cell (stack slot, package
// member, host handle). Container-internal edges are discovered by the
// collector and must not be counted.
func (v Value) AddRef() {
	cellsOf(v, func(c gcCell) { c.rc().Inc() })
}

// RefSubOne drops one holder reference to v's cell. A pointer to a host
// object additionally notifies the host.
func (v Value) RefSubOne() {
	cellsOf(v, func(c gcCell) { c.rc().Dec() })
	if v.Type() == TypePointer {
		if p := v.Pointer(); p != nil && p.Kind == PtrUserData {
			p.User.RefSubOne()
		}
	}
}

// ---------------------------------------------------------------------------
// Registry and collection
// ---------------------------------------------------------------------------

// GcStats holds statistics from a single collection.
type GcStats struct {
	Tracked  int // cells alive in the registry when the pass started
	Dropped  int // registry entries whose cell the host collector already freed
	Broken   int // cycle members reclaimed by this pass
	Duration time.Duration
	When     time.Time
}

// gcRef is a type-erased weak registry entry.
type gcRef struct {
	load func() gcCell
}

// GcObjs tracks every shared cell so reference cycles can be found and
// broken. Entries are weak: a cell freed by the host collector just
// disappears from the registry. Plain reference counting reclaims acyclic
// garbage on its own; Collect exists for the cycles it cannot see.
type GcObjs struct {
	mu    sync.Mutex
	objs  []gcRef
	dirty []gcCell
	log   commonlog.Logger

	collectCount atomic.Uint64
	lastStats    atomic.Value // *GcStats

	interval time.Duration
	ticker   *time.Ticker
	stop     chan struct{}
	stopped  chan struct{}
}

// DefaultGCInterval is the default background collection interval.
const DefaultGCInterval = 30 * time.Second

// NewGcObjs creates an empty registry with the default interval.
func NewGcObjs() *GcObjs {
	return NewGcObjsWith(DefaultGCInterval)
}

// NewGcObjsWith creates an empty registry that, once started, collects
// every interval.
func NewGcObjsWith(interval time.Duration) *GcObjs {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	return &GcObjs{
		log:      commonlog.GetLogger("oriole.gc"),
		interval: interval,
	}
}

// gcTrack registers a cell. The registry holds it weakly.
func gcTrack[T any, PT interface {
	*T
	gcCell
}](g *GcObjs, p PT) {
	wp := weak.Make((*T)(p))
	g.mu.Lock()
	g.objs = append(g.objs, gcRef{load: func() gcCell {
		if v := wp.Value(); v != nil {
			return PT(v)
		}
		return nil
	}})
	g.mu.Unlock()
}

// MarkDirty records v's cells as roots for the next collection. Holder
// counts cannot see every live reference (frame slots in flight, values
// handed to a host call); the dispatch loop marks those dirty at
// collection-trigger points so the pass does not break them.
func (g *GcObjs) MarkDirty(v Value) {
	cellsOf(v, func(c gcCell) {
		g.mu.Lock()
		g.dirty = append(g.dirty, c)
		g.mu.Unlock()
	})
}

// Len returns the number of registry entries, dead ones included.
func (g *GcObjs) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.objs)
}

// CollectCount returns the number of collections performed.
func (g *GcObjs) CollectCount() uint64 {
	return g.collectCount.Load()
}

// LastStats returns statistics from the most recent collection, or nil.
func (g *GcObjs) LastStats() *GcStats {
	v := g.lastStats.Load()
	if v == nil {
		return nil
	}
	return v.(*GcStats)
}

// Collect runs one mark pass and returns the number of cycle members
// broken.
//
// Counts on live cells reflect holder references only (container-internal
// edges are never counted), so any cell with a positive count is externally
// reachable; cells marked dirty since the last pass count as roots too.
// Reachability propagates from those roots through container edges;
// unmarked cells form unreachable cycles and get their edges broken.
func (g *GcObjs) Collect() int {
	start := time.Now()

	g.mu.Lock()
	live := make([]gcCell, 0, len(g.objs))
	kept := g.objs[:0]
	dropped := 0
	for _, ref := range g.objs {
		if c := ref.load(); c != nil {
			live = append(live, c)
			kept = append(kept, ref)
		} else {
			dropped++
		}
	}
	g.objs = kept
	dirty := g.dirty
	g.dirty = nil
	g.mu.Unlock()

	// visited records every cell this pass marks, registered or not, so
	// marks never leak into the next pass.
	visited := make([]gcCell, 0, len(live))
	queue := make([]gcCell, 0, len(live))
	mark := func(c gcCell) {
		if !c.rc().marked {
			c.rc().marked = true
			visited = append(visited, c)
			queue = append(queue, c)
		}
	}
	for _, c := range dirty {
		mark(c)
	}
	for _, c := range live {
		if c.rc().count > 0 {
			mark(c)
		}
	}
	for len(queue) > 0 {
		c := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		c.children(func(v Value) {
			cellsOf(v, mark)
		})
	}

	broken := 0
	for _, c := range live {
		if !c.rc().marked {
			c.breakCycle()
			broken++
		}
	}
	for _, c := range visited {
		c.rc().marked = false
	}

	stats := &GcStats{
		Tracked:  len(live),
		Dropped:  dropped,
		Broken:   broken,
		Duration: time.Since(start),
		When:     start,
	}
	g.collectCount.Add(1)
	g.lastStats.Store(stats)
	if broken > 0 {
		g.log.Infof("broke %d cycle members (%d tracked, %s)", broken, len(live), stats.Duration)
	} else {
		g.log.Debugf("collection pass: %d tracked, %d dropped, %s", len(live), dropped, stats.Duration)
	}
	return broken
}

// Start begins periodic background collection. Safe to call repeatedly;
// only one loop runs.
func (g *GcObjs) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stop != nil {
		return
	}
	g.stop = make(chan struct{})
	g.stopped = make(chan struct{})
	go g.loop(g.stop, g.stopped)
}

// Stop halts background collection and waits for the loop to exit. Safe to
// call repeatedly or without Start.
func (g *GcObjs) Stop() {
	g.mu.Lock()
	stopCh := g.stop
	stoppedCh := g.stopped
	g.stop = nil
	g.stopped = nil
	g.mu.Unlock()
	if stopCh != nil {
		close(stopCh)
		<-stoppedCh
	}
}

func (g *GcObjs) loop(stopCh <-chan struct{}, stoppedCh chan struct{}) {
	defer close(stoppedCh)
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			g.Collect()
		}
	}
}
