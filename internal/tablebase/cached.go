package tablebase

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/hailam/tbprobe/internal/storage"
)

// ProbeStore is a persistent second-level cache keyed by position FEN.
type ProbeStore interface {
	Get(key string) (*storage.Entry, error)
	Put(key string, entry *storage.Entry) error
}

type cachedProbe struct {
	result Result
	moves  []Result
}

// CachedOracle wraps another oracle with a bounded in-memory cache and an
// optional persistent store. Only resolved probes are cached.
type CachedOracle struct {
	inner   Oracle
	store   ProbeStore
	log     zerolog.Logger
	maxSize int

	mu    sync.RWMutex
	cache map[Request]cachedProbe

	hits   atomic.Uint64
	misses atomic.Uint64
}

// MinCacheSize is the smallest in-memory cache NewCachedOracle will build;
// eviction drops half the entries, which needs at least two.
const MinCacheSize = 2

// NewCachedOracle creates a cached oracle. store may be nil. Sizes below
// MinCacheSize are raised to it.
func NewCachedOracle(inner Oracle, cacheSize int, store ProbeStore, log zerolog.Logger) *CachedOracle {
	if cacheSize < MinCacheSize {
		cacheSize = MinCacheSize
	}
	return &CachedOracle{
		inner:   inner,
		store:   store,
		log:     log.With().Str("component", "tb-cache").Logger(),
		maxSize: cacheSize,
		cache:   make(map[Request]cachedProbe, cacheSize),
	}
}

func (co *CachedOracle) Init(path string) bool {
	return co.inner.Init(path)
}

func (co *CachedOracle) Largest() int {
	return co.inner.Largest()
}

// ProbeRoot answers from the in-memory cache, then the store, then the inner
// oracle. Requests the inner oracle must refuse are refused before any
// lookup: the store is keyed by FEN, which carries no castling rights.
func (co *CachedOracle) ProbeRoot(req Request) (Result, []Result) {
	if req.Castling || req.PieceCount() > co.inner.Largest() {
		return ResultFailed, nil
	}

	co.mu.RLock()
	cp, ok := co.cache[req]
	co.mu.RUnlock()
	if ok {
		co.hits.Add(1)
		return cp.result, cp.moves
	}

	if cp, ok := co.load(req); ok {
		co.hits.Add(1)
		co.remember(req, cp)
		return cp.result, cp.moves
	}

	co.misses.Add(1)
	result, moves := co.inner.ProbeRoot(req)
	if result.Failed() {
		return result, moves
	}

	cp = cachedProbe{result: result, moves: moves}
	co.remember(req, cp)
	co.save(req, cp)
	return result, moves
}

func (co *CachedOracle) remember(req Request, cp cachedProbe) {
	co.mu.Lock()
	defer co.mu.Unlock()

	if len(co.cache) >= co.maxSize {
		// Simple eviction: drop half the entries.
		i := 0
		for k := range co.cache {
			if i >= co.maxSize/2 {
				break
			}
			delete(co.cache, k)
			i++
		}
	}
	co.cache[req] = cp
}

func (co *CachedOracle) load(req Request) (cachedProbe, bool) {
	if co.store == nil {
		return cachedProbe{}, false
	}
	entry, err := co.store.Get(req.FEN())
	if err != nil {
		co.log.Warn().Err(err).Msg("probe cache read failed")
		return cachedProbe{}, false
	}
	if entry == nil {
		return cachedProbe{}, false
	}

	cp := cachedProbe{result: Result(entry.Result), moves: make([]Result, len(entry.Moves))}
	for i, m := range entry.Moves {
		cp.moves[i] = Result(m)
	}
	return cp, true
}

func (co *CachedOracle) save(req Request, cp cachedProbe) {
	if co.store == nil {
		return
	}
	entry := &storage.Entry{Result: uint32(cp.result), Moves: make([]uint32, len(cp.moves))}
	for i, m := range cp.moves {
		entry.Moves[i] = uint32(m)
	}
	if err := co.store.Put(req.FEN(), entry); err != nil {
		co.log.Warn().Err(err).Msg("probe cache write failed")
	}
}

// HitRate returns the cache hit rate as a percentage.
func (co *CachedOracle) HitRate() float64 {
	hits, misses := co.hits.Load(), co.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses) * 100
}

// CacheSize returns the number of entries held in memory.
func (co *CachedOracle) CacheSize() int {
	co.mu.RLock()
	defer co.mu.RUnlock()
	return len(co.cache)
}

// Clear empties the in-memory cache and resets the statistics.
func (co *CachedOracle) Clear() {
	co.mu.Lock()
	defer co.mu.Unlock()
	co.cache = make(map[Request]cachedProbe, co.maxSize)
	co.hits.Store(0)
	co.misses.Store(0)
}
