// Package opcache memoizes expensive type operations for a whole checking
// session. Entries are keyed by operation kind plus the structural
// fingerprints of the operands, shared by all file-checking workers, and
// never evicted. Concurrent misses for one key are collapsed so that every
// caller observes one consistent published value.
package opcache

import (
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/viant/gmetric"
	"github.com/viant/gmetric/counter"
	gprovider "github.com/viant/gmetric/provider"
	"golang.org/x/sync/singleflight"

	"github.com/ah-yu/stc/internal/types"
)

// OpKind identifies a memoizable operation.
type OpKind uint8

const (
	OpSubtype OpKind = iota
	OpAssignable
	OpInstantiate
)

func (k OpKind) String() string {
	switch k {
	case OpSubtype:
		return "subtype"
	case OpAssignable:
		return "assignable"
	case OpInstantiate:
		return "instantiate"
	default:
		return "unknown"
	}
}

// Key identifies one memoized computation.
type Key struct {
	Op OpKind
	A  uint64 // structural fingerprint of the first operand
	B  uint64 // structural fingerprint of the second operand
}

func (k Key) flightKey() string {
	return strconv.FormatUint(uint64(k.Op), 10) + ":" +
		strconv.FormatUint(k.A, 16) + ":" + strconv.FormatUint(k.B, 16)
}

// Result is the memoized outcome. Relation operations use Holds;
// instantiation stores the produced type.
type Result struct {
	Holds bool
	Type  *types.Type
}

const (
	metricHit       = "hit"
	metricMiss      = "miss"
	metricDivergent = "divergent"
)

type metricsLocation struct{}

func metricLocation() string {
	return reflect.TypeOf(metricsLocation{}).PkgPath()
}

// opCounter is the slice of the gmetric operation surface the cache needs.
type opCounter interface {
	Begin(started time.Time) counter.OnDone
	IncrementValue(value interface{}) int64
}

// Cache is the session-wide operation cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]Result

	flight singleflight.Group

	op          opCounter
	divergences int
}

// New creates a cache. metrics may be nil, in which case no counters are
// recorded.
func New(metrics *gmetric.Service) *Cache {
	c := &Cache{entries: make(map[Key]Result)}
	if metrics != nil {
		c.op = metrics.MultiOperationCounter(metricLocation(), "opcache",
			"type operation cache performance", time.Millisecond, time.Minute, 2, gprovider.NewBasic())
	}
	return c
}

func (c *Cache) increment(value string) {
	if c.op != nil {
		c.op.IncrementValue(value)
	}
}

// Get returns a previously published result.
func (c *Cache) Get(key Key) (Result, bool) {
	c.mu.RLock()
	r, ok := c.entries[key]
	c.mu.RUnlock()
	return r, ok
}

// GetOrCompute returns the published value for key, computing it on a miss.
// compute reports whether its result is eligible for caching: comparisons
// that completed only under an unresolved coinductive assumption must
// report false so that a cycle-dependent partial result never poisons the
// session cache. Concurrent callers for one key are collapsed onto a
// single computation.
func (c *Cache) GetOrCompute(key Key, compute func() (Result, bool)) Result {
	if r, ok := c.Get(key); ok {
		c.increment(metricHit)
		return r
	}
	c.increment(metricMiss)

	v, _, _ := c.flight.Do(key.flightKey(), func() (interface{}, error) {
		if r, ok := c.Get(key); ok {
			return r, nil
		}
		var done counter.OnDone
		if c.op != nil {
			done = c.op.Begin(time.Now())
		}
		r, cacheable := compute()
		if done != nil {
			done(time.Now())
		}
		if cacheable {
			r = c.publish(key, r)
		}
		return r, nil
	})
	return v.(Result)
}

// publish stores a result. When an entry already exists the stored value
// wins: redundant recomputation must agree, and a divergence is recorded as
// an internal inconsistency rather than letting two values circulate.
func (c *Cache) publish(key Key, r Result) Result {
	c.mu.Lock()
	existing, ok := c.entries[key]
	diverged := false
	if ok {
		diverged = existing != r
		if diverged {
			c.divergences++
		}
	} else {
		c.entries[key] = r
		existing = r
	}
	c.mu.Unlock()
	if diverged {
		c.increment(metricDivergent)
	}
	return existing
}

// Len returns the number of published entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Divergences returns how many divergent concurrent writes were observed;
// any nonzero value indicates an internal inconsistency.
func (c *Cache) Divergences() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.divergences
}
