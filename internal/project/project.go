// Package project schedules whole-project checking. Each module gets one
// sequential checking pass, distributed over a bounded worker pool.
// Cross-module ordering follows the import graph: a module publishes its
// export table exactly once through a completion handle, and consuming
// passes wait on the producer's handle before they start. Modules in an
// import cycle are checked by one worker, with an exports-only pre-pass
// breaking the cycle. A session timeout aborts all outstanding workers
// and discards partial results.
package project

import (
	"context"
	"reflect"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/viant/gmetric"
	"github.com/viant/gmetric/counter"
	gprovider "github.com/viant/gmetric/provider"
	"golang.org/x/sync/errgroup"

	"github.com/ah-yu/stc/internal/analyzer"
	"github.com/ah-yu/stc/internal/ast"
	"github.com/ah-yu/stc/internal/env"
	"github.com/ah-yu/stc/internal/opcache"
	"github.com/ah-yu/stc/internal/order"
	"github.com/ah-yu/stc/internal/scope"
	"github.com/ah-yu/stc/internal/typeops"
)

// Config tunes a checking session.
type Config struct {
	// Workers bounds the number of concurrently checking modules.
	// Nonpositive means one worker per available CPU.
	Workers int
	// Timeout bounds the whole session; zero means no limit.
	Timeout time.Duration
	// TypeOps configures the shared type operations engine.
	TypeOps typeops.Config
	// Metrics receives cache and per-module timing counters. May be nil.
	Metrics *gmetric.Service
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Workers: runtime.GOMAXPROCS(0),
		TypeOps: typeops.DefaultConfig(),
	}
}

type metricsLocation struct{}

func metricLocation() string {
	return reflect.TypeOf(metricsLocation{}).PkgPath()
}

// Session owns the state shared by every checking pass: the interner, the
// operation cache, the relater, and the ambient environment.
type Session struct {
	id    uuid.UUID
	cfg   Config
	env   *env.Environment
	cache *opcache.Cache
	r     *typeops.Relater
	op    interface {
		Begin(started time.Time) counter.OnDone
	}
}

// NewSession creates a session over a seeded environment.
func NewSession(environment *env.Environment, cfg Config) *Session {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	cache := opcache.New(cfg.Metrics)
	s := &Session{
		id:    uuid.New(),
		cfg:   cfg,
		env:   environment,
		cache: cache,
		r:     typeops.New(environment.Interner(), cache, cfg.TypeOps),
	}
	if cfg.Metrics != nil {
		s.op = cfg.Metrics.MultiOperationCounter(metricLocation(), "project",
			"per-module check timing", time.Millisecond, time.Minute, 2, gprovider.NewBasic())
	}
	return s
}

// ID returns the session identity attached to results and metrics.
func (s *Session) ID() uuid.UUID { return s.id }

// Cache returns the session's operation cache.
func (s *Session) Cache() *opcache.Cache { return s.cache }

// Relater returns the shared type operations engine.
func (s *Session) Relater() *typeops.Relater { return s.r }

// Result aggregates the per-module outcomes of one Check call.
type Result struct {
	Session uuid.UUID
	Modules map[string]*analyzer.Result
}

// handle is a module's completion handle: done closes exactly once, after
// exports is published, and exports is read-only from then on.
type handle struct {
	done    chan struct{}
	exports *scope.Exports
}

func newHandle() *handle {
	return &handle{done: make(chan struct{})}
}

func (h *handle) publish(exp *scope.Exports) {
	h.exports = exp
	close(h.done)
}

// await blocks until the handle's module has published or the session is
// aborted.
func (h *handle) await(ctx context.Context) (*scope.Exports, error) {
	select {
	case <-h.done:
		return h.exports, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "project: session aborted")
	}
}

// Check runs one checking pass per module. The returned result holds every
// module's types, diagnostics, and exports; on timeout or cancellation all
// partial results are discarded and only the error is returned.
func (s *Session) Check(ctx context.Context, modules []*ast.Module) (*Result, error) {
	res := &Result{Session: s.id, Modules: make(map[string]*analyzer.Result, len(modules))}
	if len(modules) == 0 {
		return res, nil
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	indexOf := make(map[string]int, len(modules))
	for i, m := range modules {
		if _, dup := indexOf[m.Name]; dup {
			return nil, errors.Errorf("project: duplicate module %q", m.Name)
		}
		indexOf[m.Name] = i
	}

	g := order.NewGraph(len(modules))
	for i, m := range modules {
		for _, imp := range m.Imports {
			if j, ok := indexOf[imp.Module]; ok {
				g.AddEdge(i, j)
			}
		}
	}
	comps := g.SCCs()

	handles := make([]*handle, len(modules))
	for i := range handles {
		handles[i] = newHandle()
	}
	results := make([]*analyzer.Result, len(modules))

	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(s.cfg.Workers)
	err := s.dispatch(gctx, grp, modules, g, comps, indexOf, handles, results)
	if werr := grp.Wait(); err == nil {
		err = werr
	}
	if err != nil {
		return nil, err
	}

	for i, m := range modules {
		res.Modules[m.Name] = results[i]
	}
	return res, nil
}

// dispatch launches one worker task per import-graph component, in
// dependencies-first order, never launching a component before everything
// it imports has published. Components with no mutual ordering start in
// source order. Launched tasks therefore only ever wait on handles that
// are already published or owned by an already-running worker.
func (s *Session) dispatch(ctx context.Context, grp *errgroup.Group, modules []*ast.Module, g *order.Graph, comps [][]int, indexOf map[string]int, handles []*handle, results []*analyzer.Result) error {
	compOf := make([]int, len(modules))
	for ci, c := range comps {
		for _, v := range c {
			compOf[v] = ci
		}
	}

	pending := make([]int, len(comps))
	dependents := make([][]int, len(comps))
	edgeSeen := make(map[[2]int]bool)
	for v := range modules {
		for _, imp := range modules[v].Imports {
			w, ok := indexOf[imp.Module]
			if !ok {
				continue
			}
			cv, cw := compOf[v], compOf[w]
			if cv == cw {
				continue
			}
			key := [2]int{cv, cw}
			if edgeSeen[key] {
				continue
			}
			edgeSeen[key] = true
			pending[cv]++
			dependents[cw] = append(dependents[cw], cv)
		}
	}

	var ready []int
	for ci, p := range pending {
		if p == 0 {
			ready = append(ready, ci)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return comps[ready[i]][0] < comps[ready[j]][0] })

	finished := make(chan int, len(comps))
	launch := func(ci int) {
		comp := comps[ci]
		grp.Go(func() error {
			if err := s.checkComponent(ctx, comp, modules, g, comps, indexOf, compOf, handles, results); err != nil {
				return err
			}
			finished <- ci
			return nil
		})
	}
	for _, ci := range ready {
		launch(ci)
	}

	for completed := 0; completed < len(comps); completed++ {
		select {
		case ci := <-finished:
			for _, dep := range dependents[ci] {
				pending[dep]--
				if pending[dep] == 0 {
					launch(dep)
				}
			}
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "project: session aborted")
		}
	}
	return nil
}

// checkComponent checks the modules of one import-graph component. An
// acyclic component is a single module checked in one pass. A cycle is
// checked by first binding every member's declarations without bodies, so
// each member can import the others' provisional exports, then running the
// full pass against those tables.
func (s *Session) checkComponent(ctx context.Context, comp []int, modules []*ast.Module, g *order.Graph, comps [][]int, indexOf map[string]int, compOf []int, handles []*handle, results []*analyzer.Result) error {
	inComp := make(map[int]bool, len(comp))
	for _, i := range comp {
		inComp[i] = true
	}

	// External dependencies publish before this component runs; intra-
	// component tables are filled by the pre-pass below.
	external := make(map[string]*scope.Exports)
	for _, i := range comp {
		for _, imp := range modules[i].Imports {
			j, ok := indexOf[imp.Module]
			if !ok || inComp[j] {
				continue
			}
			exp, err := handles[j].await(ctx)
			if err != nil {
				return err
			}
			external[imp.Module] = exp
		}
	}

	cyclic := len(comp) > 1 || g.Cyclic(comp[0], comps)
	intra := make(map[string]*scope.Exports, len(comp))
	if cyclic {
		for _, i := range comp {
			pre := analyzer.Analyze(modules[i], analyzer.Config{
				Relater:     s.r,
				Env:         s.env,
				Deps:        mergeDeps(external, intra),
				ExportsOnly: true,
			})
			intra[modules[i].Name] = pre.Exports
		}
	}

	for _, i := range comp {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "project: session aborted")
		}
		var done counter.OnDone
		if s.op != nil {
			done = s.op.Begin(time.Now())
		}
		res := analyzer.Analyze(modules[i], analyzer.Config{
			Relater: s.r,
			Env:     s.env,
			Deps:    mergeDeps(external, intra),
		})
		if done != nil {
			done(time.Now())
		}
		results[i] = res
		handles[i].publish(res.Exports)
	}
	return nil
}

func mergeDeps(external, intra map[string]*scope.Exports) map[string]*scope.Exports {
	out := make(map[string]*scope.Exports, len(external)+len(intra))
	for k, v := range external {
		out[k] = v
	}
	for k, v := range intra {
		out[k] = v
	}
	return out
}
