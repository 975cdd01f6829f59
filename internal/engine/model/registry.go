package model

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Faultbox/supermodel/internal/assets"
	"github.com/Faultbox/supermodel/internal/engine/catalogue"
	"github.com/Faultbox/supermodel/internal/logger"
)

// Registry shares loaded models by resource name.
type Registry struct {
	store assets.Store
	cats  *catalogue.Catalogues

	mu       sync.Mutex
	models   map[string]*Model
	failures map[string]error

	loads singleflight.Group
}

// NewRegistry creates a registry reading documents from store.
func NewRegistry(store assets.Store, cats *catalogue.Catalogues) *Registry {
	if cats == nil {
		cats = catalogue.New()
	}
	return &Registry{
		store:    store,
		cats:     cats,
		models:   make(map[string]*Model),
		failures: make(map[string]error),
	}
}

// Catalogues returns the shared tables models are bound to.
func (r *Registry) Catalogues() *catalogue.Catalogues { return r.cats }

// Get returns the live model for name with a reference taken. When the
// model is not registered it is loaded if load is set. A failed load is
// reported once and returned again until a successful Reload.
func (r *Registry) Get(name string, load bool) (*Model, error) {
	name = assets.NormalizeName(name)
	for {
		r.mu.Lock()
		if m := r.models[name]; m != nil && !m.dead {
			m.refs++
			r.mu.Unlock()
			return m, nil
		}
		if err, ok := r.failures[name]; ok {
			r.mu.Unlock()
			return nil, err
		}
		r.mu.Unlock()

		if !load {
			return nil, errors.Wrap(ErrNotLoaded, name)
		}

		// The goroutine that runs the load receives the model already
		// referenced; goroutines that shared its result take their own
		// reference on the next pass.
		leader := false
		v, err, _ := r.loads.Do(name, func() (any, error) {
			leader = true
			return r.load(name)
		})
		if err != nil {
			return nil, err
		}
		if leader {
			return v.(*Model), nil
		}
	}
}

// load constructs and registers name with one reference held for the
// caller. A racing registration wins over the instance built here.
func (r *Registry) load(name string) (*Model, error) {
	m, err := r.construct(name)
	if err != nil {
		lerr := &LoadError{Name: name, Err: err}
		r.mu.Lock()
		r.failures[name] = lerr
		r.mu.Unlock()
		logger.Once("model-load:"+name, "model failed to load",
			zap.String("model", name), zap.Error(err))
		return nil, lerr
	}

	r.mu.Lock()
	if existing := r.models[name]; existing != nil && !existing.dead {
		existing.refs++
		r.mu.Unlock()
		m.discard()
		return existing, nil
	}
	m.refs = 1
	r.models[name] = m
	delete(r.failures, name)
	r.mu.Unlock()

	logger.Debug("model loaded", zap.String("model", name),
		zap.Int("nodes", len(m.skeleton)), zap.Int("animations", len(m.animations)))
	return m, nil
}

// construct reads and builds a model without registering it.
func (r *Registry) construct(name string) (*Model, error) {
	doc, err := r.store.Open(name)
	if err != nil {
		return nil, err
	}
	m := &Model{name: name, reg: r, cats: r.cats}
	if parentName := doc.ReadString("parent", ""); parentName != "" {
		parentName = assets.NormalizeName(parentName)
		if err := r.checkAncestry(name, parentName); err != nil {
			return nil, err
		}
		parent, err := r.Get(parentName, true)
		if err != nil {
			return nil, errors.Wrapf(err, "parent %s", parentName)
		}
		m.parent = parent
	}
	if err := m.load(doc); err != nil {
		m.discard()
		return nil, err
	}
	return m, nil
}

// checkAncestry walks the parent names of documents that are not yet
// loaded and rejects chains that lead back to name.
func (r *Registry) checkAncestry(name, parent string) error {
	seen := map[string]bool{name: true}
	for cur := parent; cur != ""; {
		if seen[cur] {
			return errors.Wrapf(ErrParentCycle, "%s reaches %s again", name, cur)
		}
		seen[cur] = true

		r.mu.Lock()
		m := r.models[cur]
		r.mu.Unlock()
		if m != nil {
			for p := m; p != nil; p = p.parent {
				if seen[p.name] && p != m {
					return errors.Wrapf(ErrParentCycle, "%s reaches %s again", name, p.name)
				}
			}
			return nil
		}

		doc, err := r.store.Open(cur)
		if err != nil {
			return nil
		}
		cur = assets.NormalizeName(doc.ReadString("parent", ""))
		if cur == "." {
			cur = ""
		}
	}
	return nil
}

// discard drops a model that was never registered.
func (m *Model) discard() {
	if m.parent != nil {
		m.parent.Release()
		m.parent = nil
	}
}

func (r *Registry) release(m *Model) {
	r.mu.Lock()
	if m.dead {
		r.mu.Unlock()
		logger.Debug("release of dead model", zap.String("model", m.name))
		return
	}
	m.refs--
	if m.refs > 0 {
		r.mu.Unlock()
		return
	}
	if m.refs < 0 {
		logger.Debug("model over-released", zap.String("model", m.name))
		m.refs = 0
	}
	parents := []*Model{m.parent}
	r.retire(m)

	// A reload replacement nobody has taken yet goes with the last holder
	// of the instance it replaced.
	if m.superseded {
		if next := r.models[m.name]; next != nil && next != m && next.refs == 0 && !next.dead {
			r.retire(next)
			parents = append(parents, next.parent)
		}
	}
	r.mu.Unlock()

	for _, p := range parents {
		if p != nil {
			p.Release()
		}
	}
}

// retire marks m dead and unregisters it unless a newer instance has taken
// its name. Called with r.mu held.
func (r *Registry) retire(m *Model) {
	m.dead = true
	if r.models[m.name] == m {
		delete(r.models, m.name)
	}
}

// Reload builds a fresh instance of name and registers it in place of the
// current one, which stays valid for its holders. The replacement is
// registered without references: the next Get takes it, and it is retired
// with the old instance if nobody has by then. With children, every
// registered model whose parent was the old instance is reloaded as well.
//
// A name that is not registered is only checked: a cached failure is
// cleared once the document loads again.
func (r *Registry) Reload(name string, children bool) error {
	name = assets.NormalizeName(name)
	if inv, ok := r.store.(interface{ Invalidate(string) }); ok {
		inv.Invalidate(name)
	}

	r.mu.Lock()
	old := r.models[name]
	if old != nil && old.dead {
		old = nil
	}
	_, failed := r.failures[name]
	r.mu.Unlock()
	if old == nil && !failed {
		return nil
	}

	m, err := r.construct(name)
	if err != nil {
		logger.Warn("model reload failed", zap.String("model", name), zap.Error(err))
		return &LoadError{Name: name, Err: err}
	}
	logger.Forget("model-load:" + name)

	if old == nil {
		m.discard()
		r.mu.Lock()
		delete(r.failures, name)
		r.mu.Unlock()
		logger.Info("model load failure cleared", zap.String("model", name))
		return nil
	}

	r.mu.Lock()
	if cur := r.models[name]; cur != old {
		// Another reload or a release got here first.
		r.mu.Unlock()
		m.discard()
		return nil
	}
	r.models[name] = m
	delete(r.failures, name)
	old.superseded = true

	var kids []string
	if children {
		for n, c := range r.models {
			if c.parent == old && !c.dead {
				kids = append(kids, n)
			}
		}
	}
	r.mu.Unlock()

	logger.Info("model reloaded", zap.String("model", name), zap.Int("children", len(kids)))

	sort.Strings(kids)
	var errs error
	for _, kid := range kids {
		errs = multierr.Append(errs, r.Reload(kid, true))
	}
	return errs
}

// Names returns the registered model names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.models))
	for name, m := range r.models {
		if !m.dead {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
