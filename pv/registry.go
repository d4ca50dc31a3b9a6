package pv

import (
	"fmt"
	"sync"
)

// sep joins namespace elements, EPICS style.
const sep = ":"

// A CommitObserver is called after every committed write, internal or
// external. Observers must not write back into the registry.
type CommitObserver func(v *Variable, val Value, external bool)

// A Registry is the root of the process-variable database. All variables of
// one simulator instance live in one registry; the registry is indexed by
// full path so that the protocol layer can address variables by name.
type Registry struct {
	prefix string
	root   *Group

	mu        sync.RWMutex
	index     map[string]*Variable
	observers []CommitObserver
}

// NewRegistry creates a Registry. The prefix is prepended verbatim to every
// variable path, so it normally carries a trailing separator, e.g.
// "LAS:TEST:".
func NewRegistry(prefix string) *Registry {
	r := &Registry{
		prefix: prefix,
		index:  make(map[string]*Variable),
	}
	r.root = newGroup("", r, nil)

	return r
}

// Prefix returns the path prefix of the registry.
func (r *Registry) Prefix() string {
	return r.prefix
}

// Root returns the root group, under which all declarations happen.
func (r *Registry) Root() *Group {
	return r.root
}

// Lookup finds a variable by its full path.
func (r *Registry) Lookup(path string) (*Variable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, found := r.index[path]
	return v, found
}

// Read returns the last-published value of the variable at path.
func (r *Registry) Read(path string) (Value, error) {
	v, found := r.Lookup(path)
	if !found {
		return Value{}, fmt.Errorf("no variable %q", path)
	}

	return v.Get(), nil
}

// Write performs an external write to the variable at path, routed through
// the variable's putter. The returned Value is the value actually stored.
func (r *Registry) Write(path string, val Value) (Value, error) {
	v, found := r.Lookup(path)
	if !found {
		return Value{}, fmt.Errorf("no variable %q", path)
	}

	return v.Put(val)
}

// Variables returns all variables in declaration order.
func (r *Registry) Variables() []*Variable {
	var vars []*Variable
	r.root.walk(func(v *Variable) {
		vars = append(vars, v)
	})

	return vars
}

// OnCommit registers a commit observer.
func (r *Registry) OnCommit(obs CommitObserver) {
	r.mu.Lock()
	r.observers = append(r.observers, obs)
	r.mu.Unlock()
}

func (r *Registry) addToIndex(v *Variable) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.index[v.path]; found {
		panic("variable " + v.path + " already registered")
	}

	r.index[v.path] = v
}

func (r *Registry) notifyCommit(v *Variable, val Value, external bool) {
	r.mu.RLock()
	observers := r.observers
	r.mu.RUnlock()

	for _, obs := range observers {
		obs(v, val, external)
	}
}
