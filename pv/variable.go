package pv

import (
	"fmt"
	"sync"
)

// A PutFunc intercepts a write to a variable. It receives the proposed
// value, already coerced to the variable's kind, and returns the value to
// actually commit. Returning an error rejects the write.
type PutFunc func(v *Variable, proposed Value) (Value, error)

// A Variable is one entry of the process-variable database.
//
// A Variable is created once at assembly-construction time and never
// destroyed. Its value is mutated either by a periodic recompute task (if
// derived) or by an external write request (if a control knob). Read-only
// variables reject external writes; all commits, internal and external, are
// routed through the variable's optional putter.
type Variable struct {
	localName string
	path      string
	kind      Kind
	doc       string
	readOnly  bool
	def       Value

	putter PutFunc

	registry *Registry

	mu sync.RWMutex
	// initialized records the one-way uninitialized -> steady-state
	// transition. It flips on the first commit and never flips back.
	initialized bool
	cur         Value
}

// Name returns the local name of the variable within its group.
func (v *Variable) Name() string {
	return v.localName
}

// Path returns the full namespaced identity of the variable, prefix
// included.
func (v *Variable) Path() string {
	return v.path
}

// Kind returns the declared kind of the variable.
func (v *Variable) Kind() Kind {
	return v.kind
}

// Doc returns the documentation string of the variable.
func (v *Variable) Doc() string {
	return v.doc
}

// ReadOnly tells if external writes are rejected.
func (v *Variable) ReadOnly() bool {
	return v.readOnly
}

// Default returns the declared default value.
func (v *Variable) Default() Value {
	return v.def
}

// WithDoc attaches a documentation string. It is meant to be chained at
// declaration time.
func (v *Variable) WithDoc(doc string) *Variable {
	v.doc = doc
	return v
}

// WithPutter attaches a write-interception callback. It is meant to be
// chained at declaration time.
func (v *Variable) WithPutter(fn PutFunc) *Variable {
	v.putter = fn
	return v
}

// Get returns the last-published value.
func (v *Variable) Get() Value {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.cur
}

// Float is shorthand for Get().Float().
func (v *Variable) Float() float64 {
	return v.Get().Float()
}

// Int is shorthand for Get().Int().
func (v *Variable) Int() int64 {
	return v.Get().Int()
}

// Initialized tells if the variable has left its uninitialized state, i.e.
// whether any task or client has committed a value since construction.
func (v *Variable) Initialized() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.initialized
}

// Put performs an external write. It fails on read-only variables. The
// returned Value is the value actually stored, which the putter may have
// transformed.
func (v *Variable) Put(val Value) (Value, error) {
	if v.readOnly {
		return Value{}, fmt.Errorf("%s is read-only", v.path)
	}

	return v.commit(val, true)
}

// Publish performs an internal write on behalf of a recompute or startup
// task. It is also routed through the putter.
func (v *Variable) Publish(val Value) (Value, error) {
	return v.commit(val, false)
}

func (v *Variable) commit(val Value, external bool) (Value, error) {
	coerced, err := val.convertTo(v.kind)
	if err != nil {
		return Value{}, fmt.Errorf("%s: %w", v.path, err)
	}

	if v.kind.IsArray() && coerced.Len() != v.def.Len() {
		return Value{}, fmt.Errorf(
			"%s: array write of length %d, want %d",
			v.path, coerced.Len(), v.def.Len())
	}

	if v.putter != nil {
		coerced, err = v.putter(v, coerced)
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", v.path, err)
		}
	}

	v.mu.Lock()
	v.cur = coerced
	v.initialized = true
	v.mu.Unlock()

	if v.registry != nil {
		v.registry.notifyCommit(v, coerced, external)
	}

	return coerced, nil
}

// ClampNonNegative is a PutFunc that coerces negative scalar writes to
// zero instead of failing the request.
func ClampNonNegative(v *Variable, proposed Value) (Value, error) {
	switch proposed.Kind() {
	case Float:
		if proposed.Float() < 0 {
			return NewFloat(0), nil
		}
	case Int:
		if proposed.Int() < 0 {
			return NewInt(0), nil
		}
	}

	return proposed, nil
}
