package pv

import "strings"

// A Group is one level of the process-variable namespace. Groups nest: a
// variable's full identity is the concatenation of the registry prefix, the
// group path, and the local name.
type Group struct {
	name     string
	registry *Registry
	parent   *Group

	groups     map[string]*Group
	groupOrder []string
	vars       map[string]*Variable
	varOrder   []string
}

func newGroup(name string, registry *Registry, parent *Group) *Group {
	return &Group{
		name:     name,
		registry: registry,
		parent:   parent,
		groups:   make(map[string]*Group),
		vars:     make(map[string]*Variable),
	}
}

// Name returns the local name of the group.
func (g *Group) Name() string {
	return g.name
}

// Group creates a sub-namespace. Creating the same name twice panics, as
// the tree is declared exactly once at construction time.
func (g *Group) Group(name string) *Group {
	g.mustBeFresh(name)

	sub := newGroup(name, g.registry, g)
	g.groups[name] = sub
	g.groupOrder = append(g.groupOrder, name)

	return sub
}

// Float declares a writable float variable.
func (g *Group) Float(name string, def float64) *Variable {
	return g.declare(name, Float, NewFloat(def), false)
}

// ReadOnlyFloat declares a derived float variable.
func (g *Group) ReadOnlyFloat(name string, def float64) *Variable {
	return g.declare(name, Float, NewFloat(def), true)
}

// Int declares a writable integer variable.
func (g *Group) Int(name string, def int64) *Variable {
	return g.declare(name, Int, NewInt(def), false)
}

// ReadOnlyInt declares a derived integer variable.
func (g *Group) ReadOnlyInt(name string, def int64) *Variable {
	return g.declare(name, Int, NewInt(def), true)
}

// FloatArray declares a writable fixed-size float array variable.
func (g *Group) FloatArray(name string, def []float64) *Variable {
	return g.declare(name, FloatArray, NewFloats(def), false)
}

// ReadOnlyFloatArray declares a derived fixed-size float array variable.
func (g *Group) ReadOnlyFloatArray(name string, def []float64) *Variable {
	return g.declare(name, FloatArray, NewFloats(def), true)
}

// IntArray declares a writable fixed-size integer array variable.
func (g *Group) IntArray(name string, def []int64) *Variable {
	return g.declare(name, IntArray, NewInts(def), false)
}

// ReadOnlyIntArray declares a derived fixed-size integer array variable.
func (g *Group) ReadOnlyIntArray(name string, def []int64) *Variable {
	return g.declare(name, IntArray, NewInts(def), true)
}

func (g *Group) declare(
	name string,
	kind Kind,
	def Value,
	readOnly bool,
) *Variable {
	g.mustBeFresh(name)

	v := &Variable{
		localName: name,
		path:      g.pathOf(name),
		kind:      kind,
		readOnly:  readOnly,
		def:       def,
		cur:       def,
		registry:  g.registry,
	}

	g.vars[name] = v
	g.varOrder = append(g.varOrder, name)
	g.registry.addToIndex(v)

	return v
}

func (g *Group) mustBeFresh(name string) {
	if _, found := g.vars[name]; found {
		panic("variable " + g.pathOf(name) + " already declared")
	}
	if _, found := g.groups[name]; found {
		panic("group " + g.pathOf(name) + " already declared")
	}
}

// pathOf builds the full path of a local name, registry prefix included.
func (g *Group) pathOf(name string) string {
	elems := []string{name}
	for cur := g; cur.parent != nil; cur = cur.parent {
		elems = append([]string{cur.name}, elems...)
	}

	return g.registry.prefix + strings.Join(elems, sep)
}

// walk visits all variables in declaration order, depth first.
func (g *Group) walk(visit func(v *Variable)) {
	for _, name := range g.varOrder {
		visit(g.vars[name])
	}
	for _, name := range g.groupOrder {
		g.groups[name].walk(visit)
	}
}
