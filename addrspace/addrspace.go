// Package addrspace implements the Container/Method address tree and its
// dispatch walk (spec §4.7): a single root container named "root", methods
// and sub-containers attached by address, and delivery of inbound messages
// to every Method whose leaf name matches the final address segment.
package addrspace

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/vexis-audio/oscrt/oschandler"
	"github.com/vexis-audio/oscrt/osc"
	"github.com/vexis-audio/oscrt/pattern"
	"github.com/vexis-audio/oscrt/receiver"
)

// Element is a Container or a Method: one node of the address tree.
type Element interface {
	Name() string
	Parent() *Container
	isElement()
}

// Container is an internal address-tree node holding named children. Child
// names are unique within a container; the parent back-reference is a
// lookup aid only, never an ownership relation.
type Container struct {
	name     string
	parent   *Container
	children []Element
}

func (c *Container) Name() string     { return c.name }
func (c *Container) Parent() *Container { return c.parent }
func (c *Container) isElement()       {}

// Children returns a snapshot of c's current children.
func (c *Container) Children() []Element {
	out := make([]Element, len(c.children))
	copy(out, c.children)
	return out
}

// Method is a leaf address-tree node bound to one or more handlers.
type Method struct {
	name     string
	parent   *Container
	handlers []oschandler.Handler
}

func (m *Method) Name() string       { return m.name }
func (m *Method) Parent() *Container { return m.parent }
func (m *Method) isElement()         {}

// HandlerCount reports how many handlers are subscribed to m.
func (m *Method) HandlerCount() int { return len(m.handlers) }

// AddressSpace is a tree rooted in a container named "root", plus the set
// of receivers currently feeding it dispatched messages.
type AddressSpace struct {
	mu    sync.Mutex
	root  *Container
	conns map[*receiver.Receiver]int
	log   *logrus.Entry
}

// New returns an empty address space.
func New() *AddressSpace {
	return &AddressSpace{
		root:  &Container{name: "root"},
		conns: make(map[*receiver.Receiver]int),
		log:   logrus.WithField("component", "addrspace.AddressSpace"),
	}
}

// Root returns the tree's root container.
func (a *AddressSpace) Root() *Container { return a.root }

// Connect subscribes to r's MessageReceived event and dispatches every
// delivered message into the tree. It deliberately does not also subscribe
// to BundleReceived: the Receiver always publishes MessageReceived for
// every message a dispatched bundle carries (fire/fireRecursive), so a
// second per-element dispatch off BundleReceived would invoke every
// matching handler twice for bundled messages.
func (a *AddressSpace) Connect(r *receiver.Receiver) {
	msgTok := r.MessageReceived.Subscribe(func(e receiver.MessageReceivedEvent) {
		a.DispatchMessage(e.Message)
	})

	a.mu.Lock()
	defer a.mu.Unlock()
	a.conns[r] = msgTok
}

// Disconnect unsubscribes from r. A no-op if r was never connected.
func (a *AddressSpace) Disconnect(r *receiver.Receiver) {
	a.mu.Lock()
	tok, ok := a.conns[r]
	delete(a.conns, r)
	a.mu.Unlock()
	if !ok {
		return
	}
	r.MessageReceived.Unsubscribe(tok)
}

func validateSegments(segs []string) error {
	for _, seg := range segs {
		if pattern.ContainsReservedSymbols(seg) {
			return errors.Errorf("addrspace: element name %q contains reserved or metasymbol characters", seg)
		}
	}
	return nil
}

// descendOrCreateContainer finds or creates a child container named name
// under parent, failing if a Method already occupies that name.
func descendOrCreateContainer(parent *Container, name string) (*Container, error) {
	for _, child := range parent.children {
		if child.Name() == name {
			if c, ok := child.(*Container); ok {
				return c, nil
			}
			return nil, errors.Errorf("addrspace: %q already exists as a method", name)
		}
	}
	c := &Container{name: name, parent: parent}
	parent.children = append(parent.children, c)
	return c, nil
}

// AddMethod walks address left to right, creating containers for every
// non-terminal element, and attaches handler to a Method at the terminal
// element -- creating it if absent, appending to it if present. Fails if
// the terminal element is already a Container.
func (a *AddressSpace) AddMethod(address string, handler oschandler.Handler) (*Method, error) {
	segs, err := pattern.Split(address)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, errors.Errorf("addrspace: address %q names no element", address)
	}
	if err := validateSegments(segs); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cur := a.root
	for _, seg := range segs[:len(segs)-1] {
		next, err := descendOrCreateContainer(cur, seg)
		if err != nil {
			return nil, err
		}
		cur = next
	}

	terminal := segs[len(segs)-1]
	for _, child := range cur.children {
		if child.Name() != terminal {
			continue
		}
		switch v := child.(type) {
		case *Container:
			return nil, errors.Errorf("addrspace: %q already exists as a container", address)
		case *Method:
			v.handlers = append(v.handlers, handler)
			return v, nil
		}
	}

	m := &Method{name: terminal, parent: cur, handlers: []oschandler.Handler{handler}}
	cur.children = append(cur.children, m)
	return m, nil
}

// AddContainer walks address left to right, creating containers as needed
// at every element including the terminal one. Calling it twice with the
// same address is idempotent: the tree gains exactly one container.
func (a *AddressSpace) AddContainer(address string) (*Container, error) {
	segs, err := pattern.Split(address)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, errors.Errorf("addrspace: address %q names no element", address)
	}
	if err := validateSegments(segs); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cur := a.root
	for _, seg := range segs {
		next, err := descendOrCreateContainer(cur, seg)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// RemoveElement detaches el (or the element found at the given address,
// first match) from its parent. Removing the root is an error.
func (a *AddressSpace) RemoveElement(target interface{}) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var el Element
	switch v := target.(type) {
	case Element:
		el = v
	case string:
		found, err := a.getElementByAddressLocked(v)
		if err != nil {
			return err
		}
		if found == nil {
			return errors.Errorf("addrspace: no element at %q", v)
		}
		el = found
	default:
		return errors.Errorf("addrspace: remove_element: unsupported target type %T", target)
	}

	parent := el.Parent()
	if parent == nil {
		return errors.New("addrspace: cannot remove the root container")
	}
	for i, c := range parent.children {
		if c == el {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			return nil
		}
	}
	return errors.New("addrspace: element is not attached to this tree")
}

// GetElementByAddress returns the first element whose path matches pattern
// segment-by-segment, or nil if none matches.
func (a *AddressSpace) GetElementByAddress(addrPattern string) (Element, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.getElementByAddressLocked(addrPattern)
}

func (a *AddressSpace) getElementByAddressLocked(addrPattern string) (Element, error) {
	all, err := a.getElementsByAddressLocked(addrPattern)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

// GetElementsByAddress returns every element whose path matches pattern
// segment-by-segment, walking the tree iteratively with an explicit stack
// (spec §9 "iterative tree walks").
func (a *AddressSpace) GetElementsByAddress(addrPattern string) ([]Element, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.getElementsByAddressLocked(addrPattern)
}

type addressFrame struct {
	container *Container
	depth     int
}

func (a *AddressSpace) getElementsByAddressLocked(addrPattern string) ([]Element, error) {
	segs, err := pattern.Split(addrPattern)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, nil
	}

	var results []Element
	stack := []addressFrame{{a.root, 0}}
	for len(stack) > 0 {
		n := len(stack) - 1
		frame := stack[n]
		stack = stack[:n]
		if frame.depth >= len(segs) {
			continue
		}
		seg := segs[frame.depth]
		terminal := frame.depth == len(segs)-1

		for _, child := range frame.container.children {
			ok, err := pattern.Match(child.Name(), seg)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if terminal {
				results = append(results, child)
				continue
			}
			if c, isContainer := child.(*Container); isContainer {
				stack = append(stack, addressFrame{c, frame.depth + 1})
			}
		}
	}
	return results, nil
}

// GetElementByName returns the first element anywhere in the tree whose
// name matches namePattern, regardless of path.
func (a *AddressSpace) GetElementByName(namePattern string) (Element, error) {
	all, err := a.GetElementsByName(namePattern)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

// GetElementsByName returns every element anywhere in the tree whose name
// matches namePattern, regardless of path, via an iterative full-tree walk.
func (a *AddressSpace) GetElementsByName(namePattern string) ([]Element, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var results []Element
	stack := []*Container{a.root}
	for len(stack) > 0 {
		n := len(stack) - 1
		cont := stack[n]
		stack = stack[:n]
		for _, child := range cont.children {
			ok, err := pattern.Match(child.Name(), namePattern)
			if err != nil {
				return nil, err
			}
			if ok {
				results = append(results, child)
			}
			if c, isContainer := child.(*Container); isContainer {
				stack = append(stack, c)
			}
		}
	}
	return results, nil
}

type dispatchLevel struct {
	container *Container
	cursor    int
}

// DispatchMessage walks the tree for m.Address using an explicit,
// non-recursive stack of (container, cursor) pairs -- large address trees
// must never risk a stack overflow from recursion (spec §4.7 step 2). At
// the terminal depth every matching Method is invoked, in subscription
// order, with a matching Container ignored; at non-terminal depths the walk
// descends into the first remaining child whose name matches, resuming
// from the next index on return.
func (a *AddressSpace) DispatchMessage(m *osc.Message) {
	segs, err := pattern.Split(m.Address)
	if err != nil || len(segs) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	stack := []dispatchLevel{{a.root, 0}}
	for len(stack) > 0 {
		depth := len(stack) - 1
		seg := segs[depth]
		terminal := depth == len(segs)-1
		hasMeta := pattern.ContainsPatternMetasymbols(seg)

		if terminal {
			a.dispatchTerminal(stack[depth].container, seg, hasMeta, m)
			stack = stack[:depth]
			continue
		}

		found := -1
		children := stack[depth].container.children
		for i := stack[depth].cursor; i < len(children); i++ {
			if segmentMatches(children[i].Name(), seg, hasMeta) {
				found = i
				break
			}
		}
		if found == -1 {
			stack = stack[:depth]
			continue
		}
		stack[depth].cursor = found + 1
		if c, ok := children[found].(*Container); ok {
			stack = append(stack, dispatchLevel{c, 0})
		}
	}
}

func (a *AddressSpace) dispatchTerminal(container *Container, seg string, hasMeta bool, m *osc.Message) {
	for _, child := range container.children {
		if !segmentMatches(child.Name(), seg, hasMeta) {
			continue
		}
		meth, ok := child.(*Method)
		if !ok {
			continue
		}
		a.invokeMethod(meth, m)
	}
}

func (a *AddressSpace) invokeMethod(meth *Method, m *osc.Message) {
	for _, h := range meth.handlers {
		oschandler.Invoke(h, meth.name, m.Arguments, func(err error) {
			a.log.WithError(err).WithField("address", m.Address).Warn("handler panicked")
		})
	}
}

func segmentMatches(name, seg string, hasMeta bool) bool {
	if !hasMeta {
		return name == seg
	}
	ok, err := pattern.Match(name, seg)
	return err == nil && ok
}
