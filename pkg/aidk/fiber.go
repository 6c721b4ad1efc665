package aidk

import (
	"strconv"
	"strings"
)

// FiberFlags is the work-flags bitset carried on a fiber between render and
// commit.
type FiberFlags uint16

const (
	NoFlags       FiberFlags = 0
	Placement     FiberFlags = 1 << 0
	Update        FiberFlags = 1 << 1
	Deletion      FiberFlags = 1 << 2
	ChildDeletion FiberFlags = 1 << 3
	HasEffect     FiberFlags = 1 << 4
	RefFlag       FiberFlags = 1 << 5
)

// Fiber is the mutable shadow-tree node double-buffered across renders: one
// tree node carrying hook state, tree pointers and an alternate cross-link.
type Fiber struct {
	id uint64

	Kind      ElementKind
	Tag       string
	Primitive Primitive
	Key       string
	DebugName string

	// Function/Class/Instance mirror the originating Element's callable so
	// beginWork can invoke it without re-deriving it from Props.
	Function Component
	Class    ClassFactory
	Instance InstanceComponent

	Props        Props
	PendingProps Props

	// StateNode holds a class instance, a plain object instance, or nil.
	// The fiber exclusively owns it.
	StateNode any

	// MemoizedState is the head of the hook-cell linked list for function
	// components. nil for non-function fibers.
	MemoizedState *HookCell

	Parent  *Fiber // weak back-reference: lookup only, never ownership
	Child   *Fiber
	Sibling *Fiber
	Index   int

	Ref string

	Flags     FiberFlags
	Deletions []*Fiber

	Alternate *Fiber

	// Renderer is carried over by createWorkInProgress but never assigned
	// by the reconciler; the collector tracks the ContentRenderer in scope
	// with its own renderer stack.
	Renderer any

	// mounted tracks whether OnMount has already fired, so remounting a
	// reused fiber never re-fires it.
	mounted bool
}

var nextFiberID uint64

func allocFiberID() uint64 {
	nextFiberID++
	return nextFiberID
}

// createFiber allocates a fiber for el with empty tree pointers and
// NoFlags.
func createFiber(el Element, key string) *Fiber {
	return &Fiber{
		id:        allocFiberID(),
		Kind:      el.Kind,
		Tag:       el.Tag,
		Primitive: el.Primitive,
		Key:       key,
		DebugName: el.displayName(),
		Function:  el.Function,
		Class:     el.Class,
		Instance:  el.Instance,
		Props:     el.Props,
		Flags:     Placement,
	}
}

// createWorkInProgress returns current's alternate, allocating and
// cross-linking it on first use, then copying over the fields that persist
// across a render and resetting per-render flags.
func createWorkInProgress(current *Fiber, pendingProps Props) *Fiber {
	wip := current.Alternate
	if wip == nil {
		wip = &Fiber{
			id:        current.id,
			Kind:      current.Kind,
			Tag:       current.Tag,
			Primitive: current.Primitive,
			Key:       current.Key,
			DebugName: current.DebugName,
			Function:  current.Function,
			Class:     current.Class,
			Instance:  current.Instance,
		}
		wip.Alternate = current
		current.Alternate = wip
	}
	wip.PendingProps = pendingProps
	wip.MemoizedState = current.MemoizedState
	wip.StateNode = current.StateNode
	wip.Child = current.Child
	wip.Ref = current.Ref
	wip.Renderer = current.Renderer
	wip.mounted = current.mounted
	wip.Flags = NoFlags
	wip.Deletions = nil
	wip.Props = current.Props
	return wip
}

// Has reports whether f is set in flags.
func (flags FiberFlags) Has(f FiberFlags) bool {
	return flags&f != 0
}

// ForEachChild walks f's child/sibling chain left to right.
func (f *Fiber) ForEachChild(visit func(*Fiber)) {
	for c := f.Child; c != nil; c = c.Sibling {
		visit(c)
	}
}

// WalkPreOrder visits f and its descendants depth-first, parent before
// children, left to right.
func WalkPreOrder(f *Fiber, visit func(*Fiber)) {
	if f == nil {
		return
	}
	visit(f)
	for c := f.Child; c != nil; c = c.Sibling {
		WalkPreOrder(c, visit)
	}
}

// WalkPostOrder visits f's descendants before f itself, left to right
// (used for depth-first unmount).
func WalkPostOrder(f *Fiber, visit func(*Fiber)) {
	if f == nil {
		return
	}
	for c := f.Child; c != nil; c = c.Sibling {
		WalkPostOrder(c, visit)
	}
	visit(f)
}

// path returns a stable identifier for f's position in the tree, built from
// the debug name plus key (or index, when unkeyed) of f and every ancestor. Two fibers at the same tree
// position across a remount (one torn down, a fresh one created in its
// place) produce the same path, which is what lets initcache survive the
// remount even though the Fiber pointer itself does not.
func (f *Fiber) path() string {
	var parts []string
	for n := f; n != nil; n = n.Parent {
		seg := n.DebugName
		if n.Key != "" {
			seg += "#" + n.Key
		} else {
			seg += "@" + strconv.Itoa(n.Index)
		}
		parts = append(parts, seg)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}
