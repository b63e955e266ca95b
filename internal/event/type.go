package event

// Type is a node in the event type hierarchy.
// Every type except Root has exactly one parent, so walking parents always
// terminates at Root. Types are immutable once created.
type Type struct {
	name   string
	parent *Type
}

// Root is the base marker type every event type descends from.
var Root = &Type{name: "Event"}

// NewType declares a new event type under parent.
// A nil parent declares a direct child of Root.
//
// Types are identified by pointer, not by name. The name is only a label for
// logs, traces and metrics, so types declared with the same name stay
// distinct on the bus but share their metric series.
func NewType(name string, parent *Type) *Type {
	if parent == nil {
		parent = Root
	}

	return &Type{
		name:   name,
		parent: parent,
	}
}

// Name returns the declared name of the type.
func (t *Type) Name() string {
	if t == nil {
		return Root.name
	}
	return t.name
}

// Parent returns the direct ancestor, or nil for Root.
func (t *Type) Parent() *Type {
	if t == nil {
		return nil
	}
	return t.parent
}

// IsA reports whether t is ancestor or one of its descendants.
func (t *Type) IsA(ancestor *Type) bool {
	if ancestor == nil {
		return false
	}
	if t == nil {
		return ancestor == Root
	}

	for cur := t; cur != nil; cur = cur.parent {
		if cur == ancestor {
			return true
		}
	}

	return false
}

func (t *Type) String() string {
	return t.Name()
}
