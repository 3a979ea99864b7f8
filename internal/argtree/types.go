package argtree

import (
	"go/types"
)

// Kind classifies a type descriptor.
type Kind int

const (
	Scalar Kind = iota
	Pointer
	Aggregate
	FieldMarker
)

func (k Kind) String() string {
	switch k {
	case Pointer:
		return "pointer"
	case Aggregate:
		return "aggregate"
	case FieldMarker:
		return "field"
	default:
		return "scalar"
	}
}

// Member marks a struct field. It wraps the field's type together with the
// field object and its byte offset inside the enclosing struct, so a tree node
// created for a field still knows where that field lives.
type Member struct {
	Field  *types.Var
	Offset int64
}

func (m *Member) Underlying() types.Type { return m }

func (m *Member) String() string {
	return m.Field.Name() + " " + types.TypeString(m.Field.Type(), nil)
}

// Type returns the declared type of the field.
func (m *Member) Type() types.Type { return m.Field.Type() }

// TypeInfo is the type-metadata collaborator consulted while expanding trees.
type TypeInfo interface {
	// Normalize strips field markers, aliases and names.
	Normalize(t types.Type) types.Type
	Classify(t types.Type) Kind
	// Pointee returns the element of a pointer type, keeping its name.
	Pointee(t types.Type) types.Type
	// Fields returns one *Member per field of an aggregate, in declared order.
	Fields(t types.Type) []*Member
	// DeclaredOffset reports the byte offset of a field marker.
	DeclaredOffset(t types.Type) (int64, bool)
	IsStruct(t types.Type) bool
	IsStructPointer(t types.Type) bool
	// Name is the source-level name used in diagnostics.
	Name(t types.Type) string
}

// GoTypes implements TypeInfo over go/types. Offsets come from Sizes, which
// must match the sizes the program representation computes offsets with.
type GoTypes struct {
	Sizes types.Sizes
}

// NewGoTypes returns a GoTypes using sizes, or gc/amd64 sizes when nil.
func NewGoTypes(sizes types.Sizes) *GoTypes {
	if sizes == nil {
		sizes = types.SizesFor("gc", "amd64")
	}
	return &GoTypes{Sizes: sizes}
}

func (g *GoTypes) Normalize(t types.Type) types.Type {
	if t == nil {
		return nil
	}
	if m, ok := t.(*Member); ok {
		t = m.Type()
	}
	// Unalias handles Go 1.23+ where aliases are materialized as *types.Alias.
	t = types.Unalias(t)
	if n, ok := t.(*types.Named); ok {
		return n.Underlying()
	}
	return t
}

func (g *GoTypes) Classify(t types.Type) Kind {
	switch t.(type) {
	case *Member:
		return FieldMarker
	case *types.Pointer:
		return Pointer
	case *types.Struct:
		return Aggregate
	}
	return Scalar
}

func (g *GoTypes) Pointee(t types.Type) types.Type {
	if p, ok := g.Normalize(t).(*types.Pointer); ok {
		return p.Elem()
	}
	return nil
}

func (g *GoTypes) Fields(t types.Type) []*Member {
	st, ok := g.Normalize(t).(*types.Struct)
	if !ok || st.NumFields() == 0 {
		return nil
	}
	vars := make([]*types.Var, st.NumFields())
	for i := range vars {
		vars[i] = st.Field(i)
	}
	offsets := g.Sizes.Offsetsof(vars)
	members := make([]*Member, len(vars))
	for i, v := range vars {
		members[i] = &Member{Field: v, Offset: offsets[i]}
	}
	return members
}

func (g *GoTypes) DeclaredOffset(t types.Type) (int64, bool) {
	if m, ok := t.(*Member); ok {
		return m.Offset, true
	}
	return 0, false
}

func (g *GoTypes) IsStruct(t types.Type) bool {
	_, ok := g.Normalize(t).(*types.Struct)
	return ok
}

func (g *GoTypes) IsStructPointer(t types.Type) bool {
	p, ok := g.Normalize(t).(*types.Pointer)
	if !ok {
		return false
	}
	return g.IsStruct(p.Elem())
}

// Name returns the field name for members, the declared name for named
// types and the type string otherwise.
func (g *GoTypes) Name(t types.Type) string {
	switch tt := t.(type) {
	case nil:
		return ""
	case *Member:
		return tt.Field.Name()
	case *types.Named:
		return tt.Obj().Name()
	case *types.Alias:
		return tt.Obj().Name()
	}
	return types.TypeString(t, func(*types.Package) string { return "" })
}
