package argtree

import (
	"go/constant"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/ssa"
)

// UseKind classifies how an instruction consumes one of its operands.
type UseKind int

const (
	UseOther UseKind = iota
	UseLoad
	UseOffset
	UseStore
)

// Use is the classification of one instruction consuming one operand.
// Offset is meaningful only for UseOffset.
type Use struct {
	Kind   UseKind
	Offset int64
}

// Program is the program-representation collaborator.
type Program interface {
	Uses(v ssa.Value) []ssa.Instruction
	Classify(use ssa.Instruction, operand ssa.Value) Use
}

// SSAProgram implements Program over golang.org/x/tools/go/ssa.
//
// Referrers() answers most queries. Globals, functions and constants have no
// referrer list, so their uses come from an operand index built once over the
// functions passed to NewSSAProgram.
type SSAProgram struct {
	sizes types.Sizes
	index map[ssa.Value][]ssa.Instruction
}

// NewSSAProgram indexes the operands of every instruction in funcs.
// sizes must agree with the TypeInfo used for the same trees.
func NewSSAProgram(sizes types.Sizes, funcs map[*ssa.Function]bool) *SSAProgram {
	if sizes == nil {
		sizes = types.SizesFor("gc", "amd64")
	}
	p := &SSAProgram{
		sizes: sizes,
		index: make(map[ssa.Value][]ssa.Instruction),
	}
	var rands []*ssa.Value
	for fn := range funcs {
		for _, block := range fn.Blocks {
			for _, instr := range block.Instrs {
				rands = instr.Operands(rands[:0])
				for _, r := range rands {
					if r == nil || *r == nil {
						continue
					}
					if (*r).Referrers() != nil {
						continue
					}
					p.index[*r] = appendOnce(p.index[*r], instr)
				}
			}
		}
	}
	return p
}

// appendOnce skips instructions that use the same operand twice.
func appendOnce(instrs []ssa.Instruction, instr ssa.Instruction) []ssa.Instruction {
	if n := len(instrs); n > 0 && instrs[n-1] == instr {
		return instrs
	}
	return append(instrs, instr)
}

func (p *SSAProgram) Uses(v ssa.Value) []ssa.Instruction {
	if v == nil {
		return nil
	}
	if refs := v.Referrers(); refs != nil {
		return *refs
	}
	return p.index[v]
}

func (p *SSAProgram) Classify(use ssa.Instruction, operand ssa.Value) Use {
	switch inst := use.(type) {
	case *ssa.UnOp:
		if inst.Op == token.MUL && inst.X == operand {
			return Use{Kind: UseLoad}
		}
	case *ssa.Store:
		if inst.Addr == operand {
			return Use{Kind: UseStore}
		}
	case *ssa.FieldAddr:
		if inst.X != operand {
			break
		}
		if st, ok := deref(inst.X.Type()).Underlying().(*types.Struct); ok {
			if off, ok := p.fieldOffset(st, inst.Field); ok {
				return Use{Kind: UseOffset, Offset: off}
			}
		}
	case *ssa.Field:
		if inst.X != operand {
			break
		}
		if st, ok := inst.X.Type().Underlying().(*types.Struct); ok {
			if off, ok := p.fieldOffset(st, inst.Field); ok {
				return Use{Kind: UseOffset, Offset: off}
			}
		}
	case *ssa.IndexAddr:
		// Only *[N]T with a constant index has a static offset; slices do not.
		if inst.X != operand {
			break
		}
		arr, ok := deref(inst.X.Type()).Underlying().(*types.Array)
		if !ok {
			break
		}
		if _, isPtr := inst.X.Type().Underlying().(*types.Pointer); !isPtr {
			break
		}
		c, ok := inst.Index.(*ssa.Const)
		if !ok || c.Value == nil {
			break
		}
		idx, exact := constant.Int64Val(constant.ToInt(c.Value))
		if !exact || idx < 0 {
			break
		}
		return Use{Kind: UseOffset, Offset: idx * p.sizes.Sizeof(arr.Elem())}
	}
	return Use{Kind: UseOther}
}

func (p *SSAProgram) fieldOffset(st *types.Struct, field int) (int64, bool) {
	if field < 0 || field >= st.NumFields() {
		return 0, false
	}
	vars := make([]*types.Var, st.NumFields())
	for i := range vars {
		vars[i] = st.Field(i)
	}
	return p.sizes.Offsetsof(vars)[field], true
}

// deref strips a pointer type to its element, or returns t unchanged.
func deref(t types.Type) types.Type {
	if p, ok := t.Underlying().(*types.Pointer); ok {
		return p.Elem()
	}
	return t
}
