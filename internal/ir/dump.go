package ir

import (
	"fmt"
	"strings"
)

// Dump renders a Program as human-readable text, the way the `emit-ir`
// subcommand shows it on the CLI. It is intentionally simple (no column alignment)
// since its only consumer is a debugging aid, not another compiler phase.
func Dump(p *Program) string {
	var b strings.Builder
	for _, f := range p.Functions {
		fmt.Fprintf(&b, "func %s(", f.Name)
		for i, param := range f.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s %s", param.Name, param.Type.String())
		}
		fmt.Fprintf(&b, ") %s {\n", f.ReturnType.String())
		for _, block := range f.Blocks {
			fmt.Fprintf(&b, "%s:\n", block.Label)
			for _, phi := range block.Phis {
				fmt.Fprintf(&b, "  %s = phi(", phi.Dst.String())
				for i, e := range phi.Edges {
					if i > 0 {
						b.WriteString(", ")
					}
					fmt.Fprintf(&b, "%s: %s", e.Pred.Label, e.Val.String())
				}
				b.WriteString(")\n")
			}
			for _, instr := range block.Instructions {
				dumpInstr(&b, instr)
			}
			dumpTerm(&b, block.Terminator)
		}
		b.WriteString("}\n")
	}
	return b.String()
}

func dumpInstr(b *strings.Builder, instr Instruction) {
	res := instr.Result()
	prefix := "  "
	if res != nil {
		prefix = fmt.Sprintf("  %s = ", res.String())
	}
	fmt.Fprintf(b, "%s%T(%s)\n", prefix, instr, joinOperands(instr.Operands()))
}

func dumpTerm(b *strings.Builder, t Terminator) {
	if t == nil {
		b.WriteString("  <missing terminator>\n")
		return
	}
	switch v := t.(type) {
	case *Jump:
		fmt.Fprintf(b, "  jump %s\n", v.Target.Label)
	case *Branch:
		fmt.Fprintf(b, "  branch %s, %s, %s\n", v.Cond.String(), v.Then.Label, v.Else.Label)
	case *Return:
		if v.Val == nil {
			b.WriteString("  return\n")
		} else {
			fmt.Fprintf(b, "  return %s\n", v.Val.String())
		}
	case *Raise:
		fmt.Fprintf(b, "  raise %s -> %s\n", v.Val.String(), v.HandlerLabel)
	default:
		fmt.Fprintf(b, "  %T\n", t)
	}
}

func joinOperands(vs []*Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}
