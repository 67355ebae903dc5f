package ir

import "fmt"

// WellFormednessError describes a single violation found by Verify.
type WellFormednessError struct {
	Function string
	Block    string
	Message  string
}

func (e *WellFormednessError) Error() string {
	return fmt.Sprintf("%s/%s: %s", e.Function, e.Block, e.Message)
}

// Verify checks the structural invariants §8 requires of every function's
// IR: each block has exactly one terminator, and every Phi's arity equals
// its block's predecessor count. It does not verify dominance of operands
// (left to the optimizer passes that depend on it, e.g. LICM).
func Verify(p *Program) []error {
	var errs []error
	for _, f := range p.Functions {
		for _, b := range f.Blocks {
			if b.Terminator == nil {
				errs = append(errs, &WellFormednessError{f.Name, b.Label, "missing terminator"})
				continue
			}
			for _, phi := range b.Phis {
				if len(phi.Edges) != len(b.Preds) {
					errs = append(errs, &WellFormednessError{
						f.Name, b.Label,
						fmt.Sprintf("phi %s has %d edges, block has %d predecessors",
							phi.Dst.String(), len(phi.Edges), len(b.Preds)),
					})
				}
				for _, e := range phi.Edges {
					found := false
					for _, p := range b.Preds {
						if p == e.Pred {
							found = true
							break
						}
					}
					if !found {
						errs = append(errs, &WellFormednessError{
							f.Name, b.Label, "phi edge references a non-predecessor block",
						})
					}
				}
			}
		}
	}
	return errs
}
