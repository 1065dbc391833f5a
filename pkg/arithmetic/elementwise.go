package arithmetic

import (
	"math"

	"github.com/pkg/errors"

	"ndarith/pkg/dataset"
	"ndarith/pkg/parallel"
)

// resultKind decides the output type of an element-wise operator.
type resultKind int

const (
	promoted resultKind = iota // widest operand type
	floating                   // widest operand type if float, else float64
	boolean                    // uint8 holding 0 or 1
	same                       // type of the (only) operand
)

func (k resultKind) outType(a, b dataset.Type) dataset.Type {
	switch k {
	case boolean:
		return dataset.Uint8
	case same:
		return a
	case floating:
		if t := dataset.Promote(a, b); t.IsFloat() {
			return t
		}
		return dataset.Float64
	}
	return dataset.Promote(a, b)
}

// elementOp is an element-wise operator. Blank operands give blank results,
// except for boolean operators where they count as false.
type elementOp struct {
	name string
	kind resultKind
	fn   func(a, b float64) float64
	// blankAware operators see blank operands as NaN instead.
	blankAware bool
}

func truth(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

var binaryOps = []elementOp{
	{name: "+", kind: promoted, fn: func(a, b float64) float64 { return a + b }},
	{name: "-", kind: promoted, fn: func(a, b float64) float64 { return a - b }},
	{name: "x", kind: promoted, fn: func(a, b float64) float64 { return a * b }},
	{name: "/", kind: floating, fn: func(a, b float64) float64 { return a / b }},
	{name: "%", kind: promoted, fn: math.Mod},
	{name: "pow", kind: floating, fn: math.Pow},
	{name: "lt", kind: boolean, fn: func(a, b float64) float64 { return truth(a < b) }},
	{name: "le", kind: boolean, fn: func(a, b float64) float64 { return truth(a <= b) }},
	{name: "gt", kind: boolean, fn: func(a, b float64) float64 { return truth(a > b) }},
	{name: "ge", kind: boolean, fn: func(a, b float64) float64 { return truth(a >= b) }},
	{name: "eq", kind: boolean, fn: func(a, b float64) float64 { return truth(a == b) }},
	{name: "ne", kind: boolean, fn: func(a, b float64) float64 { return truth(a != b) }},
	{name: "and", kind: boolean, fn: func(a, b float64) float64 { return truth(a != 0 && b != 0) }},
	{name: "or", kind: boolean, fn: func(a, b float64) float64 { return truth(a != 0 || b != 0) }},
}

var unaryOps = []elementOp{
	{name: "abs", kind: same, fn: func(a, _ float64) float64 { return math.Abs(a) }},
	{name: "sqrt", kind: floating, fn: func(a, _ float64) float64 { return math.Sqrt(a) }},
	{name: "log", kind: floating, fn: func(a, _ float64) float64 { return math.Log(a) }},
	{name: "log10", kind: floating, fn: func(a, _ float64) float64 { return math.Log10(a) }},
	{name: "not", kind: boolean, fn: func(a, _ float64) float64 { return truth(a == 0) }},
	{name: "isblank", kind: boolean, blankAware: true, fn: func(a, _ float64) float64 { return truth(math.IsNaN(a)) }},
}

// eval applies the operator to one pair of values.
func (op elementOp) eval(a, b float64) float64 {
	if !op.blankAware && op.kind == boolean && (math.IsNaN(a) || math.IsNaN(b)) {
		return 0
	}
	return op.fn(a, b)
}

// broadcast returns the shape of combining a and b, which must agree in
// shape unless one of them is a single element.
func broadcast(a, b *dataset.Dataset) (*dataset.Dataset, error) {
	switch {
	case a.SameShape(b), b.IsScalar():
		return a, nil
	case a.IsScalar():
		return b, nil
	}
	return nil, errors.Wrapf(dataset.ErrShapeMismatch, "%s and %s", a, b)
}

// combine evaluates op for every element of a and b in parallel.
func combine(a, b *dataset.Dataset, op elementOp, threads int) (*dataset.Dataset, error) {
	ref, err := broadcast(a, b)
	if err != nil {
		return nil, err
	}
	av, bv := a.Float64s(), b.Float64s()
	n := ref.Size()
	res := make([]float64, n)
	parallel.Run(n, threads, func(start, end int) {
		for i := start; i < end; i++ {
			res[i] = op.eval(av[min(i, len(av)-1)], bv[min(i, len(bv)-1)])
		}
	})
	out := dataset.FromFloat64s(op.kind.outType(a.Type, b.Type), ref.Shape, res)
	out.CopyMetadata(ref)
	return out, nil
}

func binaryHandler(op elementOp) handler {
	return func(e *evaluation, _ Operator) error {
		b, err := e.pop()
		if err != nil {
			return err
		}
		a, err := e.pop()
		if err != nil {
			return err
		}
		out, err := combine(a, b, op, e.opts.threads)
		if err != nil {
			return err
		}
		e.push(out)
		return nil
	}
}

func unaryHandler(op elementOp) handler {
	return func(e *evaluation, _ Operator) error {
		a, err := e.pop()
		if err != nil {
			return err
		}
		out, err := combine(a, a, op, e.opts.threads)
		if err != nil {
			return err
		}
		e.push(out)
		return nil
	}
}

// whereHandler implements `in condition value where`: elements of in whose
// condition is true (non-zero and not blank) are replaced by value.
func whereHandler(e *evaluation, _ Operator) error {
	value, err := e.pop()
	if err != nil {
		return err
	}
	cond, err := e.pop()
	if err != nil {
		return err
	}
	in, err := e.pop()
	if err != nil {
		return err
	}
	if !cond.SameShape(in) && !cond.IsScalar() {
		return errors.Wrapf(dataset.ErrShapeMismatch, "condition %s for %s", cond, in)
	}
	if !value.SameShape(in) && !value.IsScalar() {
		return errors.Wrapf(dataset.ErrShapeMismatch, "value %s for %s", value, in)
	}

	iv, cv, vv := in.Float64s(), cond.Float64s(), value.Float64s()
	parallel.Run(len(iv), e.opts.threads, func(start, end int) {
		for i := start; i < end; i++ {
			if c := cv[min(i, len(cv)-1)]; c != 0 && !math.IsNaN(c) {
				iv[i] = vv[min(i, len(vv)-1)]
			}
		}
	})
	out := dataset.FromFloat64s(in.Type, in.Shape, iv)
	out.CopyMetadata(in)
	e.push(out)
	return nil
}

// swapHandler exchanges the two top operands without loading them.
func swapHandler(e *evaluation, _ Operator) error {
	n := len(e.stack)
	e.stack[n-1], e.stack[n-2] = e.stack[n-2], e.stack[n-1]
	return nil
}

func castHandler(t dataset.Type) handler {
	return func(e *evaluation, _ Operator) error {
		d, err := e.pop()
		if err != nil {
			return err
		}
		e.push(d.Convert(t))
		return nil
	}
}
