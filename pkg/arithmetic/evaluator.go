// Package arithmetic evaluates reverse Polish expressions over datasets.
//
// An expression is a flat list of tokens read left to right. Numbers are
// pushed as one-element datasets, operators pop their operands and push
// their results, `set-NAME` binds the top of the stack to NAME, and any
// other token is a reference that the configured Loader resolves when it
// is first used:
//
//	a.txt b.txt + 2 /                  mean of two files
//	img.txt set-i i i 0 gt where       keep positive values only
//	5 4 img.txt filter-median          5x4 median filter
//	cube.txt 3 0.2 3 collapse-sigclip-mean
//	a b c 3 median                     element-wise median of three inputs
//
// Operators pop their parameters before the dataset they work on, so
// parameters are written after it. Filters are the exception: the dataset
// is popped first and the window lengths, one per dimension in axis
// order, precede it.
package arithmetic

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"ndarith/pkg/collapse"
	"ndarith/pkg/dataset"
)

// Loader resolves tokens that are neither numbers, variables nor
// operators into datasets.
type Loader interface {
	Load(name string) (*dataset.Dataset, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(name string) (*dataset.Dataset, error)

// Load calls f(name).
func (f LoaderFunc) Load(name string) (*dataset.Dataset, error) { return f(name) }

// Option configures Evaluate.
type Option func(*options)

type options struct {
	multipleOutputs bool
	threads         int
	quiet           bool
	loader          Loader
	fill            collapse.FillParams
	logger          *slog.Logger
}

// WithMultipleOutputs allows more than one dataset to remain on the stack.
func WithMultipleOutputs(allow bool) Option {
	return func(o *options) { o.multipleOutputs = allow }
}

// WithThreads sets the number of workers used by every operator; zero
// means one per CPU.
func WithThreads(n int) Option {
	return func(o *options) { o.threads = n }
}

// WithQuiet suppresses warnings.
func WithQuiet(quiet bool) Option {
	return func(o *options) { o.quiet = quiet }
}

// WithLoader sets how references to datasets are resolved.
func WithLoader(l Loader) Option {
	return func(o *options) { o.loader = l }
}

// WithFillParams tunes the fill variants of the collapse operators.
func WithFillParams(p collapse.FillParams) Option {
	return func(o *options) { o.fill = p }
}

// WithLogger replaces the logger used for progress messages.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// operand is a stack entry: a dataset, or a reference not loaded yet.
type operand struct {
	data *dataset.Dataset
	ref  string
}

// evaluation holds the state of one Evaluate call.
type evaluation struct {
	stack []operand
	vars  map[string]*dataset.Dataset
	opts  options
	log   *slog.Logger
}

// Tokenize splits an expression on white space.
func Tokenize(expression string) []string {
	return strings.Fields(expression)
}

// Evaluate runs the expression and returns the datasets left on the stack,
// bottom first. Unless multiple outputs are allowed exactly one must
// remain.
func Evaluate(tokens []string, opts ...Option) ([]*dataset.Dataset, error) {
	e := &evaluation{
		vars: make(map[string]*dataset.Dataset),
		opts: options{fill: collapse.DefaultFillParams()},
	}
	for _, opt := range opts {
		opt(&e.opts)
	}
	e.log = e.opts.logger
	if e.log == nil {
		e.log = slog.Default()
	}
	e.log = e.log.With(slog.String("component", "arithmetic"))

	for i, tok := range tokens {
		if err := e.step(tok); err != nil {
			return nil, errors.Wrapf(err, "token %d (%s)", i+1, tok)
		}
	}
	return e.finish()
}

func (e *evaluation) step(tok string) error {
	if d, ok := parseLiteral(tok); ok {
		e.push(d)
		return nil
	}
	if name, ok := strings.CutPrefix(tok, "set-"); ok {
		return e.bind(name)
	}
	if v, ok := e.vars[tok]; ok {
		e.push(v.Copy())
		return nil
	}
	if op, ok := Lookup(tok); ok {
		return e.apply(op)
	}
	e.stack = append(e.stack, operand{ref: tok})
	return nil
}

func (e *evaluation) apply(op Operator) error {
	if n := op.Arity(); n > 0 && len(e.stack) < int(n) {
		return errors.Wrapf(ErrNotEnoughOperands, "%s needs %d, %d available", op, n, len(e.stack))
	}
	h, ok := handlers[op]
	if !ok {
		return &InternalError{Op: op.String(), Msg: "operator has no implementation"}
	}
	if err := h(e, op); err != nil {
		return errors.Wrap(err, op.String())
	}
	if len(e.stack) > 0 {
		if top := e.stack[len(e.stack)-1].data; top != nil {
			e.log.Debug("applied operator", slog.String("operator", op.String()), slog.String("result", top.String()))
		}
	}
	return nil
}

// bind pops the top of the stack into a variable. Later uses get their
// own copy, so nothing done to one use can leak into another.
func (e *evaluation) bind(name string) error {
	if name == "" {
		return errors.Wrap(ErrBadOperand, "empty variable name")
	}
	d, err := e.pop()
	if err != nil {
		return errors.Wrapf(err, "set-%s", name)
	}
	e.vars[name] = d.Copy()
	e.log.Debug("bound variable", slog.String("name", name), slog.String("value", d.String()))
	return nil
}

func (e *evaluation) finish() ([]*dataset.Dataset, error) {
	switch n := len(e.stack); {
	case n == 0:
		return nil, ErrNothingToOutput
	case n > 1 && !e.opts.multipleOutputs:
		return nil, errors.Wrapf(ErrTooManyOperands, "%d operands left on the stack", n)
	}
	out := make([]*dataset.Dataset, len(e.stack))
	for i, o := range e.stack {
		d, err := e.resolve(o)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func (e *evaluation) push(d *dataset.Dataset) {
	e.stack = append(e.stack, operand{data: d})
}

// pop removes the top operand, loading it if needed.
func (e *evaluation) pop() (*dataset.Dataset, error) {
	if len(e.stack) == 0 {
		return nil, ErrNotEnoughOperands
	}
	top := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return e.resolve(top)
}

func (e *evaluation) resolve(o operand) (*dataset.Dataset, error) {
	if o.data != nil {
		return o.data, nil
	}
	if e.opts.loader == nil {
		return nil, errors.Wrapf(ErrUnknownToken, "%q is not a number, variable or operator", o.ref)
	}
	d, err := e.opts.loader.Load(o.ref)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", o.ref)
	}
	if err := d.Validate(); err != nil {
		return nil, errors.Wrapf(err, "loading %s", o.ref)
	}
	return d, nil
}

// popList pops k datasets and returns them in the order they were written.
func (e *evaluation) popList(k int) ([]*dataset.Dataset, error) {
	list := make([]*dataset.Dataset, k)
	for i := k - 1; i >= 0; i-- {
		d, err := e.pop()
		if err != nil {
			return nil, err
		}
		list[i] = d
	}
	return list, nil
}

// popScalar pops a single, non-blank value.
func (e *evaluation) popScalar(what string) (float64, dataset.Type, error) {
	d, err := e.pop()
	if err != nil {
		return 0, 0, errors.Wrap(err, what)
	}
	if d.Size() != 1 {
		return 0, 0, errors.Wrapf(ErrBadOperand, "%s must be a single value, got %s", what, d)
	}
	if d.IsBlank(0) {
		return 0, 0, errors.Wrapf(ErrBadOperand, "%s is blank", what)
	}
	return d.Float64(0), d.Type, nil
}

func (e *evaluation) popInt(what string) (int, error) {
	v, t, err := e.popScalar(what)
	if err != nil {
		return 0, err
	}
	if !t.IsInteger() {
		return 0, errors.Wrapf(ErrBadOperand, "%s must be an integer, got %s %g", what, t, v)
	}
	return int(v), nil
}

// popCount pops the operand count of a variable arity operator.
func (e *evaluation) popCount() (int, error) {
	k, err := e.popInt("operand count")
	if err != nil {
		return 0, err
	}
	if k <= 0 {
		return 0, errors.Wrapf(ErrBadOperand, "operand count must be positive, got %d", k)
	}
	return k, nil
}

func (e *evaluation) popPositive(what string) (float64, error) {
	v, _, err := e.popScalar(what)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, errors.Wrapf(ErrBadOperand, "%s must be positive, got %g", what, v)
	}
	return v, nil
}

// parseLiteral reads a number token. Integers get the smallest integer
// type that holds them, other numbers float64, or float32 with an `f`
// suffix.
func parseLiteral(tok string) (*dataset.Dataset, bool) {
	if num, ok := strings.CutSuffix(tok, "f"); ok && num != "" {
		v, err := strconv.ParseFloat(num, 32)
		if err != nil {
			return nil, false
		}
		return dataset.FromSlice([]int{1}, []float32{float32(v)}), true
	}
	if v, err := strconv.ParseInt(tok, 10, 64); err == nil {
		if t := dataset.SmallestInteger(v); t != dataset.Int64 {
			return dataset.Scalar(t, float64(v)), true
		}
		return dataset.FromSlice([]int{1}, []int64{v}), true
	}
	if v, err := strconv.ParseUint(tok, 10, 64); err == nil {
		return dataset.FromSlice([]int{1}, []uint64{v}), true
	}
	if v, err := strconv.ParseFloat(tok, 64); err == nil {
		return dataset.FromSlice([]int{1}, []float64{v}), true
	}
	return nil, false
}
