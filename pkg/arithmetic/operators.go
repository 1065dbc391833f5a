package arithmetic

import (
	"sort"

	"ndarith/pkg/collapse"
	"ndarith/pkg/dataset"
	"ndarith/pkg/filter"
	"ndarith/pkg/statistics"
)

// Operator identifies one entry of the operator vocabulary.
type Operator int

// Arity is the number of operands an operator pops. Negative values mark
// operators whose operand count is read from the stack.
type Arity int

const (
	// ArityVariable operators pop their fixed parameters, then a count k,
	// then k datasets.
	ArityVariable Arity = -1
	// ArityWindow operators pop the main dataset first, then one window
	// length per dimension of it.
	ArityWindow Arity = -2
)

// handler pops the operands of op from e and pushes its results.
type handler func(e *evaluation, op Operator) error

type descriptor struct {
	name  string
	arity Arity
}

var (
	descriptors []descriptor
	byName      = map[string]Operator{}
	handlers    = map[Operator]handler{}
)

func register(name string, arity Arity, h handler) Operator {
	op := Operator(len(descriptors))
	descriptors = append(descriptors, descriptor{name: name, arity: arity})
	byName[name] = op
	handlers[op] = h
	return op
}

// Lookup returns the operator with the given name.
func Lookup(name string) (Operator, bool) {
	op, ok := byName[name]
	return op, ok
}

// Operators returns every operator name, sorted.
func Operators() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (op Operator) String() string {
	if op < 0 || int(op) >= len(descriptors) {
		return "unknown-operator"
	}
	return descriptors[op].name
}

// Arity returns how many operands op pops.
func (op Operator) Arity() Arity {
	if op < 0 || int(op) >= len(descriptors) {
		return 0
	}
	return descriptors[op].arity
}

var castTypes = []dataset.Type{
	dataset.Uint8, dataset.Int8, dataset.Uint16, dataset.Int16, dataset.Uint32,
	dataset.Int32, dataset.Uint64, dataset.Int64, dataset.Float32, dataset.Float64,
}

var clipModes = []statistics.ClipMode{statistics.SigmaClip, statistics.MADClip}

var clipStatistics = []struct {
	name string
	stat collapse.Statistic
}{
	{"mean", collapse.ClipMean},
	{"median", collapse.ClipMedian},
	{"std", collapse.ClipStd},
	{"mad", collapse.ClipMAD},
	{"number", collapse.ClipNumber},
}

var simpleStatistics = []struct {
	name string
	stat collapse.Statistic
}{
	{"sum", collapse.Sum},
	{"mean", collapse.Mean},
	{"number", collapse.Number},
	{"min", collapse.Min},
	{"max", collapse.Max},
	{"median", collapse.Median},
	{"std", collapse.Std},
}

func init() {
	for _, b := range binaryOps {
		register(b.name, 2, binaryHandler(b))
	}
	for _, u := range unaryOps {
		register(u.name, 1, unaryHandler(u))
	}
	register("where", 3, whereHandler)
	register("swap", 2, swapHandler)
	for _, t := range castTypes {
		register(t.String(), 1, castHandler(t))
	}

	register("filter-median", ArityWindow, filterHandler(filter.Median))
	register("filter-mean", ArityWindow, filterHandler(filter.Mean))
	register("filter-sigclip-mean", ArityWindow, filterHandler(filter.SigmaClipMean))
	register("filter-sigclip-median", ArityWindow, filterHandler(filter.SigmaClipMedian))

	register("erode", 2, morphologyHandler(erode))
	register("dilate", 2, morphologyHandler(dilate))
	register("fill-holes", 2, morphologyHandler(fillHoles))
	register("number-neighbors", 2, morphologyHandler(countNeighbors))
	register("connected-components", 2, morphologyHandler(connectedComponents))

	for _, s := range simpleStatistics {
		register("collapse-"+s.name, 2, collapseHandler(s.stat, 0, false))
		register(s.name, ArityVariable, stackHandler(s.stat, 0))
	}
	for _, mode := range clipModes {
		for _, s := range clipStatistics {
			name := mode.String() + "-" + s.name
			register("collapse-"+name, 4, collapseHandler(s.stat, mode, false))
			register("collapse-"+name+"-fill", 4, collapseHandler(s.stat, mode, true))
			register(name, ArityVariable, stackHandler(s.stat, mode))
		}
	}
	register("stitch", ArityVariable, stitchHandler)
}
