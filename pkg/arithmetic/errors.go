package arithmetic

import (
	"fmt"

	"github.com/pkg/errors"

	"ndarith/pkg/collapse"
	"ndarith/pkg/filter"
	"ndarith/pkg/morphology"
)

// User errors. Evaluate wraps them with the position of the offending
// token; match them with errors.Is.
var (
	ErrNotEnoughOperands = errors.New("not enough operands")
	ErrTooManyOperands   = errors.New("too many operands")
	ErrNothingToOutput   = errors.New("nothing to output")
	ErrBadOperand        = errors.New("bad operand")
	ErrUnknownToken      = errors.New("unknown token")

	ErrBadAxis         = collapse.ErrAxis
	ErrBadConnectivity = morphology.ErrConnectivity
	ErrWindowTooLarge  = filter.ErrWindowTooLarge
)

// InternalError reports a defect in ndarith rather than in the expression.
type InternalError struct {
	Op  string
	Msg string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %s. This is a bug in ndarith, please report it along with the expression that triggered it",
		e.Op, e.Msg)
}
