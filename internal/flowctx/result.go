package flowctx

import (
	"fmt"

	"github.com/specialistvlad/burstflow/internal/expr"
)

// Result is the terminal status of a finished batch.
type Result int

const (
	Success Result = iota
	Failure
	Cancelled
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("Result(%d)", int(r))
}

// ParseResult is the inverse of Result.String.
func ParseResult(s string) (Result, error) {
	switch s {
	case "success":
		return Success, nil
	case "failure":
		return Failure, nil
	case "cancelled":
		return Cancelled, nil
	}
	return 0, fmt.Errorf("unknown result %q", s)
}

func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Result) UnmarshalText(text []byte) error {
	v, err := ParseResult(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// DepCtx is the recorded outcome of one finished prerequisite.
type DepCtx struct {
	Result  Result            `json:"result" yaml:"result"`
	Outputs map[string]string `json:"outputs" yaml:"outputs"`
}

func (d DepCtx) need() expr.Need {
	return expr.Need{Result: expr.Result(d.Result.String()), Outputs: d.Outputs}
}
