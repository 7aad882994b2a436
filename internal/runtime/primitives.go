package runtime

import (
	"fmt"
	"io"
	"math"
	"time"
)

// Primitives are the handful of builtins the original runtime.cc exposes
// as `extern "C"` functions (mvs_print_i64, mvs_print_f64, mvs_sqrt,
// mvs_uptime_nanoseconds) and that internal/interp wires up as the callee
// for the corresponding built-in names a program can reference.
type Primitives struct {
	Out  io.Writer
	boot time.Time
}

// NewPrimitives returns a Primitives bound to w for print_i64/print_f64's
// output, with uptime measured from the moment of construction (the
// closest hosted equivalent of "since boot").
func NewPrimitives(w io.Writer) *Primitives {
	return &Primitives{Out: w, boot: time.Now()}
}

func (p *Primitives) PrintI64(v int64) {
	fmt.Fprintf(p.Out, "%d\n", v)
}

func (p *Primitives) PrintF64(v float64) {
	fmt.Fprintf(p.Out, "%f\n", v)
}

func (p *Primitives) Sqrt(v float64) float64 {
	return math.Sqrt(v)
}

func (p *Primitives) UptimeNanoseconds() float64 {
	return float64(time.Since(p.boot).Nanoseconds())
}
