package expression

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestComparisonTotalityProperty checks that for any pair of numbers,
// exactly one of <, ==, > holds, and the evaluator agrees with Go.
func TestComparisonTotalityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("numeric comparison agrees with Go", prop.ForAll(
		func(a, b int) bool {
			r := newTestResolver(map[string]any{"a": float64(a), "b": float64(b)})
			lt, err := Evaluate("a < b", r)
			if err != nil {
				return false
			}
			eq, err := Evaluate("a == b", r)
			if err != nil {
				return false
			}
			gt, err := Evaluate("a > b", r)
			if err != nil {
				return false
			}
			ones := 0
			for _, v := range []bool{lt, eq, gt} {
				if v {
					ones++
				}
			}
			return ones == 1 && lt == (a < b) && eq == (a == b) && gt == (a > b)
		},
		gen.Int(),
		gen.Int(),
	))

	properties.TestingRun(t)
}

// TestNegationInvolutionProperty checks that double negation restores
// the original result for arbitrary guard shapes.
func TestNegationInvolutionProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("not not e == e", prop.ForAll(
		func(v int, threshold int) bool {
			r := newTestResolver(map[string]any{"v": float64(v)})
			expr := fmt.Sprintf("v > %d", threshold)
			plain, err := Evaluate(expr, r)
			if err != nil {
				return false
			}
			doubled, err := Evaluate("!(!("+expr+"))", r)
			if err != nil {
				return false
			}
			return plain == doubled
		},
		gen.IntRange(-1000, 1000),
		gen.IntRange(-1000, 1000),
	))

	properties.TestingRun(t)
}

// TestLogicalLawsProperty checks De Morgan over generated truth values.
func TestLogicalLawsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("De Morgan holds", prop.ForAll(
		func(a, b bool) bool {
			r := newTestResolver(map[string]any{"a": a, "b": b})
			left, err := Evaluate("!(a == true && b == true)", r)
			if err != nil {
				return false
			}
			right, err := Evaluate("!(a == true) || !(b == true)", r)
			if err != nil {
				return false
			}
			return left == right && left == !(a && b)
		},
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
