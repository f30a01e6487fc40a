package expression

import (
	"fmt"
	"strings"
)

// Evaluate parses and evaluates a guard expression to a boolean. Paths
// that do not resolve behave as absent values: comparisons against them
// are false except != against a present value.
func Evaluate(expr string, r *Resolver) (bool, error) {
	node, err := Parse(expr)
	if err != nil {
		return false, err
	}
	v, err := evalNode(expr, node, r)
	if err != nil {
		return false, err
	}
	return toBool(expr, v)
}

func evalNode(expr string, node Node, r *Resolver) (any, error) {
	switch n := node.(type) {
	case *LiteralNode:
		return n.Value, nil
	case *PathNode:
		v, _, _, err := r.ResolvePath(n.Path)
		return v, err
	case *ComparisonNode:
		left, err := evalNode(expr, n.Left, r)
		if err != nil {
			return nil, err
		}
		right, err := evalNode(expr, n.Right, r)
		if err != nil {
			return nil, err
		}
		return compare(n.Op, left, right), nil
	case *LogicalNode:
		left, err := evalNode(expr, n.Left, r)
		if err != nil {
			return nil, err
		}
		lb, err := toBool(expr, left)
		if err != nil {
			return nil, err
		}
		// Short circuit.
		if n.Op == TokenAND && !lb {
			return false, nil
		}
		if n.Op == TokenOR && lb {
			return true, nil
		}
		right, err := evalNode(expr, n.Right, r)
		if err != nil {
			return nil, err
		}
		return toBool(expr, right)
	case *NotNode:
		v, err := evalNode(expr, n.Operand, r)
		if err != nil {
			return nil, err
		}
		b, err := toBool(expr, v)
		if err != nil {
			return nil, err
		}
		return !b, nil
	default:
		return nil, &EvalError{Expr: expr, Message: fmt.Sprintf("unknown node type %T", node)}
	}
}

func compare(op TokenType, left, right any) bool {
	if left == nil || right == nil {
		switch op {
		case TokenEQ:
			return left == nil && right == nil
		case TokenNE:
			return (left == nil) != (right == nil)
		default:
			return false
		}
	}

	if lf, lok := toFloat(left); lok {
		if rf, rok := toFloat(right); rok {
			switch op {
			case TokenEQ:
				return lf == rf
			case TokenNE:
				return lf != rf
			case TokenLT:
				return lf < rf
			case TokenGT:
				return lf > rf
			case TokenLE:
				return lf <= rf
			case TokenGE:
				return lf >= rf
			}
		}
	}

	ls := fmt.Sprintf("%v", left)
	rs := fmt.Sprintf("%v", right)
	switch op {
	case TokenEQ:
		return ls == rs
	case TokenNE:
		return ls != rs
	case TokenLT:
		return ls < rs
	case TokenGT:
		return ls > rs
	case TokenLE:
		return ls <= rs
	case TokenGE:
		return ls >= rs
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toBool(expr string, v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case nil:
		return false, nil
	case string:
		switch strings.ToLower(b) {
		case "true":
			return true, nil
		case "false", "":
			return false, nil
		}
	}
	if f, ok := toFloat(v); ok {
		return f != 0, nil
	}
	return false, &EvalError{Expr: expr, Message: fmt.Sprintf("not a boolean: %v", v)}
}
