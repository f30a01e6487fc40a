package expression

// Node is one node of a parsed expression.
type Node interface {
	node()
}

// LiteralNode holds a constant value.
type LiteralNode struct {
	Value any
}

// PathNode references a variable by path: the variable id followed by
// zero or more .field or [index] dereferences.
type PathNode struct {
	Path string
}

// ComparisonNode compares two operands.
type ComparisonNode struct {
	Op    TokenType // TokenEQ..TokenGE
	Left  Node
	Right Node
}

// LogicalNode connects two boolean operands with AND or OR.
type LogicalNode struct {
	Op    TokenType // TokenAND or TokenOR
	Left  Node
	Right Node
}

// NotNode negates its operand.
type NotNode struct {
	Operand Node
}

func (*LiteralNode) node()    {}
func (*PathNode) node()       {}
func (*ComparisonNode) node() {}
func (*LogicalNode) node()    {}
func (*NotNode) node()        {}
