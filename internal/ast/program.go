package ast

// Program is the root of a BUG contract: a name, an ordered list of
// top-level declarations, an optional constructor block and an
// optional runtime body block.
//
// Example:
//
//	name Counter;
//	storage { [0] count: uint256; }
//	code { count = count + 1; }
type Program struct {
	base
	Name         string
	Declarations []Declaration
	Create       *Block
	Body         *Block
}

func (p *Program) NodeType() NodeType { return NodeProgram }
