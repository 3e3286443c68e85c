package ir

import (
	"math/big"
	"strconv"
	"strings"

	"bugc/internal/ast"
	"bugc/internal/types"
)

var wordModulus = new(big.Int).Lsh(big.NewInt(1), 256)

// WrapWord reduces a value modulo 2^256, the wraparound semantics
// spec.md §4.3 pass 1 requires for folded 256-bit arithmetic.
func WrapWord(v *big.Int) *big.Int {
	r := new(big.Int).Mod(v, wordModulus)
	if r.Sign() < 0 {
		r.Add(r, wordModulus)
	}
	return r
}

func IntConst(v int64, t *types.Type) Const {
	return Const{Type: t, Word: WrapWord(big.NewInt(v))}
}

func BoolConst(v bool) Const {
	w := big.NewInt(0)
	if v {
		w = big.NewInt(1)
	}
	return Const{Type: types.BoolT, Word: w}
}

// LiteralConst converts a parsed ast.LiteralExpr into its constant IR
// representation, given its checked semantic type.
func LiteralConst(lit *ast.LiteralExpr, t *types.Type) Const {
	switch lit.Kind {
	case ast.LitNumber:
		n := new(big.Int)
		n.SetString(lit.Value, 10)
		return Const{Type: t, Word: WrapWord(n)}
	case ast.LitBoolean:
		return BoolConst(lit.Value == "true")
	case ast.LitAddress:
		n := new(big.Int)
		n.SetString(strings.TrimPrefix(lit.Value, "0x"), 16)
		return Const{Type: t, Word: WrapWord(n)}
	case ast.LitHex:
		hexStr := strings.TrimPrefix(lit.Value, "0x")
		if len(hexStr)%2 == 1 {
			hexStr = "0" + hexStr
		}
		raw := make([]byte, len(hexStr)/2)
		for i := 0; i < len(raw); i++ {
			b, _ := strconv.ParseUint(hexStr[i*2:i*2+2], 16, 8)
			raw[i] = byte(b)
		}
		if t != nil && t.Bits > 0 && t.Bits <= 32 {
			n := new(big.Int).SetBytes(raw)
			return Const{Type: t, Word: n}
		}
		return Const{Type: t, Bytes: raw}
	case ast.LitString:
		return Const{Type: t, Bytes: []byte(lit.Value)}
	default:
		return Const{Type: t, Word: big.NewInt(0)}
	}
}
