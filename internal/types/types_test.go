package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignableExactMatch(t *testing.T) {
	assert.True(t, Assignable(Uint256, Uint256, false))
	assert.False(t, Assignable(Uint256, BoolT, false))
}

func TestAssignableUnconstrainedLiteral(t *testing.T) {
	// An unconstrained numeric literal fits any numeric destination,
	// regardless of width.
	assert.True(t, Assignable(Uint8, Uint256, true))
	assert.False(t, Assignable(BoolT, Uint256, true))
}

func TestAssignableWideningInteger(t *testing.T) {
	assert.True(t, Assignable(Uint256, Uint8, false))
	assert.False(t, Assignable(Uint8, Uint256, false))
	// Signedness must match even when width would otherwise dominate.
	assert.False(t, Assignable(Elementary(Int, 256), Elementary(Uint, 8), false))
}

func TestAssignableFailureIsUniversal(t *testing.T) {
	assert.True(t, Assignable(Failure, Uint256, false))
	assert.True(t, Assignable(Uint256, Failure, false))
}

func TestCommonNumericWidensToLarger(t *testing.T) {
	got := CommonNumeric(Uint8, Uint256)
	assert.True(t, Equal(got, Uint256))
}

func TestCommonNumericFailureOperandIgnored(t *testing.T) {
	assert.True(t, Equal(CommonNumeric(Failure, Uint256), Uint256))
	assert.True(t, Equal(CommonNumeric(Uint256, Failure), Uint256))
}

func TestEqualStructuralArray(t *testing.T) {
	a := Array(Uint256, 4)
	b := Array(Uint256, 4)
	c := Array(Uint256, 8)
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}

func TestEqualMapping(t *testing.T) {
	a := Mapping(AddressT, Uint256)
	b := Mapping(AddressT, Uint256)
	c := Mapping(AddressT, BoolT)
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}

func TestIsDynamic(t *testing.T) {
	assert.True(t, BytesDyn.IsDynamic())
	assert.False(t, Bytes32.IsDynamic())
	assert.True(t, Array(Uint256, -1).IsDynamic())
	assert.False(t, Array(Uint256, 4).IsDynamic())
}

func TestStringRendering(t *testing.T) {
	assert.Equal(t, "uint256", Uint256.String())
	assert.Equal(t, "address", AddressT.String())
	assert.Equal(t, "mapping<address, uint256>", Mapping(AddressT, Uint256).String())
	assert.Equal(t, "uint256[4]", Array(Uint256, 4).String())
	assert.Equal(t, "uint256[]", Array(Uint256, -1).String())
}
