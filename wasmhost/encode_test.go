package wasmhost

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tetratelabs/wazero/api"
)

func TestToInt32(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in  float64
		exp int32
	}{
		{in: 0, exp: 0},
		{in: 12.9, exp: 12},
		{in: -3.7, exp: -3},
		{in: 1 << 31, exp: math.MinInt32},
		{in: 1<<32 + 5, exp: 5},
		{in: -(1 << 32) - 1, exp: -1},
		{in: math.NaN(), exp: 0},
		{in: math.Inf(1), exp: 0},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.exp, toInt32(tc.in), "toInt32(%v)", tc.in)
	}
}

func TestEncodeParams(t *testing.T) {
	t.Parallel()

	types := []api.ValueType{api.ValueTypeI32, api.ValueTypeF64, api.ValueTypeI64}

	params := encodeParams(types, []float64{-1.5})
	assert.Equal(t, []uint64{api.EncodeI32(-1), api.EncodeF64(0), api.EncodeI64(0)}, params)

	params = encodeParams(types[:1], []float64{7, 8, 9})
	assert.Equal(t, []uint64{api.EncodeI32(7)}, params)

	params = encodeParams([]api.ValueType{api.ValueTypeF32}, []float64{0.5})
	assert.Equal(t, 0.5, float64(api.DecodeF32(params[0])))

	assert.Equal(t, int64(math.MaxInt64), toInt64(1e300))
	assert.Equal(t, int64(-2), toInt64(-2.9))
}
