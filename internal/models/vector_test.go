package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorLiteral(t *testing.T) {
	v := Vector{1, -0.5, 0.25}
	assert.Equal(t, "[1,-0.5,0.25]", v.String())

	val, err := v.Value()
	require.NoError(t, err)
	assert.Equal(t, "[1,-0.5,0.25]", val)
}

func TestVectorScanRoundTrip(t *testing.T) {
	orig := Vector{0.125, -1, 3.5}

	var scanned Vector
	require.NoError(t, scanned.Scan(orig.String()))
	assert.Equal(t, orig, scanned)

	var fromBytes Vector
	require.NoError(t, fromBytes.Scan([]byte("[2,4]")))
	assert.Equal(t, Vector{2, 4}, fromBytes)
}

func TestVectorScanEdgeCases(t *testing.T) {
	var v Vector
	require.NoError(t, v.Scan(nil))
	assert.Nil(t, v)

	require.NoError(t, v.Scan("[]"))
	assert.Empty(t, v)

	assert.Error(t, v.Scan(42))
	assert.Error(t, v.Scan("[1,oops]"))
}
