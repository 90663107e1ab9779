package hasher

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintRendering(t *testing.T) {
	f := Fingerprint{Hi: 1, Lo: 2}
	assert.Equal(t, "18446744073709551618", f.String())
	assert.Equal(t, "00000000000000010000000000000002", f.Hex())
	assert.Equal(t, [16]byte{7: 1, 15: 2}, f.Bytes())

	top := Fingerprint{Hi: math.MaxUint64, Lo: math.MaxUint64}
	assert.Equal(t, "340282366920938463463374607431768211455", top.String())
}

func TestParseFingerprint(t *testing.T) {
	for _, f := range []Fingerprint{{}, {Lo: 42}, {Hi: 1, Lo: 2}, {Hi: math.MaxUint64, Lo: math.MaxUint64}} {
		got, err := ParseFingerprint(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	for _, bad := range []string{"", "-1", "abc", "340282366920938463463374607431768211456"} {
		_, err := ParseFingerprint(bad)
		assert.Error(t, err, bad)
	}
}
