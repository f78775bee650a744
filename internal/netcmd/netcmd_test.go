package netcmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronesim/internal/shared"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, m := range []shared.Mode{shared.Reserved, shared.SampleGPS, shared.Fly, shared.Land, shared.Idle, shared.Charge, shared.Abort} {
		got, err := Decode(Encode(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestDecode_BadSize(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrBadSize)
}

func TestDecode_BadMode(t *testing.T) {
	_, err := Decode(Encode(shared.Mode(99)))
	assert.ErrorIs(t, err, ErrBadMode)
}
