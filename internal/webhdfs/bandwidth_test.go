package webhdfs

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBandwidth(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{in: "", want: 0},
		{in: "0", want: 0},
		{in: "1000", want: 1000},
		{in: "5MB/s", want: 5_000_000},
		{in: "100KiB", want: 100 * 1024},
		{in: " 1 MiB/S ", want: 1 << 20},
		{in: "fast", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBandwidth(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewBandwidthLimiter_UnlimitedIsNil(t *testing.T) {
	bl, err := NewBandwidthLimiter("0", nil)
	require.NoError(t, err)
	assert.Nil(t, bl)

	r := strings.NewReader("abc")
	assert.Same(t, r, bl.WrapReader(context.Background(), r))
}

func TestBandwidthLimiter_WrapReaderPassesData(t *testing.T) {
	bl, err := NewBandwidthLimiter("1MB/s", nil)
	require.NoError(t, err)
	require.NotNil(t, bl)

	got, err := io.ReadAll(bl.WrapReader(context.Background(), strings.NewReader("hello")))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestBandwidthLimiter_CanceledContext(t *testing.T) {
	bl, err := NewBandwidthLimiter("1", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = io.ReadAll(bl.WrapReader(ctx, strings.NewReader(strings.Repeat("x", 64))))
	assert.Error(t, err)
}
