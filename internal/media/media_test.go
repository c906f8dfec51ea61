package media

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/brollcut/internal/types"
)

func TestLoop_SumsExactly(t *testing.T) {
	h := Handle{Path: "b.mp4", Duration: 2 * time.Second, Width: 10, Height: 10}

	tests := []struct {
		name   string
		d      time.Duration
		pieces int
	}{
		{"shorter than source", 1500 * time.Millisecond, 1},
		{"equal to source", 2 * time.Second, 1},
		{"two and a half loops", 5 * time.Second, 3},
		{"exact multiple", 6 * time.Second, 3},
		{"odd nanoseconds", 4*time.Second + 7, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := h.Loop(tt.d)
			require.NoError(t, err)
			require.Len(t, rs, tt.pieces)

			var total time.Duration
			for i, r := range rs {
				assert.Equal(t, time.Duration(0), r.Start, "every repeat starts at the source head")
				assert.Equal(t, total, r.At, "piece %d must follow the previous one without a gap", i)
				assert.LessOrEqual(t, r.Duration, h.Duration)
				total += r.Duration
			}
			assert.Equal(t, tt.d, total)
		})
	}
}

func TestLoop_NoDuration(t *testing.T) {
	_, err := Handle{Path: "broken.mp4"}.Loop(time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrMediaUnavailable))
}

func TestSubRange_Bounds(t *testing.T) {
	h := Handle{Path: "b.mp4", Duration: 3 * time.Second}

	r, err := h.SubRange(0, 3*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, r.End())

	_, err = h.SubRange(time.Second, 3*time.Second)
	assert.Error(t, err)
	_, err = h.SubRange(0, 0)
	assert.Error(t, err)
	_, err = h.SubRange(-time.Second, time.Second)
	assert.Error(t, err)
}

func TestFrameInterval_DefaultsTo30fps(t *testing.T) {
	assert.Equal(t, time.Second/30, Handle{}.FrameInterval())
	assert.Equal(t, 40*time.Millisecond, Handle{FrameRate: 25}.FrameInterval())
}

func TestSeconds_Rounds(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, Seconds(0.1))
	assert.Equal(t, 5*time.Second, Seconds(5))
}
