package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeNumElements(t *testing.T) {
	assert.Equal(t, 24, Shape{2, 3, 4}.NumElements())
	assert.Equal(t, 1, Shape{1}.NumElements())
	assert.Equal(t, 0, Shape{3, 0}.NumElements())
}

func TestShapeComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, Shape{2, 3, 4}.ComputeStrides())
	assert.Equal(t, []int{1}, Shape{5}.ComputeStrides())
}

func TestShapeEqualClone(t *testing.T) {
	s := Shape{2, 3}
	c := s.Clone()
	require.True(t, s.Equal(c))

	c[0] = 7
	assert.False(t, s.Equal(c))
	assert.Equal(t, 2, s[0])
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Shape
		want      Shape
		broadcast bool
		wantErr   bool
	}{
		{name: "same shape", a: Shape{2, 3}, b: Shape{2, 3}, want: Shape{2, 3}, broadcast: false},
		{name: "bias row", a: Shape{4, 3}, b: Shape{1, 3}, want: Shape{4, 3}, broadcast: true},
		{name: "trailing dims", a: Shape{2, 3, 4}, b: Shape{4}, want: Shape{2, 3, 4}, broadcast: true},
		{name: "channel bias", a: Shape{2, 5, 8, 8}, b: Shape{1, 5, 1, 1}, want: Shape{2, 5, 8, 8}, broadcast: true},
		{name: "incompatible", a: Shape{2, 3}, b: Shape{2, 4}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, broadcast, err := BroadcastShapes(tt.a, tt.b)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v, want %v", got, tt.want)
			assert.Equal(t, tt.broadcast, broadcast)
		})
	}
}
