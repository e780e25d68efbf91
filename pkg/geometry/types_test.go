package geometry

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoxIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Box
		want float64
	}{
		{"identical", NewBox(0, 0, 10, 10), NewBox(0, 0, 10, 10), 1},
		{"disjoint", NewBox(0, 0, 10, 10), NewBox(20, 20, 30, 30), 0},
		{"touching edges", NewBox(0, 0, 10, 10), NewBox(10, 0, 20, 10), 0},
		{"half overlap", NewBox(0, 0, 10, 10), NewBox(5, 0, 15, 10), 50.0 / 150.0},
		{"contained", NewBox(0, 0, 10, 10), NewBox(0, 0, 5, 10), 0.5},
		{"both empty", NewBox(3, 3, 3, 3), NewBox(3, 3, 3, 3), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.a.IoU(tt.b), 1e-9)
			assert.InDelta(t, tt.want, tt.b.IoU(tt.a), 1e-9)
		})
	}
}

func TestBoxBasics(t *testing.T) {
	b := NewBox(10, 20, 50, 40)
	assert.Equal(t, 40, b.Width())
	assert.Equal(t, 20, b.Height())
	assert.Equal(t, 800, b.Area())
	assert.Equal(t, image.Point{X: 30, Y: 30}, b.Center())
	assert.Equal(t, NewBox(15, 15, 55, 35), b.Offset(5, -5))
	assert.True(t, b.Contains(10, 20))
	assert.False(t, b.Contains(50, 20))
	assert.Equal(t, b, BoxFromRect(b.Rect()))
	assert.Equal(t, 0, NewBox(5, 5, 2, 9).Area())
}

func TestBoxClampAndExpand(t *testing.T) {
	b := NewBox(-5, 10, 120, 90)
	assert.Equal(t, NewBox(0, 10, 100, 80), b.Clamp(100, 80))

	e := NewBox(20, 20, 60, 40).ExpandRatio(0.25, 100, 100)
	assert.Equal(t, NewBox(10, 15, 70, 45), e)

	edge := NewBox(0, 0, 40, 20).ExpandRatio(0.5, 50, 25)
	assert.Equal(t, NewBox(0, 0, 50, 25), edge)
}

func TestBoxIntersect(t *testing.T) {
	i := NewBox(0, 0, 10, 10).Intersect(NewBox(5, 5, 20, 20))
	assert.Equal(t, NewBox(5, 5, 10, 10), i)
	assert.True(t, NewBox(0, 0, 10, 10).Intersect(NewBox(11, 11, 20, 20)).Empty())
}

func TestBoxFLerpConverges(t *testing.T) {
	cur := NewBox(0, 0, 10, 10).ToFloat()
	target := NewBox(100, 50, 200, 80).ToFloat()

	for i := 0; i < 40; i++ {
		cur = cur.Lerp(target, 0.25)
	}
	assert.Equal(t, target.Round(), cur.Round())

	half := NewBox(0, 0, 10, 10).ToFloat().Lerp(target, 0.5)
	assert.InDelta(t, 50.0, half.Left, 1e-9)
	assert.InDelta(t, 105.0, half.Right, 1e-9)
}

func TestBoxFRound(t *testing.T) {
	b := BoxF{Left: 1.5, Top: 2.49, Right: 10.5, Bottom: 7.51}
	assert.Equal(t, NewBox(2, 2, 11, 8), b.Round())
}

func TestAffineTransform(t *testing.T) {
	p := Point2D{X: 3, Y: 4}
	assert.Equal(t, Point2D{X: 5, Y: 1}, Translation(2, -3).Apply(p))

	r := RotationAbout(Point2D{X: 10, Y: 10}, math.Pi/2)
	got := r.Apply(Point2D{X: 20, Y: 10})
	assert.InDelta(t, 10.0, got.X, 1e-9)
	assert.InDelta(t, 20.0, got.Y, 1e-9)

	// the center is fixed
	c := r.Apply(Point2D{X: 10, Y: 10})
	assert.InDelta(t, 10.0, c.X, 1e-9)
	assert.InDelta(t, 10.0, c.Y, 1e-9)

	m := Translation(1, 2).Compose(Rotation(0)).ToMatrix()
	assert.Equal(t, [2][3]float64{{1, 0, 1}, {0, 1, 2}}, m)
}

func TestQuad(t *testing.T) {
	q := QuadFromBox(NewBox(0, 0, 40, 10))
	assert.InDelta(t, 40.0, q.Width(), 1e-9)
	assert.InDelta(t, 10.0, q.Height(), 1e-9)
	assert.InDelta(t, 400.0, q.Area(), 1e-9)
	assert.True(t, IsConvex(q.Points()))

	bowtie := []Point2D{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 10}}
	assert.False(t, IsConvex(bowtie))

	collinear := []Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
	assert.False(t, IsConvex(collinear))
}
