package viewport

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()
	c := NewController(400, 300, 2)
	c.SetBounds(&orb.Bound{Min: orb.Point{-50, 0}, Max: orb.Point{150, 80}})
	_, ok := c.Live()
	require.True(t, ok)
	return c
}

func TestControllerDefaults(t *testing.T) {
	c := NewController(400, 300, 2)

	assert.Equal(t, State{Zoom: DefaultZoom}, c.State())
	assert.Equal(t, Idle, c.DragState())
	w, h := c.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)

	_, ok := c.Live()
	assert.False(t, ok, "no bounds yet")
}

func TestZoomAnchorInvariance(t *testing.T) {
	anchors := []orb.Point{{0, 0}, {123, 456}, {800, 600}, {399.5, 17}}
	factors := []float64{1.12, 0.9, 3, 0.25}

	for _, anchor := range anchors {
		for _, factor := range factors {
			c := newTestController(t)
			c.PointerDown(1, 10, 10)
			c.PointerMove(1, 37, -12)
			c.PointerUp(1)

			before, _ := c.Live()
			world := Unproject(anchor, before.Base())

			a := anchor
			c.ZoomBy(factor, &a)

			after, ok := c.Live()
			require.True(t, ok)
			assertPoint(t, anchor, Project(world, after.Base()))
		}
	}
}

func TestZoomDefaultsToCenter(t *testing.T) {
	c := newTestController(t)
	before, _ := c.Live()
	center := orb.Point{400, 300}
	world := Unproject(center, before.Base())

	c.ZoomTo(4, nil)

	after, _ := c.Live()
	assert.InDelta(t, 4, c.State().Zoom, tolerance)
	assertPoint(t, center, Project(world, after.Base()))
}

func TestZoomClamping(t *testing.T) {
	c := newTestController(t)
	for i := 0; i < 100; i++ {
		c.Wheel(-1, 100, 100)
		assert.LessOrEqual(t, c.State().Zoom, ZoomMax)
	}
	assert.Equal(t, ZoomMax, c.State().Zoom)

	for i := 0; i < 100; i++ {
		c.Wheel(1, 100, 100)
		assert.GreaterOrEqual(t, c.State().Zoom, ZoomMin)
	}
	assert.Equal(t, ZoomMin, c.State().Zoom)
}

func TestWheelFactors(t *testing.T) {
	c := newTestController(t)

	c.Wheel(-120, 50, 50)
	assert.InDelta(t, DefaultZoom*WheelZoomIn, c.State().Zoom, tolerance)

	c.Reset()
	c.Wheel(120, 50, 50)
	assert.InDelta(t, DefaultZoom*WheelZoomOut, c.State().Zoom, tolerance)

	c.Reset()
	c.Wheel(0, 50, 50)
	assert.Equal(t, DefaultState(), c.State())
}

func TestWheelAnchorsAtDevicePixels(t *testing.T) {
	c := newTestController(t)
	before, _ := c.Live()
	// CSS (50,60) 在像素比 2 下对应 (100,120)
	world := Unproject(orb.Point{100, 120}, before.Base())

	c.Wheel(-1, 50, 60)

	after, _ := c.Live()
	assertPoint(t, orb.Point{100, 120}, Project(world, after.Base()))
}

func TestDragStateMachine(t *testing.T) {
	c := newTestController(t)

	assert.False(t, c.PointerMove(7, 20, 20), "move while idle")
	assert.True(t, c.PointerDown(7, 10, 10))
	assert.Equal(t, Dragging, c.DragState())
	assert.False(t, c.PointerDown(8, 0, 0), "second pointer ignored")

	assert.True(t, c.PointerMove(7, 15, 30))
	assert.Equal(t, State{Zoom: DefaultZoom, PanX: 10, PanY: 40}, c.State())

	assert.False(t, c.PointerMove(8, 500, 500), "foreign pointer ignored")
	assert.Equal(t, State{Zoom: DefaultZoom, PanX: 10, PanY: 40}, c.State())

	assert.False(t, c.PointerUp(8))
	assert.Equal(t, Dragging, c.DragState())
	assert.True(t, c.PointerLeave(7))
	assert.Equal(t, Idle, c.DragState())

	// 新的拖拽从当前平移量开始
	c.PointerDown(9, 0, 0)
	c.PointerMove(9, -5, 0)
	c.PointerUp(9)
	assert.Equal(t, State{Zoom: DefaultZoom, PanX: 0, PanY: 40}, c.State())
}

func TestResetRestoresDefaults(t *testing.T) {
	c := newTestController(t)
	c.ZoomTo(3, nil)
	c.PointerDown(1, 0, 0)
	c.PointerMove(1, 30, 30)

	c.Reset()

	assert.Equal(t, State{Zoom: 1.15, PanX: 0, PanY: 0}, c.State())
	assert.Equal(t, Idle, c.DragState())
}

func TestResizeKeepsViewportState(t *testing.T) {
	c := newTestController(t)
	c.ZoomTo(2.5, nil)
	c.PointerDown(1, 0, 0)
	c.PointerMove(1, 12, 8)
	c.PointerUp(1)
	state := c.State()
	baseBefore, _ := c.Base()

	c.Resize(640, 480, 1.5)

	assert.Equal(t, state, c.State())
	w, h := c.Size()
	assert.Equal(t, 960, w)
	assert.Equal(t, 720, h)
	baseAfter, ok := c.Base()
	require.True(t, ok)
	assert.NotEqual(t, baseBefore, baseAfter)
	assert.Equal(t, 1.5, c.PixelRatio())
}

func TestResizeInvalidPixelRatio(t *testing.T) {
	c := NewController(100, 50, 0)
	assert.Equal(t, 1.0, c.PixelRatio())
	w, h := c.Size()
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
}

func TestResetForDocument(t *testing.T) {
	c := newTestController(t)
	c.ZoomTo(3, nil)
	c.PointerDown(4, 10, 10)

	c.ResetForDocument(&orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}})

	assert.Equal(t, DefaultState(), c.State())
	assert.Equal(t, Idle, c.DragState())
	_, ok := c.Live()
	assert.True(t, ok)

	c.ResetForDocument(nil)
	_, ok = c.Live()
	assert.False(t, ok)
}
