package viewport

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	ZoomMin     = 0.3
	ZoomMax     = 6.0
	DefaultZoom = 1.15

	WheelZoomIn  = 1.12
	WheelZoomOut = 0.9
	ButtonStep   = 1.2

	// DefaultPadding 交互画布的留白，单位 CSS 像素
	DefaultPadding = 24.0
)

// State 会话内的缩放平移状态，不持久化
type State struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
}

func DefaultState() State {
	return State{Zoom: DefaultZoom}
}

// DragState 拖拽状态机: Idle -> Dragging -> Idle
type DragState int

const (
	Idle DragState = iota
	Dragging
)

func (s DragState) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

type dragSession struct {
	pointerID int64
	origin    orb.Point
	startPan  orb.Point
}

// Controller 交互控制器，持有缩放平移状态、画布尺寸与拖拽会话
// 非并发安全，由调用方串行化事件
type Controller struct {
	state State
	drag  *dragSession

	cssWidth   float64
	cssHeight  float64
	pixelRatio float64
	width      int
	height     int

	bounds *orb.Bound
	base   BaseTransform
	baseOK bool
}

func NewController(cssWidth, cssHeight, pixelRatio float64) *Controller {
	c := &Controller{state: DefaultState()}
	c.Resize(cssWidth, cssHeight, pixelRatio)
	return c
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) DragState() DragState {
	if c.drag != nil {
		return Dragging
	}
	return Idle
}

// Size 像素缓冲区尺寸
func (c *Controller) Size() (int, int) {
	return c.width, c.height
}

func (c *Controller) PixelRatio() float64 {
	return c.pixelRatio
}

// Resize 容器尺寸变化时调整像素缓冲区并重算基础变换，缩放平移状态保持不变
func (c *Controller) Resize(cssWidth, cssHeight, pixelRatio float64) {
	if !(pixelRatio > 0) || math.IsInf(pixelRatio, 0) {
		pixelRatio = 1
	}
	c.cssWidth = math.Max(0, cssWidth)
	c.cssHeight = math.Max(0, cssHeight)
	c.pixelRatio = pixelRatio
	c.width = int(math.Round(c.cssWidth * pixelRatio))
	c.height = int(math.Round(c.cssHeight * pixelRatio))
	c.recompute()
}

// SetBounds 设置聚焦外包框，新文档加载时调用
func (c *Controller) SetBounds(bounds *orb.Bound) {
	c.bounds = bounds
	c.recompute()
}

func (c *Controller) recompute() {
	c.base, c.baseOK = ComputeBaseTransform(c.bounds, float64(c.width), float64(c.height), DefaultPadding*c.pixelRatio)
}

// ResetForDocument 换入新文档：更新外包框并恢复默认视图
func (c *Controller) ResetForDocument(bounds *orb.Bound) {
	c.Reset()
	c.SetBounds(bounds)
}

// Base 当前基础变换，无法计算时返回 false
func (c *Controller) Base() (BaseTransform, bool) {
	return c.base, c.baseOK
}

// Live 组合出本次渲染使用的实时变换
func (c *Controller) Live() (LiveTransform, bool) {
	if !c.baseOK {
		return LiveTransform{}, false
	}
	return Compose(c.base, c.state, c.pixelRatio), true
}

// Reset 恢复默认缩放与平移，同时结束拖拽
func (c *Controller) Reset() {
	c.state = DefaultState()
	c.drag = nil
}

// ZoomAt 以锚点（画布像素）为中心缩放，锚点下的世界坐标在缩放前后保持不动
// anchor 为 nil 时使用画布中心
func (c *Controller) ZoomAt(next func(float64) float64, anchor *orb.Point) {
	zoom := clampZoom(next(c.state.Zoom))
	if !c.baseOK {
		c.state.Zoom = zoom
		return
	}

	a := orb.Point{float64(c.width) / 2, float64(c.height) / 2}
	if anchor != nil {
		a = *anchor
	}
	world := Unproject(a, Compose(c.base, c.state, c.pixelRatio).Base())

	scale := c.base.Scale * zoom
	c.state = State{
		Zoom: zoom,
		PanX: a[0] - world[0]*scale - c.base.OffsetX,
		PanY: a[1] + world[1]*scale - c.base.OffsetY,
	}
}

// ZoomBy 按倍数缩放
func (c *Controller) ZoomBy(factor float64, anchor *orb.Point) {
	c.ZoomAt(func(z float64) float64 { return z * factor }, anchor)
}

// ZoomTo 缩放到指定值
func (c *Controller) ZoomTo(zoom float64, anchor *orb.Point) {
	c.ZoomAt(func(float64) float64 { return zoom }, anchor)
}

// Wheel 滚轮缩放，坐标为相对画布的 CSS 像素
func (c *Controller) Wheel(deltaY, cssX, cssY float64) {
	var factor float64
	switch {
	case deltaY < 0:
		factor = WheelZoomIn
	case deltaY > 0:
		factor = WheelZoomOut
	default:
		return
	}
	anchor := orb.Point{cssX * c.pixelRatio, cssY * c.pixelRatio}
	c.ZoomBy(factor, &anchor)
}

// PointerDown Idle -> Dragging，拖拽中收到的按下事件忽略
func (c *Controller) PointerDown(pointerID int64, cssX, cssY float64) bool {
	if c.drag != nil {
		return false
	}
	c.drag = &dragSession{
		pointerID: pointerID,
		origin:    orb.Point{cssX, cssY},
		startPan:  orb.Point{c.state.PanX, c.state.PanY},
	}
	return true
}

// PointerMove 拖拽中按指针位移平移，非当前指针的事件忽略
func (c *Controller) PointerMove(pointerID int64, cssX, cssY float64) bool {
	if c.drag == nil || c.drag.pointerID != pointerID {
		return false
	}
	c.state.PanX = c.drag.startPan[0] + (cssX-c.drag.origin[0])*c.pixelRatio
	c.state.PanY = c.drag.startPan[1] + (cssY-c.drag.origin[1])*c.pixelRatio
	return true
}

// PointerUp Dragging -> Idle
func (c *Controller) PointerUp(pointerID int64) bool {
	if c.drag == nil || c.drag.pointerID != pointerID {
		return false
	}
	c.drag = nil
	return true
}

// PointerLeave 与 PointerUp 相同
func (c *Controller) PointerLeave(pointerID int64) bool {
	return c.PointerUp(pointerID)
}

func clampZoom(zoom float64) float64 {
	if math.IsNaN(zoom) {
		return DefaultZoom
	}
	return math.Min(ZoomMax, math.Max(ZoomMin, zoom))
}
