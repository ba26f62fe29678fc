package viewport

import (
	"math"

	"github.com/paulmach/orb"
)

// BaseTransform 将世界坐标外包框适配到画布，只在外包框或画布尺寸变化时重算
type BaseTransform struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// LiveTransform 基础变换叠加缩放平移后的实时变换，每次渲染重新组合
type LiveTransform struct {
	Scale      float64 `json:"scale"`
	OffsetX    float64 `json:"offsetX"`
	OffsetY    float64 `json:"offsetY"`
	PixelRatio float64 `json:"pixelRatio"`
	Zoom       float64 `json:"zoom"`
}

// ComputeBaseTransform 等比缩放并居中，外包框为空、画布无面积或世界宽高为 0 时返回 false
func ComputeBaseTransform(bounds *orb.Bound, width, height, padding float64) (BaseTransform, bool) {
	if bounds == nil || width <= 0 || height <= 0 {
		return BaseTransform{}, false
	}
	worldWidth := bounds.Max[0] - bounds.Min[0]
	worldHeight := bounds.Max[1] - bounds.Min[1]
	if !(worldWidth > 0) || !(worldHeight > 0) {
		return BaseTransform{}, false
	}
	availableWidth := width - 2*padding
	availableHeight := height - 2*padding
	if availableWidth <= 0 || availableHeight <= 0 {
		return BaseTransform{}, false
	}

	scale := math.Min(availableWidth/worldWidth, availableHeight/worldHeight)
	if math.IsInf(scale, 0) || math.IsNaN(scale) || scale <= 0 {
		return BaseTransform{}, false
	}
	return BaseTransform{
		Scale:   scale,
		OffsetX: (width-worldWidth*scale)/2 - bounds.Min[0]*scale,
		// 屏幕 y 向下，世界 y 向上，以 maxY 为基准
		OffsetY: (height-worldHeight*scale)/2 + bounds.Max[1]*scale,
	}, true
}

// Compose 叠加交互状态
func Compose(base BaseTransform, state State, pixelRatio float64) LiveTransform {
	return LiveTransform{
		Scale:      base.Scale * state.Zoom,
		OffsetX:    base.OffsetX + state.PanX,
		OffsetY:    base.OffsetY + state.PanY,
		PixelRatio: pixelRatio,
		Zoom:       state.Zoom,
	}
}

// Base 去掉像素比与缩放信息
func (t LiveTransform) Base() BaseTransform {
	return BaseTransform{Scale: t.Scale, OffsetX: t.OffsetX, OffsetY: t.OffsetY}
}

// Project 世界坐标到屏幕坐标的唯一换算，y 轴翻转只在这里和 Unproject 中出现
func Project(p orb.Point, t BaseTransform) orb.Point {
	return orb.Point{p[0]*t.Scale + t.OffsetX, -p[1]*t.Scale + t.OffsetY}
}

// Unproject Project 的逆运算
func Unproject(p orb.Point, t BaseTransform) orb.Point {
	return orb.Point{(p[0] - t.OffsetX) / t.Scale, -(p[1] - t.OffsetY) / t.Scale}
}
