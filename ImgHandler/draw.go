package ImgHandler

import (
	"image/color"

	"github.com/GrainArc/RealmMap/geomap"
	"github.com/GrainArc/RealmMap/viewport"
	"github.com/paulmach/orb"
)

// DrawOptions 一次绘制的参数
type DrawOptions struct {
	Transform  viewport.LiveTransform
	ShowLabels bool
	// Background 为 nil 时清空为透明
	Background color.Color
}

// Draw 清空画面后按固定顺序绘制图层与标注
// 隐藏的图层与文档中不存在的图层同样跳过
func Draw(s Surface, m *geomap.NormalizedMap, visibility LayerVisibility, opts DrawOptions) {
	s.Clear(opts.Background)
	if m == nil {
		return
	}
	ratio := opts.Transform.PixelRatio
	if !(ratio > 0) {
		ratio = 1
	}
	base := opts.Transform.Base()

	for _, id := range ZOrder {
		if !visibility.Visible(id) {
			continue
		}
		geometry, ok := m.Layers[id]
		if !ok || geometry == nil {
			continue
		}
		style := layerStyles[id]
		drawGeometry(s, geometry, style, base, ratio)
	}

	if opts.ShowLabels && opts.Transform.Zoom >= LabelMinZoom {
		drawLabels(s, m.Labels, base, ratio)
	}
}

func drawGeometry(s Surface, geometry orb.Geometry, style LayerStyle, t viewport.BaseTransform, ratio float64) {
	switch g := geometry.(type) {
	case orb.Point:
		drawPoint(s, g, style, t, ratio)
	case orb.MultiPoint:
		for _, p := range g {
			drawPoint(s, p, style, t, ratio)
		}
	case orb.LineString:
		s.Polyline(projectPoints(g, t), lineStyle(style, ratio))
	case orb.MultiLineString:
		for _, ls := range g {
			s.Polyline(projectPoints(ls, t), lineStyle(style, ratio))
		}
	case orb.Ring:
		drawPolygon(s, orb.Polygon{g}, style, t, ratio)
	case orb.Polygon:
		drawPolygon(s, g, style, t, ratio)
	case orb.MultiPolygon:
		for _, polygon := range g {
			drawPolygon(s, polygon, style, t, ratio)
		}
	case orb.Bound:
		drawPolygon(s, g.ToPolygon(), style, t, ratio)
	case orb.Collection:
		for _, member := range g {
			drawGeometry(s, member, style, t, ratio)
		}
	}
}

func drawPolygon(s Surface, polygon orb.Polygon, style LayerStyle, t viewport.BaseTransform, ratio float64) {
	if len(polygon) == 0 {
		return
	}
	rings := make([][]orb.Point, 0, len(polygon))
	for _, ring := range polygon {
		rings = append(rings, projectPoints(ring, t))
	}
	s.Polygon(rings, PathStyle{Fill: style.Fill, Stroke: style.Stroke, LineWidth: style.LineWidth * ratio})
}

func drawPoint(s Surface, p orb.Point, style LayerStyle, t viewport.BaseTransform, ratio float64) {
	radius := style.PointRadius
	if radius <= 0 {
		radius = defaultPointSize
	}
	fill := style.Fill
	if fill == nil {
		fill = style.Stroke
	}
	ps := PathStyle{Fill: fill}
	if style.Fill != nil && style.Stroke != nil {
		ps.Stroke = style.Stroke
		ps.LineWidth = style.LineWidth * ratio
	}
	s.Circle(viewport.Project(p, t), radius*ratio, ps)
}

func lineStyle(style LayerStyle, ratio float64) PathStyle {
	stroke := style.Stroke
	if stroke == nil {
		stroke = style.Fill
	}
	width := style.LineWidth
	if width <= 0 {
		width = 1
	}
	return PathStyle{Stroke: stroke, LineWidth: width * ratio}
}

func drawLabels(s Surface, labels []geomap.Label, t viewport.BaseTransform, ratio float64) {
	if len(labels) == 0 {
		return
	}
	s.SetFontSize(labelFontSize * ratio)
	for _, label := range labels {
		at := viewport.Project(label.Point, t)
		s.StrokeText(label.Text, at, labelOutline, labelOutlineWidth*ratio)
		s.FillText(label.Text, at, labelFill)
	}
}

// projectPoints 接受 LineString / Ring 等点序列
func projectPoints[T ~[]orb.Point](points T, t viewport.BaseTransform) []orb.Point {
	out := make([]orb.Point, len(points))
	for i, p := range points {
		out[i] = viewport.Project(p, t)
	}
	return out
}
