package ImgHandler

import (
	"image/color"
)

// LabelMinZoom 低于该缩放级别不绘制标注
const LabelMinZoom = 0.75

// LayerStyle 图层样式，线宽与点半径以 CSS 像素为单位，绘制时乘以像素比
type LayerStyle struct {
	Fill        color.Color
	Stroke      color.Color
	LineWidth   float64
	PointRadius float64
	GeoType     string
}

// ZOrder 固定绘制顺序，后面的图层覆盖前面的图层
var ZOrder = []string{
	"terrain",
	"fields",
	"greens",
	"districts",
	"buildings",
	"prisms",
	"squares",
	"roads",
	"walls",
	"gates",
	"rivers",
	"planks",
	"trees",
}

var layerStyles = map[string]LayerStyle{
	"terrain":   {Fill: rgb(232, 220, 192), Stroke: rgb(201, 186, 150), LineWidth: 1, GeoType: "Polygon"},
	"fields":    {Fill: rgb(217, 228, 181), Stroke: rgb(184, 196, 143), LineWidth: 1, GeoType: "Polygon"},
	"greens":    {Fill: rgb(185, 216, 160), Stroke: rgb(140, 178, 112), LineWidth: 1, GeoType: "Polygon"},
	"districts": {Fill: color.NRGBA{138, 109, 75, 28}, Stroke: rgb(138, 109, 75), LineWidth: 1.5, GeoType: "Polygon"},
	"buildings": {Fill: rgb(160, 140, 120), Stroke: rgb(91, 74, 58), LineWidth: 0.6, GeoType: "Polygon"},
	"prisms":    {Fill: rgb(140, 122, 104), Stroke: rgb(74, 59, 44), LineWidth: 0.8, GeoType: "Polygon"},
	"squares":   {Fill: rgb(224, 210, 180), Stroke: rgb(168, 146, 116), LineWidth: 1, GeoType: "Polygon"},
	"roads":     {Stroke: rgb(201, 178, 143), LineWidth: 3, GeoType: "LineString"},
	"walls":     {Stroke: rgb(74, 59, 44), LineWidth: 4, GeoType: "LineString"},
	"gates":     {Fill: rgb(61, 43, 31), Stroke: rgb(245, 236, 216), LineWidth: 1, PointRadius: 4, GeoType: "Point"},
	"rivers":    {Fill: rgb(142, 190, 230), Stroke: rgb(111, 168, 220), LineWidth: 4, GeoType: "LineString"},
	"planks":    {Stroke: rgb(122, 92, 58), LineWidth: 2, GeoType: "LineString"},
	"trees":     {Fill: rgb(79, 122, 58), PointRadius: 2.5, GeoType: "Point"},
}

var (
	labelFill    color.Color = rgb(43, 33, 24)
	labelOutline color.Color = color.NRGBA{255, 250, 240, 230}

	// ExportBackground 导出图片的不透明底色
	ExportBackground color.Color = rgb(244, 236, 216)
)

const (
	labelFontSize     = 13.0
	labelOutlineWidth = 3.0
	defaultPointSize  = 2.0
)

// StyleFor 返回图层样式，未知图层返回 false
func StyleFor(layerID string) (LayerStyle, bool) {
	style, ok := layerStyles[layerID]
	return style, ok
}

// LayerIDs 绘制顺序的副本
func LayerIDs() []string {
	return append([]string(nil), ZOrder...)
}

// LayerVisibility 图层显隐，未出现的图层默认可见
type LayerVisibility map[string]bool

func (v LayerVisibility) Visible(layerID string) bool {
	shown, ok := v[layerID]
	return !ok || shown
}

func rgb(r, g, b uint8) color.RGBA {
	return color.RGBA{r, g, b, 255}
}
