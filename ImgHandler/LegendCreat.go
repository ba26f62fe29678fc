package ImgHandler

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"math"

	"github.com/paulmach/orb"
	"golang.org/x/image/font"
)

// LegendItem 图例项
type LegendItem struct {
	Property string
	Fill     color.Color
	Stroke   color.Color
	GeoType  string
}

// 图例布局，单位像素
const (
	legendRowHeight   = 40.0
	legendSwatchW     = 50.0
	legendSwatchH     = 25.0
	legendTextGap     = 15.0
	legendPadding     = 15.0
	legendMinCellW    = 150.0
	legendFontSize    = 14.0
	legendMaxColumns  = 6
	legendSwatchPoint = legendSwatchH/2 - 2
)

var (
	legendBackground color.Color = color.White
	legendFrame      color.Color = rgb(80, 80, 80)
	legendLineGround color.Color = rgb(240, 240, 240)
	legendText       color.Color = labelFill
)

// drawSwatch 在 (x, y) 处绘制与地图相同几何类型的样例
func drawSwatch(s Surface, x, y float64, item LegendItem) {
	frame := []orb.Point{{x, y}, {x + legendSwatchW, y}, {x + legendSwatchW, y + legendSwatchH}, {x, y + legendSwatchH}}
	stroke := item.Stroke
	if stroke == nil {
		stroke = legendFrame
	}
	fill := item.Fill
	if fill == nil {
		fill = stroke
	}

	switch item.GeoType {
	case "Point":
		s.Circle(orb.Point{x + legendSwatchW/2, y + legendSwatchH/2}, legendSwatchPoint, PathStyle{Fill: fill, Stroke: stroke, LineWidth: 1})
	case "LineString":
		s.Polygon([][]orb.Point{frame}, PathStyle{Fill: legendLineGround, Stroke: legendFrame, LineWidth: 1})
		mid := y + legendSwatchH/2
		s.Polyline([]orb.Point{{x + 4, mid}, {x + legendSwatchW - 4, mid}}, PathStyle{Stroke: stroke, LineWidth: 3})
	default:
		s.Polygon([][]orb.Point{frame}, PathStyle{Fill: fill, Stroke: stroke, LineWidth: 1})
	}
}

// CreateLegend 生成图例 PNG，多列排布
func CreateLegend(items []LegendItem) ([]byte, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("legend has no items")
	}
	face, err := newFace(legendFontSize)
	if err != nil {
		return nil, fmt.Errorf("load legend font: %w", err)
	}
	defer face.Close()

	cellW := legendMinCellW
	for _, item := range items {
		w := legendSwatchW + legendTextGap + textWidth(face, item.Property) + 20
		cellW = math.Max(cellW, w)
	}

	cols := legendColumns(len(items), cellW, legendRowHeight)
	rows := (len(items) + cols - 1) / cols
	width := int(math.Ceil(float64(cols)*cellW + legendPadding*2))
	height := int(math.Ceil(float64(rows)*legendRowHeight + legendPadding*2))

	s := NewGGSurface(width, height)
	s.Clear(legendBackground)
	s.SetFontSize(legendFontSize)
	for i, item := range items {
		x := legendPadding + float64(i%cols)*cellW
		y := legendPadding + float64(i/cols)*legendRowHeight
		drawSwatch(s, x, y+(legendRowHeight-legendSwatchH)/2, item)

		textX := x + legendSwatchW + legendTextGap
		s.FillText(item.Property, orb.Point{textX + textWidth(face, item.Property)/2, y + legendRowHeight/2}, legendText)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, s.Image()); err != nil {
		return nil, fmt.Errorf("encode legend: %w", err)
	}
	return buf.Bytes(), nil
}

func textWidth(face font.Face, text string) float64 {
	return float64(font.MeasureString(face, text).Round())
}

// legendColumns 让整体接近正方形，最多 6 列
func legendColumns(n int, cellW, cellH float64) int {
	cols := int(math.Sqrt(float64(n) * cellH / cellW))
	if cols < 1 {
		cols = 1
	}
	if cols > legendMaxColumns {
		cols = legendMaxColumns
	}
	if cols > n {
		cols = n
	}
	return cols
}
