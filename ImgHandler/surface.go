package ImgHandler

import (
	"image"
	"image/color"
	"log"
	"math"

	"github.com/fogleman/gg"
	"github.com/paulmach/orb"
	"golang.org/x/image/font"
)

// PathStyle 单次绘制的填充与描边，nil 颜色表示不绘制
type PathStyle struct {
	Fill      color.Color
	Stroke    color.Color
	LineWidth float64
}

// Surface 二维栅格绘图面，坐标单位为设备像素
type Surface interface {
	Size() (int, int)
	Clear(background color.Color)
	// Polygon 多个环使用奇偶填充规则，内环挖空
	Polygon(rings [][]orb.Point, style PathStyle)
	Polyline(points []orb.Point, style PathStyle)
	Circle(center orb.Point, radius float64, style PathStyle)
	SetFontSize(size float64)
	StrokeText(text string, at orb.Point, c color.Color, width float64)
	FillText(text string, at orb.Point, c color.Color)
}

// GGSurface 基于 gg 的 Surface 实现
type GGSurface struct {
	dc    *gg.Context
	faces map[float64]font.Face
}

func NewGGSurface(width, height int) *GGSurface {
	dc := gg.NewContext(width, height)
	dc.SetLineJoin(gg.LineJoinRound)
	dc.SetLineCap(gg.LineCapRound)
	return &GGSurface{dc: dc, faces: make(map[float64]font.Face)}
}

func (s *GGSurface) Size() (int, int) {
	return s.dc.Width(), s.dc.Height()
}

func (s *GGSurface) Image() image.Image {
	return s.dc.Image()
}

func (s *GGSurface) Clear(background color.Color) {
	if background == nil {
		background = color.Transparent
	}
	s.dc.SetColor(background)
	s.dc.Clear()
}

func (s *GGSurface) Polygon(rings [][]orb.Point, style PathStyle) {
	s.dc.ClearPath()
	for _, ring := range rings {
		if len(ring) == 0 {
			continue
		}
		s.dc.NewSubPath()
		s.dc.MoveTo(ring[0][0], ring[0][1])
		for _, p := range ring[1:] {
			s.dc.LineTo(p[0], p[1])
		}
		s.dc.ClosePath()
	}
	s.dc.SetFillRule(gg.FillRuleEvenOdd)
	s.fillAndStroke(style)
}

func (s *GGSurface) Polyline(points []orb.Point, style PathStyle) {
	if len(points) < 2 {
		return
	}
	s.dc.ClearPath()
	s.dc.MoveTo(points[0][0], points[0][1])
	for _, p := range points[1:] {
		s.dc.LineTo(p[0], p[1])
	}
	s.fillAndStroke(PathStyle{Stroke: style.Stroke, LineWidth: style.LineWidth})
}

func (s *GGSurface) Circle(center orb.Point, radius float64, style PathStyle) {
	if !(radius > 0) {
		return
	}
	s.dc.ClearPath()
	s.dc.DrawCircle(center[0], center[1], radius)
	s.fillAndStroke(style)
}

func (s *GGSurface) fillAndStroke(style PathStyle) {
	if style.Fill != nil {
		s.dc.SetColor(style.Fill)
		s.dc.FillPreserve()
	}
	if style.Stroke != nil && style.LineWidth > 0 {
		s.dc.SetColor(style.Stroke)
		s.dc.SetLineWidth(style.LineWidth)
		s.dc.StrokePreserve()
	}
	s.dc.ClearPath()
}

func (s *GGSurface) SetFontSize(size float64) {
	face, ok := s.faces[size]
	if !ok {
		var err error
		face, err = newFace(size)
		if err != nil {
			log.Printf("load label font failed: %v", err)
			return
		}
		s.faces[size] = face
	}
	s.dc.SetFontFace(face)
}

// StrokeText gg 没有文字描边，沿圆周偏移绘制近似轮廓
func (s *GGSurface) StrokeText(text string, at orb.Point, c color.Color, width float64) {
	radius := width / 2
	if radius <= 0 {
		return
	}
	s.dc.SetColor(c)
	steps := 12
	for i := 0; i < steps; i++ {
		angle := 2 * math.Pi * float64(i) / float64(steps)
		s.dc.DrawStringAnchored(text, at[0]+radius*math.Cos(angle), at[1]+radius*math.Sin(angle), 0.5, 0.5)
	}
}

func (s *GGSurface) FillText(text string, at orb.Point, c color.Color) {
	s.dc.SetColor(c)
	s.dc.DrawStringAnchored(text, at[0], at[1], 0.5, 0.5)
}
