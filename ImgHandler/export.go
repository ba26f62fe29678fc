package ImgHandler

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"strings"

	"github.com/GrainArc/RealmMap/geomap"
	"github.com/GrainArc/RealmMap/viewport"
	"github.com/chai2010/webp"
)

const (
	ExportSize       = 2200
	ExportPadding    = 60.0
	ExportPixelRatio = 2.0
)

// ErrUnfitBounds 文档为空或退化，无法计算导出变换
var ErrUnfitBounds = errors.New("map bounds cannot be fitted for export")

// ExportFormat 导出格式
type ExportFormat string

const (
	FormatPNG  ExportFormat = "png"
	FormatWebP ExportFormat = "webp"
)

// ParseExportFormat 空字符串按 png 处理
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatWebP:
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f ExportFormat) ContentType() string {
	if f == FormatWebP {
		return "image/webp"
	}
	return "image/png"
}

func (f ExportFormat) Ext() string {
	if f == FormatWebP {
		return ".webp"
	}
	return ".png"
}

// ExportImage 以固定尺寸重新渲染整张地图，与交互视图的缩放平移无关
func ExportImage(m *geomap.NormalizedMap, visibility LayerVisibility, showLabels bool, format ExportFormat) ([]byte, error) {
	base, ok := viewport.ComputeBaseTransform(geomap.FocusBounds(m), ExportSize, ExportSize, ExportPadding)
	if !ok {
		return nil, ErrUnfitBounds
	}

	surface := NewGGSurface(ExportSize, ExportSize)
	Draw(surface, m, visibility, DrawOptions{
		Transform:  viewport.Compose(base, viewport.State{Zoom: 1}, ExportPixelRatio),
		ShowLabels: showLabels,
		Background: ExportBackground,
	})

	var buf bytes.Buffer
	var err error
	switch format {
	case FormatWebP:
		err = webp.Encode(&buf, surface.Image(), &webp.Options{Lossless: true})
	default:
		err = png.Encode(&buf, surface.Image())
	}
	if err != nil {
		return nil, fmt.Errorf("编码导出图片失败: %w", err)
	}
	return buf.Bytes(), nil
}
