package ImgHandler

import (
	"bytes"
	"errors"
	"image/png"

	"github.com/GrainArc/RealmMap/geomap"
	"github.com/GrainArc/RealmMap/viewport"
)

var ErrEmptySurface = errors.New("surface has zero area")

// RenderFrame 按交互视图的实时变换渲染一帧 PNG，背景透明
func RenderFrame(m *geomap.NormalizedMap, visibility LayerVisibility, showLabels bool, live viewport.LiveTransform, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptySurface
	}
	surface := NewGGSurface(width, height)
	Draw(surface, m, visibility, DrawOptions{Transform: live, ShowLabels: showLabels})

	var buf bytes.Buffer
	if err := png.Encode(&buf, surface.Image()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
