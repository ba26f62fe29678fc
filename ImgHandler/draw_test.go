package ImgHandler

import (
	"image/color"
	"testing"

	"github.com/GrainArc/RealmMap/geomap"
	"github.com/GrainArc/RealmMap/viewport"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type drawCall struct {
	op    string
	style PathStyle
	at    orb.Point
	text  string
	rings [][]orb.Point
}

// recordingSurface 记录绘制调用
type recordingSurface struct {
	calls    []drawCall
	fontSize float64
}

func (r *recordingSurface) Size() (int, int) { return 400, 400 }

func (r *recordingSurface) Clear(background color.Color) {
	r.calls = append(r.calls, drawCall{op: "clear"})
}

func (r *recordingSurface) Polygon(rings [][]orb.Point, style PathStyle) {
	r.calls = append(r.calls, drawCall{op: "polygon", style: style, rings: rings})
}

func (r *recordingSurface) Polyline(points []orb.Point, style PathStyle) {
	r.calls = append(r.calls, drawCall{op: "polyline", style: style, rings: [][]orb.Point{points}})
}

func (r *recordingSurface) Circle(center orb.Point, radius float64, style PathStyle) {
	r.calls = append(r.calls, drawCall{op: "circle", style: style, at: center})
}

func (r *recordingSurface) SetFontSize(size float64) { r.fontSize = size }

func (r *recordingSurface) StrokeText(text string, at orb.Point, c color.Color, width float64) {
	r.calls = append(r.calls, drawCall{op: "strokeText", text: text, at: at})
}

func (r *recordingSurface) FillText(text string, at orb.Point, c color.Color) {
	r.calls = append(r.calls, drawCall{op: "fillText", text: text, at: at})
}

func (r *recordingSurface) ops(names ...string) []drawCall {
	var out []drawCall
	for _, c := range r.calls {
		for _, n := range names {
			if c.op == n {
				out = append(out, c)
			}
		}
	}
	return out
}

var testTransform = viewport.LiveTransform{Scale: 2, OffsetX: 10, OffsetY: 160, PixelRatio: 1, Zoom: 1}

func sampleMap() *geomap.NormalizedMap {
	return &geomap.NormalizedMap{
		Layers: map[string]orb.Geometry{
			"trees":     orb.MultiPoint{{1, 1}, {2, 2}},
			"roads":     orb.LineString{{0, 0}, {10, 10}},
			"terrain":   orb.Polygon{{{0, 0}, {100, 0}, {100, 50}, {0, 50}, {0, 0}}},
			"buildings": orb.MultiPolygon{{{{1, 1}, {3, 1}, {3, 3}, {1, 1}}}},
			"values":    nil,
			"custom":    orb.Point{5, 5},
		},
		Labels: []geomap.Label{{Text: "Market", Point: orb.Point{50, 25}, Kind: geomap.KindLabel}},
	}
}

func TestDrawFollowsFixedZOrder(t *testing.T) {
	s := &recordingSurface{}
	Draw(s, sampleMap(), nil, DrawOptions{Transform: testTransform})

	require.NotEmpty(t, s.calls)
	assert.Equal(t, "clear", s.calls[0].op)

	shapes := s.ops("polygon", "polyline", "circle")
	require.Len(t, shapes, 5)
	assert.Equal(t, layerStyles["terrain"].Fill, shapes[0].style.Fill)
	assert.Equal(t, layerStyles["buildings"].Fill, shapes[1].style.Fill)
	assert.Equal(t, "polyline", shapes[2].op)
	assert.Equal(t, layerStyles["roads"].Stroke, shapes[2].style.Stroke)
	assert.Equal(t, "circle", shapes[3].op)
	assert.Equal(t, "circle", shapes[4].op)
}

func TestDrawProjectsThroughTransform(t *testing.T) {
	s := &recordingSurface{}
	m := &geomap.NormalizedMap{Layers: map[string]orb.Geometry{
		"roads": orb.LineString{{0, 50}, {100, 0}},
	}}
	Draw(s, m, nil, DrawOptions{Transform: testTransform})

	lines := s.ops("polyline")
	require.Len(t, lines, 1)
	assert.Equal(t, []orb.Point{{10, 60}, {210, 160}}, lines[0].rings[0])
}

func TestDrawSkipsHiddenAndAbsentLayers(t *testing.T) {
	s := &recordingSurface{}
	visibility := LayerVisibility{"terrain": false, "walls": true, "trees": false}
	Draw(s, sampleMap(), visibility, DrawOptions{Transform: testTransform})

	shapes := s.ops("polygon", "polyline", "circle")
	require.Len(t, shapes, 2)
	assert.Equal(t, layerStyles["buildings"].Fill, shapes[0].style.Fill)
	assert.Equal(t, "polyline", shapes[1].op)
}

func TestDrawScalesWidthsByPixelRatio(t *testing.T) {
	s := &recordingSurface{}
	tr := testTransform
	tr.PixelRatio = 2
	m := &geomap.NormalizedMap{Layers: map[string]orb.Geometry{"walls": orb.LineString{{0, 0}, {1, 1}}}}
	Draw(s, m, nil, DrawOptions{Transform: tr})

	lines := s.ops("polyline")
	require.Len(t, lines, 1)
	assert.Equal(t, layerStyles["walls"].LineWidth*2, lines[0].style.LineWidth)
}

func TestDrawPolygonKeepsHoles(t *testing.T) {
	s := &recordingSurface{}
	m := &geomap.NormalizedMap{Layers: map[string]orb.Geometry{
		"squares": orb.Polygon{
			{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
			{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
		},
	}}
	Draw(s, m, nil, DrawOptions{Transform: testTransform})

	polygons := s.ops("polygon")
	require.Len(t, polygons, 1)
	assert.Len(t, polygons[0].rings, 2)
}

func TestLabelSuppressedBelowMinZoom(t *testing.T) {
	s := &recordingSurface{}
	tr := testTransform
	tr.Zoom = 0.5
	Draw(s, sampleMap(), nil, DrawOptions{Transform: tr, ShowLabels: true})

	assert.Empty(t, s.ops("strokeText", "fillText"))
}

func TestLabelDrawnOnceAtProjectedPoint(t *testing.T) {
	s := &recordingSurface{}
	Draw(s, sampleMap(), nil, DrawOptions{Transform: testTransform, ShowLabels: true})

	texts := s.ops("strokeText", "fillText")
	require.Len(t, texts, 2)
	expected := viewport.Project(orb.Point{50, 25}, testTransform.Base())
	assert.Equal(t, "strokeText", texts[0].op)
	assert.Equal(t, "fillText", texts[1].op)
	for _, c := range texts {
		assert.Equal(t, "Market", c.text)
		assert.Equal(t, expected, c.at)
	}
	assert.Equal(t, labelFontSize, s.fontSize)
}

func TestLabelsHiddenWhenFlagOff(t *testing.T) {
	s := &recordingSurface{}
	Draw(s, sampleMap(), nil, DrawOptions{Transform: testTransform, ShowLabels: false})

	assert.Empty(t, s.ops("strokeText", "fillText"))
}

func TestDrawNilMapOnlyClears(t *testing.T) {
	s := &recordingSurface{}
	Draw(s, nil, nil, DrawOptions{Transform: testTransform, ShowLabels: true})

	require.Len(t, s.calls, 1)
	assert.Equal(t, "clear", s.calls[0].op)
}
