package geomap

import (
	"github.com/paulmach/orb"
)

// FocusLayerIDs 聚焦视图时优先使用的图层，按顺序取第一个存在的
var FocusLayerIDs = []string{"terrain", "districts", "greens", "fields", "buildings"}

type boundsWalker struct {
	bound orb.Bound
	seen  bool
}

func (w *boundsWalker) add(p orb.Point) {
	if !finitePoint(p) {
		return
	}
	if !w.seen {
		w.bound = orb.Bound{Min: p, Max: p}
		w.seen = true
		return
	}
	w.bound = w.bound.Extend(p)
}

func (w *boundsWalker) walk(geometry orb.Geometry) {
	switch g := geometry.(type) {
	case orb.Point:
		w.add(g)
	case orb.MultiPoint:
		for _, p := range g {
			w.add(p)
		}
	case orb.LineString:
		for _, p := range g {
			w.add(p)
		}
	case orb.MultiLineString:
		for _, ls := range g {
			w.walk(ls)
		}
	case orb.Ring:
		for _, p := range g {
			w.add(p)
		}
	case orb.Polygon:
		for _, ring := range g {
			w.walk(ring)
		}
	case orb.MultiPolygon:
		for _, polygon := range g {
			w.walk(polygon)
		}
	case orb.Collection:
		for _, member := range g {
			w.walk(member)
		}
	case orb.Bound:
		w.add(g.Min)
		w.add(g.Max)
	}
}

// Bounds 返回所有几何坐标的最小外包框，没有有效坐标时返回 nil
func Bounds(geometries ...orb.Geometry) *orb.Bound {
	w := &boundsWalker{}
	for _, g := range geometries {
		w.walk(g)
	}
	if !w.seen {
		return nil
	}
	b := w.bound
	return &b
}

// LayerBounds 计算全部图层的外包框
func LayerBounds(layers map[string]orb.Geometry) *orb.Bound {
	geometries := make([]orb.Geometry, 0, len(layers))
	for _, g := range layers {
		geometries = append(geometries, g)
	}
	return Bounds(geometries...)
}

// FocusBounds 优先使用主要图层，避免零散的远处要素拉偏视图
func FocusBounds(m *NormalizedMap) *orb.Bound {
	if m == nil {
		return nil
	}
	for _, id := range FocusLayerIDs {
		g, ok := m.Layers[id]
		if !ok {
			continue
		}
		if b := Bounds(g); b != nil {
			return b
		}
	}
	return LayerBounds(m.Layers)
}
