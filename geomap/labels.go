package geomap

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// 面积低于该值的环视为退化
const degenerateArea = 1e-9

type collectionMember struct {
	Name       *string                `json:"name"`
	Properties map[string]interface{} `json:"properties"`
}

func (m collectionMember) name() string {
	if m.Name != nil {
		return strings.TrimSpace(*m.Name)
	}
	if name, ok := m.Properties["name"].(string); ok {
		return strings.TrimSpace(name)
	}
	return ""
}

// synthesizeDistrictLabels 为 districts 几何集合中的每个成员生成标注
func synthesizeDistrictLabels(fields map[string]json.RawMessage, geometry orb.Geometry) []Label {
	collection, ok := geometry.(orb.Collection)
	if !ok {
		return nil
	}
	var members []collectionMember
	if raw, ok := fields["geometries"]; ok {
		_ = json.Unmarshal(raw, &members)
	}

	labels := make([]Label, 0, len(collection))
	for i, member := range collection {
		point, ok := RepresentativePoint(member)
		if !ok {
			continue
		}
		text := ""
		if i < len(members) {
			text = members[i].name()
		}
		if text == "" {
			text = fmt.Sprintf("District %d", i+1)
		}
		labels = append(labels, Label{Text: text, Point: point, Kind: KindDistrict})
	}
	return labels
}

// autoLabels 按遍历顺序为每个多边形生成 "District n"
func autoLabels(geometry orb.Geometry) []Label {
	labels := make([]Label, 0)
	eachPolygon(geometry, func(polygon orb.Polygon) {
		if len(polygon) == 0 {
			return
		}
		point, ok := ringPoint(polygon[0])
		if !ok {
			return
		}
		labels = append(labels, Label{
			Text:  fmt.Sprintf("District %d", len(labels)+1),
			Point: point,
			Kind:  KindAuto,
		})
	})
	return labels
}

func eachPolygon(geometry orb.Geometry, fn func(orb.Polygon)) {
	switch g := geometry.(type) {
	case orb.Polygon:
		fn(g)
	case orb.MultiPolygon:
		for _, polygon := range g {
			fn(polygon)
		}
	case orb.Ring:
		fn(orb.Polygon{g})
	case orb.Collection:
		for _, member := range g {
			eachPolygon(member, fn)
		}
	}
}

// RepresentativePoint 计算几何的标注点
// 面取外环质心，多面取面积最大的外环，其他类型取外包框中心
func RepresentativePoint(geometry orb.Geometry) (orb.Point, bool) {
	switch g := geometry.(type) {
	case orb.Polygon:
		if len(g) == 0 {
			return orb.Point{}, false
		}
		return ringPoint(g[0])
	case orb.MultiPolygon:
		var best orb.Ring
		bestArea := -1.0
		for _, polygon := range g {
			if len(polygon) == 0 {
				continue
			}
			area := math.Abs(planar.Area(polygon[0]))
			if area > bestArea {
				best, bestArea = polygon[0], area
			}
		}
		if best == nil {
			return orb.Point{}, false
		}
		return ringPoint(best)
	case orb.Ring:
		return ringPoint(g)
	case orb.Point:
		return g, finitePoint(g)
	case nil:
		return orb.Point{}, false
	default:
		b := Bounds(g)
		if b == nil {
			return orb.Point{}, false
		}
		return b.Center(), true
	}
}

// ringPoint 质心落在环外包框之外（自相交或过细的环）时改用外包框中心
func ringPoint(ring orb.Ring) (orb.Point, bool) {
	box := Bounds(ring)
	if box == nil {
		return orb.Point{}, false
	}
	centroid, area := RingCentroid(ring)
	if math.Abs(area) < degenerateArea || !finitePoint(centroid) || !box.Contains(centroid) {
		return box.Center(), true
	}
	return centroid, true
}

// RingCentroid 按有向面积公式计算环的质心，返回质心与有向面积
func RingCentroid(ring orb.Ring) (orb.Point, float64) {
	n := len(ring)
	if n < 3 {
		return orb.Point{}, 0
	}
	var cross, sumX, sumY float64
	for i := 0; i < n; i++ {
		p, q := ring[i], ring[(i+1)%n]
		c := p[0]*q[1] - q[0]*p[1]
		cross += c
		sumX += (p[0] + q[0]) * c
		sumY += (p[1] + q[1]) * c
	}
	area := cross / 2
	if area == 0 {
		return orb.Point{}, 0
	}
	return orb.Point{sumX / (6 * area), sumY / (6 * area)}, area
}
