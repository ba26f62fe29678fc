package geomap

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 特殊要素 id
const (
	MetaFeatureID      = "values"
	LabelsFeatureID    = "labels"
	DistrictsFeatureID = "districts"
)

// LabelKind 标注来源
type LabelKind string

const (
	KindLabel    LabelKind = "label"
	KindDistrict LabelKind = "district"
	KindAuto     LabelKind = "auto"
)

// ErrInvalidDocument 文档缺少 features 数组
var ErrInvalidDocument = errors.New("Invalid map JSON format.")

type Label struct {
	Text  string    `json:"text"`
	Point orb.Point `json:"coordinates"`
	Kind  LabelKind `json:"kind"`
}

// NormalizedMap 解析后的地图，每次加载文档时重建
type NormalizedMap struct {
	Meta   map[string]interface{}  `json:"meta"`
	Layers map[string]orb.Geometry `json:"-"`
	Labels []Label                 `json:"labels"`
}

// Name 返回 meta 中的显示名称
func (m *NormalizedMap) Name() string {
	if m == nil || m.Meta == nil {
		return ""
	}
	if name, ok := m.Meta["name"].(string); ok {
		return strings.TrimSpace(name)
	}
	return ""
}

// LayerNames 返回文档中出现的全部图层 id
func (m *NormalizedMap) LayerNames() []string {
	names := make([]string, 0, len(m.Layers))
	for id := range m.Layers {
		names = append(names, id)
	}
	return names
}

type rawDocument struct {
	Features []json.RawMessage `json:"features"`
	Labels   []json.RawMessage `json:"labels"`
}

// Normalize 解析原始地图文档
// features 不是数组时返回 ErrInvalidDocument
func Normalize(raw []byte) (*NormalizedMap, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, ErrInvalidDocument
	}
	featuresRaw, ok := fields["features"]
	if !ok || !isJSONArray(featuresRaw) {
		return nil, ErrInvalidDocument
	}

	var doc rawDocument
	if err := json.Unmarshal(featuresRaw, &doc.Features); err != nil {
		return nil, ErrInvalidDocument
	}
	if labelsRaw, ok := fields["labels"]; ok && isJSONArray(labelsRaw) {
		// labels 内容不合法时只丢弃标注，不影响图层
		_ = json.Unmarshal(labelsRaw, &doc.Labels)
	}

	return normalizeDocument(&doc), nil
}

func normalizeDocument(doc *rawDocument) *NormalizedMap {
	result := &NormalizedMap{
		Layers: make(map[string]orb.Geometry),
		Labels: make([]Label, 0),
	}

	explicit := make([]Label, 0)
	for _, entry := range doc.Labels {
		if label, ok := parseLabelEntry(entry); ok {
			explicit = append(explicit, label)
		}
	}

	var districtLabels []Label
	for _, featureRaw := range doc.Features {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(featureRaw, &fields); err != nil {
			continue
		}
		id := stringField(fields, "id")
		geomFields := geometryFields(fields)
		geomType := stringField(geomFields, "type")

		if id == MetaFeatureID {
			var meta map[string]interface{}
			if err := json.Unmarshal(featureRaw, &meta); err == nil {
				result.Meta = meta
			}
		}

		geometry := decodeGeometry(fields, featureRaw)

		labelsRaw, hasLabels := fields["labels"]
		hasLabels = hasLabels && isJSONArray(labelsRaw)
		switch {
		case id == LabelsFeatureID && geomType == "MultiPoint" && hasLabels:
			explicit = append(explicit, pairMultiPointLabels(geometry, labelsRaw)...)
		case hasLabels:
			var entries []json.RawMessage
			if err := json.Unmarshal(labelsRaw, &entries); err == nil {
				for _, entry := range entries {
					if label, ok := parseLabelEntry(entry); ok {
						explicit = append(explicit, label)
					}
				}
			}
		}

		if id == DistrictsFeatureID && geomType == "GeometryCollection" {
			districtLabels = synthesizeDistrictLabels(geomFields, geometry)
		}

		if id != "" {
			result.Layers[id] = geometry
		}
	}

	switch {
	case len(explicit) > 0:
		result.Labels = explicit
	case len(districtLabels) > 0:
		result.Labels = districtLabels
	default:
		if districts, ok := result.Layers[DistrictsFeatureID]; ok && districts != nil {
			result.Labels = autoLabels(districts)
		}
	}
	return result
}

// geometryFields 标准 Feature 返回嵌套 geometry 的字段，否则返回要素自身
func geometryFields(fields map[string]json.RawMessage) map[string]json.RawMessage {
	nested, ok := fields["geometry"]
	if !ok || !isJSONObject(nested) {
		return fields
	}
	var inner map[string]json.RawMessage
	if err := json.Unmarshal(nested, &inner); err != nil {
		return fields
	}
	return inner
}

// decodeGeometry 解析要素自身的几何，兼容嵌套 geometry 字段的标准 GeoJSON Feature
func decodeGeometry(fields map[string]json.RawMessage, featureRaw json.RawMessage) orb.Geometry {
	source := []byte(featureRaw)
	if nested, ok := fields["geometry"]; ok && isJSONObject(nested) {
		source = nested
	}
	g, err := geojson.UnmarshalGeometry(source)
	if err != nil || g == nil {
		return nil
	}
	return g.Geometry()
}

func pairMultiPointLabels(geometry orb.Geometry, labelsRaw json.RawMessage) []Label {
	points, ok := geometry.(orb.MultiPoint)
	if !ok {
		return nil
	}
	var texts []json.RawMessage
	if err := json.Unmarshal(labelsRaw, &texts); err != nil {
		return nil
	}
	labels := make([]Label, 0, len(texts))
	for i, point := range points {
		if i >= len(texts) {
			break
		}
		var text string
		if err := json.Unmarshal(texts[i], &text); err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" || !finitePoint(point) {
			continue
		}
		labels = append(labels, Label{Text: text, Point: point, Kind: KindLabel})
	}
	return labels
}

type rawLabel struct {
	Text        *string   `json:"text"`
	Coordinates []float64 `json:"coordinates"`
	Coord       []float64 `json:"coord"`
	X           *float64  `json:"x"`
	Y           *float64  `json:"y"`
}

// parseLabelEntry 取坐标的优先级: coordinates > coord > x/y
func parseLabelEntry(entry json.RawMessage) (Label, bool) {
	if !isJSONObject(entry) {
		return Label{}, false
	}
	var raw rawLabel
	if err := json.Unmarshal(entry, &raw); err != nil || raw.Text == nil {
		return Label{}, false
	}
	text := strings.TrimSpace(*raw.Text)
	if text == "" {
		return Label{}, false
	}

	var point orb.Point
	switch {
	case len(raw.Coordinates) >= 2:
		point = orb.Point{raw.Coordinates[0], raw.Coordinates[1]}
	case len(raw.Coord) >= 2:
		point = orb.Point{raw.Coord[0], raw.Coord[1]}
	case raw.X != nil && raw.Y != nil:
		point = orb.Point{*raw.X, *raw.Y}
	default:
		return Label{}, false
	}
	if !finitePoint(point) {
		return Label{}, false
	}
	return Label{Text: text, Point: point, Kind: KindLabel}, true
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

func isJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func finitePoint(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsInf(p[0], 0) && !math.IsNaN(p[1]) && !math.IsInf(p[1], 0)
}
