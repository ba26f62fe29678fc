package ImgHandler

import (
	"fmt"

	"github.com/GrainArc/RealmMap/geomap"
)

// LegendItems 按绘制顺序列出图层图例，m 为 nil 时列出全部已知图层
func LegendItems(m *geomap.NormalizedMap, visibility LayerVisibility) []LegendItem {
	items := make([]LegendItem, 0, len(ZOrder))
	for _, id := range ZOrder {
		if m != nil {
			if g, ok := m.Layers[id]; !ok || g == nil {
				continue
			}
		}
		if !visibility.Visible(id) {
			continue
		}
		style := layerStyles[id]
		items = append(items, LegendItem{
			Property: id,
			Fill:     style.Fill,
			Stroke:   style.Stroke,
			GeoType:  style.GeoType,
		})
	}
	return items
}

// TLImgMake 生成地图图层图例
func TLImgMake(m *geomap.NormalizedMap, visibility LayerVisibility) ([]byte, error) {
	items := LegendItems(m, visibility)
	if len(items) == 0 {
		return nil, fmt.Errorf("no drawable layers for legend")
	}
	img, err := CreateLegend(items)
	if err != nil {
		return nil, fmt.Errorf("failed to create legend: %w", err)
	}
	return img, nil
}
