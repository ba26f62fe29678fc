package views

import (
	"encoding/json"

	"github.com/GrainArc/RealmMap/services"
)

// ViewerEvent 客户端事件，REST 与 WebSocket 共用
type ViewerEvent struct {
	Type       string          `json:"type"`
	MapID      string          `json:"mapId,omitempty"`
	Name       string          `json:"name,omitempty"`
	Document   json.RawMessage `json:"document,omitempty"`
	DeltaY     float64         `json:"deltaY,omitempty"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	PointerID  int64           `json:"pointerId"`
	Direction  string          `json:"direction,omitempty"`
	Width      float64         `json:"width,omitempty"`
	Height     float64         `json:"height,omitempty"`
	PixelRatio float64         `json:"pixelRatio,omitempty"`
	Layers     map[string]bool `json:"layers,omitempty"`
	Show       *bool           `json:"show,omitempty"`
}

const (
	EventLoad         = "load"
	EventUpload       = "upload"
	EventWheel        = "wheel"
	EventPointerDown  = "pointerdown"
	EventPointerMove  = "pointermove"
	EventPointerUp    = "pointerup"
	EventPointerLeave = "pointerleave"
	EventZoom         = "zoom"
	EventReset        = "reset"
	EventResize       = "resize"
	EventLayers       = "layers"
	EventLabels       = "labels"
)

type CreateViewerRequest struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	PixelRatio float64 `json:"pixelRatio"`
	MapID      string  `json:"mapId"`
}

type ActiveMapRequest struct {
	ID string `json:"id" binding:"required"`
}

// SocketMessage 服务端通过 WebSocket 发出的 JSON 消息，帧图像以二进制消息单独发送
type SocketMessage struct {
	Type    string                 `json:"type"`
	State   *services.SessionState `json:"state,omitempty"`
	Message string                 `json:"message,omitempty"`
}
