package views

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/GrainArc/RealmMap/ImgHandler"
	"github.com/GrainArc/RealmMap/response"
	"github.com/GrainArc/RealmMap/services"
	"github.com/gin-gonic/gin"
)

// ViewerHandler 查看器会话接口
type ViewerHandler struct {
	viewer      *services.ViewerService
	library     *services.MapLibrary
	uploadLimit int64
}

func NewViewerHandler(viewer *services.ViewerService, library *services.MapLibrary, uploadLimit int64) *ViewerHandler {
	return &ViewerHandler{viewer: viewer, library: library, uploadLimit: uploadLimit}
}

// Create 创建会话并加载指定地图，未指定时加载当前激活的地图
func (h *ViewerHandler) Create(c *gin.Context) {
	var req CreateViewerRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	if req.Width <= 0 || req.Height <= 0 {
		req.Width, req.Height = 1024, 768
	}
	sess := h.viewer.Create(req.Width, req.Height, req.PixelRatio)

	ctx := c.Request.Context()
	mapID := req.MapID
	if mapID == "" && h.library != nil {
		id, err := h.library.ActiveMapID(ctx)
		if err != nil {
			log.Printf("读取激活地图失败: %v", err)
		}
		mapID = id
	}
	if mapID != "" {
		if err := h.viewer.Load(ctx, sess, mapID); err != nil {
			log.Printf("会话 %s 加载地图 %s 失败: %v", sess.ID, mapID, err)
		}
	}
	response.Success(c, sess.State())
}

func (h *ViewerHandler) session(c *gin.Context) (*services.ViewerSession, bool) {
	sess, err := h.viewer.Get(c.Param("id"))
	if err != nil {
		writeError(c, err, "")
		return nil, false
	}
	return sess, true
}

func (h *ViewerHandler) State(c *gin.Context) {
	if sess, ok := h.session(c); ok {
		response.Success(c, sess.State())
	}
}

func (h *ViewerHandler) Delete(c *gin.Context) {
	if !h.viewer.Delete(c.Param("id")) {
		writeError(c, services.ErrSessionNotFound, "")
		return
	}
	response.SuccessWithMessage(c, "session closed", nil)
}

// apply 执行一个事件，返回画面是否需要重绘
func (h *ViewerHandler) apply(ctx context.Context, sess *services.ViewerSession, ev ViewerEvent) (bool, error) {
	switch ev.Type {
	case EventLoad:
		if ev.MapID == "" {
			return false, fmt.Errorf("mapId required: %w", services.ErrMapNotFound)
		}
		return true, h.viewer.Load(ctx, sess, ev.MapID)
	case EventUpload:
		if int64(len(ev.Document)) > h.uploadLimit {
			return false, errDocumentTooLarge
		}
		return true, h.viewer.LoadRaw(sess, ev.Name, ev.Document)
	case EventWheel:
		sess.Wheel(ev.DeltaY, ev.X, ev.Y)
		return ev.DeltaY != 0, nil
	case EventPointerDown:
		return sess.Pointer("down", ev.PointerID, ev.X, ev.Y)
	case EventPointerMove:
		return sess.Pointer("move", ev.PointerID, ev.X, ev.Y)
	case EventPointerUp:
		return sess.Pointer("up", ev.PointerID, ev.X, ev.Y)
	case EventPointerLeave:
		return sess.Pointer("leave", ev.PointerID, ev.X, ev.Y)
	case EventZoom:
		switch ev.Direction {
		case "in":
			sess.Zoom(true)
		case "out":
			sess.Zoom(false)
		default:
			return false, fmt.Errorf("zoom direction %q: %w", ev.Direction, services.ErrUnknownEvent)
		}
		return true, nil
	case EventReset:
		sess.Reset()
		return true, nil
	case EventResize:
		sess.Resize(ev.Width, ev.Height, ev.PixelRatio)
		return true, nil
	case EventLayers:
		sess.SetLayers(ev.Layers)
		return true, nil
	case EventLabels:
		if ev.Show == nil {
			return false, fmt.Errorf("labels event needs show: %w", services.ErrUnknownEvent)
		}
		sess.SetShowLabels(*ev.Show)
		return true, nil
	}
	return false, fmt.Errorf("event %q: %w", ev.Type, services.ErrUnknownEvent)
}

// handleEvent 生成绑定固定事件类型的处理函数
func (h *ViewerHandler) handleEvent(eventType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := h.session(c)
		if !ok {
			return
		}
		var ev ViewerEvent
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&ev); err != nil {
				response.BadRequest(c, err.Error())
				return
			}
		}
		ev.Type = eventType
		if _, err := h.apply(c.Request.Context(), sess, ev); err != nil {
			msg := ""
			if eventType == EventLoad {
				msg = sess.State().Error
			}
			writeError(c, err, msg)
			return
		}
		response.Success(c, sess.State())
	}
}

func (h *ViewerHandler) Load(c *gin.Context)   { h.handleEvent(EventLoad)(c) }
func (h *ViewerHandler) Wheel(c *gin.Context)  { h.handleEvent(EventWheel)(c) }
func (h *ViewerHandler) Zoom(c *gin.Context)   { h.handleEvent(EventZoom)(c) }
func (h *ViewerHandler) Reset(c *gin.Context)  { h.handleEvent(EventReset)(c) }
func (h *ViewerHandler) Resize(c *gin.Context) { h.handleEvent(EventResize)(c) }
func (h *ViewerHandler) Layers(c *gin.Context) { h.handleEvent(EventLayers)(c) }
func (h *ViewerHandler) Labels(c *gin.Context) { h.handleEvent(EventLabels)(c) }

// Pointer 请求体中的 type 为 down/move/up/leave
func (h *ViewerHandler) Pointer(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	var ev ViewerEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ev.Type = "pointer" + ev.Type
	if _, err := h.apply(c.Request.Context(), sess, ev); err != nil {
		writeError(c, err, "")
		return
	}
	response.Success(c, sess.State())
}

// Upload 上传文档直接载入会话，不写入地图库
func (h *ViewerHandler) Upload(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	raw, name, err := readDocument(c, h.uploadLimit)
	if err != nil {
		writeError(c, err, "")
		return
	}
	if err := h.viewer.LoadRaw(sess, name, raw); err != nil {
		writeError(c, err, sess.State().Error)
		return
	}
	response.Success(c, sess.State())
}

// Frame 当前视图的 PNG，视图无法计算时返回 204
func (h *ViewerHandler) Frame(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	data, err := h.viewer.Frame(c.Request.Context(), sess)
	if errors.Is(err, services.ErrDegenerate) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		writeError(c, err, "")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", data)
}

// Export 高分辨率导出，以附件形式下载
func (h *ViewerHandler) Export(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	format, err := ImgHandler.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	data, filename, err := h.viewer.Export(c.Request.Context(), sess, format)
	if err != nil {
		log.Printf("会话 %s 导出失败: %v", sess.ID, err)
		writeError(c, err, "Export failed: "+err.Error())
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, format.ContentType(), data)
}
