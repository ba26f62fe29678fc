package views

import (
	"log"
	"net/http"

	"github.com/GrainArc/RealmMap/ImgHandler"
	"github.com/GrainArc/RealmMap/geomap"
	"github.com/GrainArc/RealmMap/response"
	"github.com/GrainArc/RealmMap/services"
	"github.com/gin-gonic/gin"
)

// MapHandler 地图库接口
type MapHandler struct {
	library     *services.MapLibrary
	uploadLimit int64
}

func NewMapHandler(library *services.MapLibrary, uploadLimit int64) *MapHandler {
	return &MapHandler{library: library, uploadLimit: uploadLimit}
}

func (h *MapHandler) ListMaps(c *gin.Context) {
	entries, err := h.library.ListMaps(c.Request.Context())
	if err != nil {
		log.Printf("获取地图列表失败: %v", err)
		writeError(c, err, "")
		return
	}
	response.Success(c, entries)
}

func (h *MapHandler) GetActive(c *gin.Context) {
	id, err := h.library.ActiveMapID(c.Request.Context())
	if err != nil {
		writeError(c, err, "")
		return
	}
	response.Success(c, gin.H{"id": id, "default": h.library.DefaultMapID()})
}

func (h *MapHandler) SetActive(c *gin.Context) {
	var req ActiveMapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.library.SetActiveMapID(c.Request.Context(), req.ID); err != nil {
		writeError(c, err, "")
		return
	}
	response.SuccessWithMessage(c, "active map updated", gin.H{"id": req.ID})
}

// GetMap 返回原始地图文档
func (h *MapHandler) GetMap(c *gin.Context) {
	_, raw, err := h.library.LoadMap(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, "")
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

// UploadMap 校验后保存为本地地图
func (h *MapHandler) UploadMap(c *gin.Context) {
	raw, name, err := readDocument(c, h.uploadLimit)
	if err != nil {
		writeError(c, err, "")
		return
	}
	entry, err := h.library.SaveLocal(c.Request.Context(), name, raw)
	if err != nil {
		writeError(c, err, "")
		return
	}
	log.Printf("保存本地地图 %s (%s, %d bytes)", entry.Name, entry.ID, entry.Size)
	response.Success(c, entry)
}

func (h *MapHandler) DeleteMap(c *gin.Context) {
	if err := h.library.DeleteLocal(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err, "")
		return
	}
	response.SuccessWithMessage(c, "map deleted", nil)
}

// Legend 图层图例，带 id 参数时只列出该地图包含的图层
func (h *MapHandler) Legend(c *gin.Context) {
	var m *geomap.NormalizedMap
	if id := c.Query("id"); id != "" {
		_, raw, err := h.library.LoadMap(c.Request.Context(), id)
		if err != nil {
			writeError(c, err, "")
			return
		}
		if m, err = geomap.Normalize(raw); err != nil {
			writeError(c, err, "")
			return
		}
	}
	img, err := ImgHandler.TLImgMake(m, nil)
	if err != nil {
		writeError(c, err, "")
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}

// Layers 固定绘制顺序的图层列表
func (h *MapHandler) Layers(c *gin.Context) {
	response.Success(c, ImgHandler.LayerIDs())
}
