package routers

import (
	"github.com/GrainArc/RealmMap/views"
	"github.com/gin-gonic/gin"
)

func MapRouters(r *gin.Engine, maps *views.MapHandler, viewer *views.ViewerHandler) {
	mapRouter := r.Group("/maps")
	{
		mapRouter.GET("", maps.ListMaps)
		mapRouter.POST("", maps.UploadMap)
		mapRouter.GET("/active", maps.GetActive)
		mapRouter.PUT("/active", maps.SetActive)
		mapRouter.GET("/layers", maps.Layers)
		mapRouter.GET("/legend.png", maps.Legend)
		mapRouter.GET("/:id", maps.GetMap)
		mapRouter.DELETE("/:id", maps.DeleteMap)
	}

	viewerRouter := r.Group("/viewer")
	{
		viewerRouter.POST("", viewer.Create)
		viewerRouter.GET("/:id", viewer.State)
		viewerRouter.DELETE("/:id", viewer.Delete)
		viewerRouter.POST("/:id/load", viewer.Load)
		viewerRouter.POST("/:id/upload", viewer.Upload)
		viewerRouter.POST("/:id/wheel", viewer.Wheel)
		viewerRouter.POST("/:id/pointer", viewer.Pointer)
		viewerRouter.POST("/:id/zoom", viewer.Zoom)
		viewerRouter.POST("/:id/reset", viewer.Reset)
		viewerRouter.POST("/:id/resize", viewer.Resize)
		viewerRouter.PUT("/:id/layers", viewer.Layers)
		viewerRouter.PUT("/:id/labels", viewer.Labels)
		viewerRouter.GET("/:id/frame.png", viewer.Frame)
		viewerRouter.GET("/:id/export", viewer.Export)
		viewerRouter.GET("/:id/ws", viewer.Socket)
	}
}
