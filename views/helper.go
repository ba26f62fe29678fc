package views

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/GrainArc/RealmMap/ImgHandler"
	"github.com/GrainArc/RealmMap/geomap"
	"github.com/GrainArc/RealmMap/response"
	"github.com/GrainArc/RealmMap/services"
	"github.com/gin-gonic/gin"
)

var (
	errDocumentTooLarge = errors.New("map document too large")
	errMissingFile      = errors.New("missing file field")
)

// writeError 按错误类型映射状态码
func writeError(c *gin.Context, err error, msg string) {
	if msg == "" {
		msg = err.Error()
	}
	switch {
	case errors.Is(err, services.ErrMapNotFound), errors.Is(err, services.ErrSessionNotFound):
		response.NotFound(c, msg)
	case errors.Is(err, services.ErrReadOnlyMap):
		response.Error(c, http.StatusForbidden, msg)
	case errors.Is(err, geomap.ErrInvalidDocument), errors.Is(err, services.ErrUnknownEvent), errors.Is(err, errMissingFile):
		response.BadRequest(c, msg)
	case errors.Is(err, errDocumentTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, msg)
	case errors.Is(err, ImgHandler.ErrUnfitBounds):
		response.Error(c, http.StatusUnprocessableEntity, msg)
	case errors.Is(err, services.ErrNoLocalStorage):
		response.Error(c, http.StatusServiceUnavailable, msg)
	case errors.Is(err, services.ErrNoMap), errors.Is(err, services.ErrStaleLoad):
		response.Conflict(c, msg)
	default:
		response.InternalError(c, msg)
	}
}

// readDocument 读取上传的地图文档，支持 multipart 的 file 字段或直接的 JSON 请求体
func readDocument(c *gin.Context, limit int64) ([]byte, string, error) {
	name := strings.TrimSpace(c.Query("name"))
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return nil, "", errMissingFile
		}
		if n := strings.TrimSpace(c.PostForm("name")); n != "" {
			name = n
		}
		if name == "" {
			name = strings.TrimSuffix(fileHeader.Filename, filepath.Ext(fileHeader.Filename))
		}
		raw, err := readLimitedFile(fileHeader, limit)
		return raw, name, err
	}
	raw, err := readLimited(c.Request.Body, limit)
	return raw, name, err
}

func readLimitedFile(fileHeader *multipart.FileHeader, limit int64) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()
	return readLimited(file, limit)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(raw)) > limit {
		return nil, errDocumentTooLarge
	}
	return raw, nil
}
