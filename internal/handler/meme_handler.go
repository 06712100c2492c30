package handler

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/memecal/internal/service"
	"github.com/rs/zerolog/log"
)

const (
	minZoom     = 0.1
	maxZoom     = 3.0
	zoomStep    = 0.1
	defaultZoom = 1.0
)

// parseZoom 解析缩放倍数，非法值回退为 1.0，并限制在 [0.1, 3.0] 且对齐到 0.1。
func parseZoom(raw string) float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return defaultZoom
	}
	return clampZoom(value)
}

func clampZoom(value float64) float64 {
	value = math.Round(value/zoomStep) * zoomStep
	return math.Round(math.Min(maxZoom, math.Max(minZoom, value))*10) / 10
}

func formatZoom(value float64) string {
	return strconv.FormatFloat(value, 'f', 1, 64)
}

// ShowMeme 渲染单个 meme 的详情页，支持 zoom 查询参数。
func (a *API) ShowMeme(c *gin.Context) {
	date, ok := a.dayParam(c)
	if !ok {
		return
	}
	galleryID := a.gate.GalleryIDFor(date)

	item, ok := a.lookupItem(c, galleryID)
	if !ok {
		a.renderError(c, http.StatusNotFound, "Meme no encontrado", "Este meme no existe en la galería del día.")
		return
	}

	zoom := parseZoom(c.DefaultQuery("zoom", formatZoom(defaultZoom)))
	a.renderHTML(c, http.StatusOK, "meme.html", gin.H{
		"title":       item.Title,
		"heading":     service.DayHeading(a.month, galleryID),
		"date":        date.Format(service.DateLayout),
		"item":        item,
		"zoom":        formatZoom(zoom),
		"zoomIn":      formatZoom(clampZoom(zoom + zoomStep)),
		"zoomOut":     formatZoom(clampZoom(zoom - zoomStep)),
		"zoomPercent": int(math.Round(zoom * 100)),
	})
}

// DownloadMeme 以附件形式返回 meme；读取失败时重定向到原始地址。
func (a *API) DownloadMeme(c *gin.Context) {
	date, ok := a.dayParam(c)
	if !ok {
		return
	}
	galleryID := a.gate.GalleryIDFor(date)

	item, ok := a.lookupItem(c, galleryID)
	if !ok {
		a.renderError(c, http.StatusNotFound, "Meme no encontrado", "Este meme no existe en la galería del día.")
		return
	}

	asset, err := a.assets.Open(c.Request.Context(), galleryID, item)
	if err != nil {
		log.Warn().Err(err).Int("gallery", galleryID).Str("file", item.Filename).Msg("download failed, redirecting to asset")
		c.Redirect(http.StatusFound, item.MediaRef)
		return
	}
	defer asset.Body.Close()

	c.DataFromReader(http.StatusOK, -1, asset.ContentType, asset.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, asset.Filename),
	})
}

func (a *API) lookupItem(c *gin.Context, galleryID int) (service.GalleryItem, bool) {
	id, err := parsePositiveIntParam(c, "id")
	if err != nil {
		return service.GalleryItem{}, false
	}
	return a.galleries.Resolve(c.Request.Context(), galleryID).Item(id)
}
