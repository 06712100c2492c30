package handler

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/memecal/internal/service"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

func renderMarkdown(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	safe := sanitizer.SanitizeBytes(buf.Bytes())
	return template.HTML(safe), nil
}

// ShowContribute 渲染贡献说明页面；date 参数可选，用于提示目标日期。
func (a *API) ShowContribute(c *gin.Context) {
	settings, err := a.system.GetSettings()
	if err != nil {
		c.Error(err)
	}

	guide, err := renderMarkdown(settings.ContributeGuide)
	if err != nil {
		guide = template.HTML("<p>La guía no está disponible en este momento.</p>")
	}

	dayLabel := ""
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		if date, err := a.gate.ParseDate(raw); err == nil {
			dayLabel = service.DayLabel(a.month, a.gate.GalleryIDFor(date))
		}
	}

	a.renderHTML(c, http.StatusOK, "contribute.html", gin.H{
		"title":         "Contribuir",
		"guide":         guide,
		"dayLabel":      dayLabel,
		"contributeUrl": settings.ContributeURL,
	})
}

// RedirectContribute 跳转到外部的贡献仓库。
func (a *API) RedirectContribute(c *gin.Context) {
	settings, err := a.system.GetSettings()
	if err != nil || strings.TrimSpace(settings.ContributeURL) == "" {
		a.renderError(c, http.StatusServiceUnavailable, "Contribuir", "El enlace para contribuir no está configurado.")
		return
	}
	c.Redirect(http.StatusFound, settings.ContributeURL)
}
