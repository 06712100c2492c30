package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memecal/internal/service"
	"gorm.io/gorm"
)

// API 汇总 HTTP 处理器共享的依赖。
type API struct {
	db        *gorm.DB
	gate      *service.DateGate
	galleries service.GalleryLoader
	month     time.Month
	assets    *service.AssetService
	analytics analyticsProvider
	system    *service.SystemSettingService
	now       func() time.Time
}

type siteViewModel struct {
	Name         string
	PublicFooter string
}

const siteSettingsContextKey = "__site_settings"

// NewAPI 构造带有共享服务的处理器集合。
func NewAPI(db *gorm.DB, gate *service.DateGate, resolver *service.GalleryResolver, contributeURL string) *API {
	return &API{
		db:        db,
		gate:      gate,
		galleries: resolver,
		month:     gate.Range().Month,
		assets:    service.NewAssetService(resolver.Source()),
		analytics: service.NewAnalyticsService(db),
		system:    service.NewSystemSettingService(db, contributeURL),
		now:       time.Now,
	}
}

// SetClock 替换当前时间来源，主要面向测试场景。
func (a *API) SetClock(now func() time.Time) {
	if now == nil {
		a.now = time.Now
		return
	}
	a.now = now
}

// DB 返回底层的 gorm 实例。
func (a *API) DB() *gorm.DB {
	return a.db
}

func (a *API) siteSettings(c *gin.Context) siteViewModel {
	if cached, exists := c.Get(siteSettingsContextKey); exists {
		if view, ok := cached.(siteViewModel); ok {
			return view
		}
	}

	settings, err := a.system.GetSettings()
	if err != nil {
		c.Error(err)
	}

	view := siteViewModel{
		Name:         strings.TrimSpace(settings.SiteName),
		PublicFooter: strings.TrimSpace(settings.FooterText),
	}
	if view.Name == "" {
		view.Name = service.DefaultSiteName
	}

	c.Set(siteSettingsContextKey, view)
	return view
}

func (a *API) renderHTML(c *gin.Context, status int, template string, data gin.H) {
	view := a.siteSettings(c)

	payload := gin.H{}
	for key, value := range data {
		payload[key] = value
	}

	if _, exists := payload["siteName"]; !exists {
		payload["siteName"] = view.Name
	}
	if _, exists := payload["sitePublicFooter"]; !exists {
		payload["sitePublicFooter"] = view.PublicFooter
	}

	c.HTML(status, template, payload)
}

func (a *API) renderError(c *gin.Context, status int, title, message string) {
	a.renderHTML(c, status, "error.html", gin.H{
		"title": title,
		"error": message,
	})
}
