package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/memecal/internal/service"
)

// HealthCheck 提供部署平台与监控系统使用的健康检查端点。
func (a *API) HealthCheck(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "database handle unavailable",
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "up",
	})
}

type systemSettingsRequest struct {
	SiteName        string `json:"siteName"`
	ContributeURL   string `json:"contributeUrl"`
	ContributeGuide string `json:"contributeGuide"`
	FooterText      string `json:"footerText"`
}

// GetSystemSettings 返回当前系统设置。
func (a *API) GetSystemSettings(c *gin.Context) {
	settings, err := a.system.GetSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load settings")
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// UpdateSystemSettings 保存系统设置。
func (a *API) UpdateSystemSettings(c *gin.Context) {
	var payload systemSettingsRequest
	if !bindJSON(c, &payload, "invalid settings payload") {
		return
	}

	settings, err := a.system.UpdateSettings(payload.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidContributeURL):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "failed to save settings")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "settings saved",
		"settings": settings,
	})
}

func (r systemSettingsRequest) toInput() service.SystemSettingsInput {
	return service.SystemSettingsInput{
		SiteName:        r.SiteName,
		ContributeURL:   r.ContributeURL,
		ContributeGuide: r.ContributeGuide,
		FooterText:      r.FooterText,
	}
}

// GetStats 返回全站与各日期的浏览统计。
func (a *API) GetStats(c *gin.Context) {
	overview, err := a.analytics.Overview(10)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load stats")
		return
	}

	keys := make([]string, 0)
	for _, d := range a.gate.Days() {
		keys = append(keys, d.Format(service.DateLayout))
	}
	days, err := a.analytics.DayStatsMap(keys)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"overview": overview,
		"days":     days,
	})
}
