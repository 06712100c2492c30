package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/memecal/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultSiteName 是未配置站点名称时使用的默认值。
const DefaultSiteName = "Calendario de Memes"

// DefaultContributeGuide 是未配置贡献说明时展示的 Markdown。
const DefaultContributeGuide = `## ¿Cómo contribuir?

1. Haz un fork del repositorio.
2. Agrega tu meme en la carpeta del día correspondiente.
3. Abre un pull request.`

// ErrInvalidContributeURL 表示贡献链接不是合法的 http(s) 地址。
var ErrInvalidContributeURL = errors.New("contribute url must be an absolute http(s) url")

// SystemSettings 描述后台可配置的系统信息。
type SystemSettings struct {
	SiteName        string `json:"siteName"`
	ContributeURL   string `json:"contributeUrl"`
	ContributeGuide string `json:"contributeGuide"`
	FooterText      string `json:"footerText"`
}

// SystemSettingsInput 用于更新系统设置。
type SystemSettingsInput struct {
	SiteName        string `json:"siteName"`
	ContributeURL   string `json:"contributeUrl"`
	ContributeGuide string `json:"contributeGuide"`
	FooterText      string `json:"footerText"`
}

// SystemSettingService 提供系统设置的读取与更新能力。
type SystemSettingService struct {
	db                   *gorm.DB
	defaultContributeURL string
}

// NewSystemSettingService 构造 SystemSettingService，defaultContributeURL 来自配置。
func NewSystemSettingService(gdb *gorm.DB, defaultContributeURL string) *SystemSettingService {
	return &SystemSettingService{db: gdb, defaultContributeURL: strings.TrimSpace(defaultContributeURL)}
}

var settingKeys = []string{
	db.SettingKeySiteName,
	db.SettingKeyContributeURL,
	db.SettingKeyContributeGuide,
	db.SettingKeyFooterText,
}

// GetSettings 读取系统设置，如未设置将返回默认值。
func (s *SystemSettingService) GetSettings() (SystemSettings, error) {
	result := SystemSettings{
		SiteName:        DefaultSiteName,
		ContributeURL:   s.defaultContributeURL,
		ContributeGuide: DefaultContributeGuide,
	}

	var records []db.SystemSetting
	if err := s.db.Where("key IN ?", settingKeys).Find(&records).Error; err != nil {
		return result, fmt.Errorf("load system settings: %w", err)
	}

	for _, record := range records {
		value := strings.TrimSpace(record.Value)
		switch record.Key {
		case db.SettingKeySiteName:
			if value != "" {
				result.SiteName = value
			}
		case db.SettingKeyContributeURL:
			if value != "" {
				result.ContributeURL = value
			}
		case db.SettingKeyContributeGuide:
			if value != "" {
				result.ContributeGuide = record.Value
			}
		case db.SettingKeyFooterText:
			result.FooterText = value
		}
	}

	return result, nil
}

// UpdateSettings 保存系统设置，空值回退为默认值。
func (s *SystemSettingService) UpdateSettings(input SystemSettingsInput) (SystemSettings, error) {
	sanitized := SystemSettings{
		SiteName:        strings.TrimSpace(input.SiteName),
		ContributeURL:   strings.TrimSpace(input.ContributeURL),
		ContributeGuide: strings.TrimSpace(input.ContributeGuide),
		FooterText:      strings.TrimSpace(input.FooterText),
	}

	if sanitized.ContributeURL != "" && !isHTTPURL(sanitized.ContributeURL) {
		return SystemSettings{}, ErrInvalidContributeURL
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := upsertSetting(tx, db.SettingKeySiteName, sanitized.SiteName); err != nil {
			return err
		}
		if err := upsertSetting(tx, db.SettingKeyContributeURL, sanitized.ContributeURL); err != nil {
			return err
		}
		if err := upsertSetting(tx, db.SettingKeyContributeGuide, sanitized.ContributeGuide); err != nil {
			return err
		}
		return upsertSetting(tx, db.SettingKeyFooterText, sanitized.FooterText)
	})
	if err != nil {
		return SystemSettings{}, fmt.Errorf("update system settings: %w", err)
	}

	return s.GetSettings()
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.SystemSetting{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}

func isHTTPURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
