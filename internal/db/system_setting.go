package db

import "gorm.io/gorm"

// SystemSetting 存储后台可配置的系统级键值对。
type SystemSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	// SettingKeySiteName 表示站点名称。
	SettingKeySiteName = "site_name"
	// SettingKeyContributeURL 表示“贡献 meme”外链。
	SettingKeyContributeURL = "contribute_url"
	// SettingKeyContributeGuide 表示贡献说明（Markdown）。
	SettingKeyContributeGuide = "contribute_guide"
	// SettingKeyFooterText 表示前台页脚文案。
	SettingKeyFooterText = "footer_text"
)
