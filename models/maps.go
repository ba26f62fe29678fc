package models

import (
	"time"

	"gorm.io/datatypes"
)

// MapRecord 本地保存的地图文档
type MapRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:255;index"`
	Document  datatypes.JSON
	Size      int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppSetting 键值设置，例如当前激活的地图
type AppSetting struct {
	Name      string `gorm:"primaryKey;size:64"`
	Value     string
	UpdatedAt time.Time
}

const SettingActiveMap = "active_map"
