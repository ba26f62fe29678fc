package services

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/GrainArc/RealmMap/geomap"
	"github.com/GrainArc/RealmMap/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed builtin/*.json
var builtinFS embed.FS

var (
	ErrMapNotFound    = errors.New("map not found")
	ErrReadOnlyMap    = errors.New("map is read-only")
	ErrNoLocalStorage = errors.New("local map storage is not configured")
)

type MapSource string

const (
	SourceBuiltin  MapSource = "builtin"
	SourceLocal    MapSource = "local"
	SourceSupabase MapSource = "supabase"
)

// MapEntry 地图库条目
type MapEntry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Source    MapSource `json:"source"`
	UpdatedAt time.Time `json:"updatedAt"`
	Size      int64     `json:"size"`
}

// MapLibrary 汇总内置、本地数据库和远程行存储三类地图
type MapLibrary struct {
	db        *gorm.DB
	remote    *RowStoreClient
	defaultID string
	builtin   []MapEntry
	builtinFS fs.FS
}

// NewMapLibrary db 与 remote 均可为 nil，对应来源即被关闭
func NewMapLibrary(db *gorm.DB, remote *RowStoreClient, defaultID string) (*MapLibrary, error) {
	lib := &MapLibrary{db: db, remote: remote, defaultID: defaultID, builtinFS: builtinFS}
	if err := lib.indexBuiltin(); err != nil {
		return nil, err
	}
	return lib, nil
}

func (l *MapLibrary) indexBuiltin() error {
	files, err := fs.Glob(l.builtinFS, "builtin/*.json")
	if err != nil {
		return fmt.Errorf("list builtin maps: %w", err)
	}
	for _, file := range files {
		raw, err := fs.ReadFile(l.builtinFS, file)
		if err != nil {
			return fmt.Errorf("read builtin map %s: %w", file, err)
		}
		slug := strings.TrimSuffix(path.Base(file), ".json")
		name := slug
		if m, err := geomap.Normalize(raw); err == nil && m.Name() != "" {
			name = m.Name()
		}
		l.builtin = append(l.builtin, MapEntry{
			ID:     string(SourceBuiltin) + ":" + slug,
			Name:   name,
			Source: SourceBuiltin,
			Size:   int64(len(raw)),
		})
	}
	sort.Slice(l.builtin, func(i, j int) bool { return l.builtin[i].Name < l.builtin[j].Name })
	return nil
}

// ListMaps 远程来源失败时只记录日志
func (l *MapLibrary) ListMaps(ctx context.Context) ([]MapEntry, error) {
	entries := append([]MapEntry(nil), l.builtin...)

	if l.db != nil {
		var records []models.MapRecord
		err := l.db.WithContext(ctx).
			Select("id", "name", "size", "updated_at").
			Order("updated_at desc").
			Find(&records).Error
		if err != nil {
			return nil, fmt.Errorf("list local maps: %w", err)
		}
		for _, rec := range records {
			entries = append(entries, localEntry(rec))
		}
	}

	if l.remote != nil {
		rows, err := l.remote.List(ctx)
		if err != nil {
			log.Printf("supabase 地图列表获取失败: %v", err)
		}
		for _, row := range rows {
			entries = append(entries, MapEntry{
				ID:        string(SourceSupabase) + ":" + row.ID,
				Name:      row.Name,
				Source:    SourceSupabase,
				UpdatedAt: row.UpdatedAt,
			})
		}
	}
	return entries, nil
}

func localEntry(rec models.MapRecord) MapEntry {
	return MapEntry{
		ID:        string(SourceLocal) + ":" + rec.ID,
		Name:      rec.Name,
		Source:    SourceLocal,
		UpdatedAt: rec.UpdatedAt,
		Size:      rec.Size,
	}
}

func splitMapID(id string) (MapSource, string, bool) {
	source, key, ok := strings.Cut(id, ":")
	if !ok || key == "" {
		return "", "", false
	}
	return MapSource(source), key, true
}

// LoadMap 返回条目和原始文档
func (l *MapLibrary) LoadMap(ctx context.Context, id string) (MapEntry, []byte, error) {
	source, key, ok := splitMapID(id)
	if !ok {
		return MapEntry{}, nil, fmt.Errorf("map %q: %w", id, ErrMapNotFound)
	}

	switch source {
	case SourceBuiltin:
		for _, entry := range l.builtin {
			if entry.ID == id {
				raw, err := fs.ReadFile(l.builtinFS, "builtin/"+key+".json")
				if err != nil {
					return MapEntry{}, nil, fmt.Errorf("read builtin map %s: %w", key, err)
				}
				return entry, raw, nil
			}
		}
	case SourceLocal:
		if l.db == nil {
			break
		}
		var rec models.MapRecord
		err := l.db.WithContext(ctx).First(&rec, "id = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			break
		}
		if err != nil {
			return MapEntry{}, nil, fmt.Errorf("load local map %s: %w", key, err)
		}
		return localEntry(rec), []byte(rec.Document), nil
	case SourceSupabase:
		if l.remote == nil {
			break
		}
		row, err := l.remote.Get(ctx, key)
		if err != nil {
			return MapEntry{}, nil, err
		}
		return MapEntry{
			ID:        id,
			Name:      row.Name,
			Source:    SourceSupabase,
			UpdatedAt: row.UpdatedAt,
			Size:      int64(len(row.Data)),
		}, row.Data, nil
	}
	return MapEntry{}, nil, fmt.Errorf("map %q: %w", id, ErrMapNotFound)
}

// DefaultMapID 配置的默认地图，未配置时取第一张内置地图
func (l *MapLibrary) DefaultMapID() string {
	if l.defaultID != "" {
		return l.defaultID
	}
	if len(l.builtin) > 0 {
		return l.builtin[0].ID
	}
	return ""
}

func (l *MapLibrary) ActiveMapID(ctx context.Context) (string, error) {
	if l.db == nil {
		return l.DefaultMapID(), nil
	}
	var setting models.AppSetting
	err := l.db.WithContext(ctx).First(&setting, "name = ?", models.SettingActiveMap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && setting.Value == "") {
		return l.DefaultMapID(), nil
	}
	if err != nil {
		return "", fmt.Errorf("read active map: %w", err)
	}
	return setting.Value, nil
}

func (l *MapLibrary) SetActiveMapID(ctx context.Context, id string) error {
	if l.db == nil {
		return ErrNoLocalStorage
	}
	if _, _, err := l.LoadMap(ctx, id); err != nil {
		return err
	}
	setting := models.AppSetting{Name: models.SettingActiveMap, Value: id}
	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("save active map: %w", err)
	}
	return nil
}

// SaveLocal 校验后存入本地库，name 为空时使用文档 meta 中的名称
func (l *MapLibrary) SaveLocal(ctx context.Context, name string, raw []byte) (MapEntry, error) {
	if l.db == nil {
		return MapEntry{}, ErrNoLocalStorage
	}
	m, err := geomap.Normalize(raw)
	if err != nil {
		return MapEntry{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = m.Name()
	}
	if name == "" {
		name = "Untitled map"
	}

	rec := models.MapRecord{
		ID:       uuid.NewString(),
		Name:     name,
		Document: datatypes.JSON(raw),
		Size:     int64(len(raw)),
	}
	if err := l.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return MapEntry{}, fmt.Errorf("save local map: %w", err)
	}
	return localEntry(rec), nil
}

// DeleteLocal 只允许删除本地地图
func (l *MapLibrary) DeleteLocal(ctx context.Context, id string) error {
	source, key, ok := splitMapID(id)
	if !ok {
		return fmt.Errorf("map %q: %w", id, ErrMapNotFound)
	}
	if source != SourceLocal {
		return fmt.Errorf("map %q: %w", id, ErrReadOnlyMap)
	}
	if l.db == nil {
		return ErrNoLocalStorage
	}
	// 删除当前激活的地图时一并清除设置，之后回落到默认地图
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.MapRecord{}, "id = ?", key)
		if res.Error != nil {
			return fmt.Errorf("delete local map: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("map %q: %w", id, ErrMapNotFound)
		}
		err := tx.Where("name = ? AND value = ?", models.SettingActiveMap, id).Delete(&models.AppSetting{}).Error
		if err != nil {
			return fmt.Errorf("clear active map: %w", err)
		}
		return nil
	})
}
