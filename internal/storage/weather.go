package storage

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LJTian/BharatPulse/internal/weather"
)

// WeatherCity 用户关注的城市列表
type WeatherCity struct {
	City      string    `gorm:"primaryKey;size:100" json:"city"`
	CreatedAt time.Time `json:"createdAt"`
}

// WeatherSnapshot 定时任务写入的天气快照，按城市保存 OpenWeatherMap 的解析结果
type WeatherSnapshot struct {
	City      string         `gorm:"primaryKey;size:100" json:"city"`
	Data      datatypes.JSON `json:"data"`
	FetchedAt time.Time      `gorm:"index" json:"fetchedAt"`
}

// Snapshot 解码后的快照
type Snapshot struct {
	City      string         `json:"city"`
	Report    weather.Report `json:"report"`
	FetchedAt time.Time      `json:"fetchedAt"`
}

func normalizeCity(city string) string {
	return toValidUTF8(strings.TrimSpace(city))
}

// ---------- 城市管理 ----------

// ListWeatherCities 返回所有关注的城市
func (s *Store) ListWeatherCities(ctx context.Context) ([]WeatherCity, error) {
	var cities []WeatherCity
	err := s.DB.WithContext(ctx).Order("created_at ASC").Find(&cities).Error
	return cities, err
}

// AddWeatherCity 添加关注城市（已存在则忽略）
func (s *Store) AddWeatherCity(ctx context.Context, city string) error {
	city = normalizeCity(city)
	c := WeatherCity{City: city, CreatedAt: time.Now()}
	return s.DB.WithContext(ctx).Where("city = ?", city).FirstOrCreate(&c).Error
}

// RemoveWeatherCity 移除关注城市及其快照
func (s *Store) RemoveWeatherCity(ctx context.Context, city string) error {
	city = normalizeCity(city)
	db := s.DB.WithContext(ctx)
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("city = ?", city).Delete(&WeatherSnapshot{}).Error; err != nil {
			return err
		}
		return tx.Where("city = ?", city).Delete(&WeatherCity{}).Error
	})
}

// ---------- 天气快照 ----------

// SaveWeatherSnapshot 写入或更新指定城市的快照
func (s *Store) SaveWeatherSnapshot(ctx context.Context, city string, r weather.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	snap := WeatherSnapshot{
		City:      normalizeCity(city),
		Data:      datatypes.JSON(data),
		FetchedAt: time.Now(),
	}
	return s.DB.WithContext(ctx).Save(&snap).Error
}

// GetWeatherSnapshot 获取指定城市的快照，不做过期判断
func (s *Store) GetWeatherSnapshot(ctx context.Context, city string) (*Snapshot, bool) {
	var row WeatherSnapshot
	silent := s.DB.WithContext(ctx).Session(&gorm.Session{Logger: s.DB.Logger.LogMode(logger.Silent)})
	if err := silent.Where("city = ?", normalizeCity(city)).First(&row).Error; err != nil {
		return nil, false
	}
	snap, err := decodeSnapshot(row)
	if err != nil {
		return nil, false
	}
	return snap, true
}

// ListWeatherSnapshots 获取所有关注城市的快照
func (s *Store) ListWeatherSnapshots(ctx context.Context) ([]Snapshot, error) {
	var rows []WeatherSnapshot
	err := s.DB.WithContext(ctx).
		Where("city IN (?)", s.DB.Model(&WeatherCity{}).Select("city")).
		Order("fetched_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := decodeSnapshot(row)
		if err != nil {
			continue
		}
		out = append(out, *snap)
	}
	return out, nil
}

func decodeSnapshot(row WeatherSnapshot) (*Snapshot, error) {
	var r weather.Report
	if err := json.Unmarshal(row.Data, &r); err != nil {
		return nil, err
	}
	return &Snapshot{City: row.City, Report: r, FetchedAt: row.FetchedAt}, nil
}
