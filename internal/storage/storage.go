package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/LJTian/BharatPulse/internal/processor"
)

// FeedSource 一个订阅源，例如 Sakshi / Eenadu
type FeedSource struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:128;uniqueIndex" json:"name"`
	URL      string `gorm:"size:1024" json:"url"`
	Category string `gorm:"size:64;index" json:"category"`
	Status   string `gorm:"size:32;index" json:"status"` // active / disabled

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

var (
	ErrSourceNotFound = errors.New("storage: source not found")
	ErrInvalidStatus  = errors.New("storage: invalid source status")
)

type Store struct {
	DB *gorm.DB
}

// Open driver 为 postgres 或 sqlite
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "", "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", driver, err)
	}
	return NewStore(db)
}

func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&FeedSource{}, &WeatherCity{}, &WeatherSnapshot{}); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return &Store{DB: db}, nil
}

// toValidUTF8 将字符串规范为合法 UTF-8，避免 PostgreSQL invalid byte sequence 错误
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// EnsureSource 确保订阅源存在；已存在时同步 URL 与分类
func (s *Store) EnsureSource(ctx context.Context, name, url, category string) (*FeedSource, error) {
	name = toValidUTF8(strings.TrimSpace(name))
	if name == "" {
		return nil, errors.New("storage: empty source name")
	}
	db := s.DB.WithContext(ctx)

	src := &FeedSource{}
	err := db.Where("name = ?", name).First(src).Error
	if err == nil {
		if src.URL != url || src.Category != category {
			if err := db.Model(src).Updates(map[string]any{"url": url, "category": category}).Error; err != nil {
				return nil, err
			}
		}
		return src, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	src = &FeedSource{
		Name:     name,
		URL:      url,
		Category: category,
		Status:   StatusActive,
	}
	if err := db.Create(src).Error; err != nil {
		return nil, err
	}
	return src, nil
}

// SetSourceStatus 启用或停用订阅源
func (s *Store) SetSourceStatus(ctx context.Context, name, status string) error {
	if status != StatusActive && status != StatusDisabled {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	res := s.DB.WithContext(ctx).Model(&FeedSource{}).Where("name = ?", name).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSourceNotFound
	}
	return nil
}

// ListSources 返回启用的订阅源，按创建顺序
func (s *Store) ListSources(ctx context.Context) ([]processor.Source, error) {
	var rows []FeedSource
	err := s.DB.WithContext(ctx).
		Where("status = ?", StatusActive).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]processor.Source, 0, len(rows))
	for _, r := range rows {
		out = append(out, processor.Source{Name: r.Name, URL: r.URL, Category: r.Category})
	}
	return out, nil
}
