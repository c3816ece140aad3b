// Package adapters はsymbollistフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"

	"chart_backend/internal/feature/symbollist/domain/entity"
	"chart_backend/internal/feature/symbollist/usecase"
)

// symbolModel は symbols テーブルの行です。
type symbolModel struct {
	ID        uint          `gorm:"primaryKey"`
	Code      string        `gorm:"size:20;not null;uniqueIndex"`
	Name      string        `gorm:"size:255;not null"`
	IsActive  bool          `gorm:"not null;default:true"`
	SortKey   int           `gorm:"not null;default:0"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime"`
	Sources   []sourceModel `gorm:"foreignKey:SymbolID;constraint:OnDelete:CASCADE"`
}

func (symbolModel) TableName() string { return "symbols" }

// sourceModel は symbol_sources テーブルの行です。1銘柄の分割ファイル1つに対応します。
type sourceModel struct {
	ID       uint   `gorm:"primaryKey"`
	SymbolID uint   `gorm:"not null;index"`
	Location string `gorm:"size:1024;not null"`
	// Position は同一銘柄内での読み込み順です。重複時刻は小さい方が優先されます。
	Position int `gorm:"not null;default:0"`
}

func (sourceModel) TableName() string { return "symbol_sources" }

// symbolGorm はSymbolRepositoryインターフェースのGORM実装です（SQLite / PostgreSQL）。
type symbolGorm struct {
	db *gorm.DB
}

var _ usecase.SymbolRepository = (*symbolGorm)(nil)

// NewSymbolRepository は指定されたDB接続でsymbolGormリポジトリの新しいインスタンスを生成します。
func NewSymbolRepository(db *gorm.DB) *symbolGorm {
	return &symbolGorm{db: db}
}

// Migrate はカタログ用のテーブルを作成します。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&symbolModel{}, &sourceModel{})
}

// ListActive はsort_key順にすべてのアクティブな銘柄を、ソースをposition順に並べて返します。
func (r *symbolGorm) ListActive(ctx context.Context) ([]entity.Symbol, error) {
	var rows []symbolModel
	if err := r.db.WithContext(ctx).
		Preload("Sources", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Where("is_active = ?", true).
		Order("sort_key ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	symbols := make([]entity.Symbol, 0, len(rows))
	for _, row := range rows {
		locations := make([]string, 0, len(row.Sources))
		for _, s := range row.Sources {
			locations = append(locations, s.Location)
		}
		symbols = append(symbols, entity.Symbol{Code: row.Code, Name: row.Name, Locations: locations})
	}
	return symbols, nil
}

// Upsert は銘柄とそのソース一覧を登録します。既存のソースは置き換えられます。
func (r *symbolGorm) Upsert(ctx context.Context, s entity.Symbol, sortKey int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := symbolModel{Code: s.Code}
		if err := tx.Where("code = ?", s.Code).FirstOrCreate(&row).Error; err != nil {
			return err
		}
		if err := tx.Model(&row).Updates(map[string]any{"name": s.Name, "sort_key": sortKey, "is_active": true}).Error; err != nil {
			return err
		}
		if err := tx.Where("symbol_id = ?", row.ID).Delete(&sourceModel{}).Error; err != nil {
			return err
		}
		for i, loc := range s.Locations {
			if err := tx.Create(&sourceModel{SymbolID: row.ID, Location: loc, Position: i}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
