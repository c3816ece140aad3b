package adapters

import (
	"context"
	"slices"

	"chart_backend/internal/feature/symbollist/domain/entity"
	"chart_backend/internal/feature/symbollist/usecase"
)

// staticRepository は設定ファイルの銘柄一覧をそのまま返すSymbolRepository実装です。
type staticRepository struct {
	symbols []entity.Symbol
}

var _ usecase.SymbolRepository = (*staticRepository)(nil)

// NewStaticRepository は与えられた順序を保つstaticRepositoryを生成します。
func NewStaticRepository(symbols []entity.Symbol) *staticRepository {
	return &staticRepository{symbols: slices.Clone(symbols)}
}

// ListActive は登録順に銘柄を返します。
func (r *staticRepository) ListActive(_ context.Context) ([]entity.Symbol, error) {
	out := make([]entity.Symbol, len(r.symbols))
	for i, s := range r.symbols {
		s.Locations = slices.Clone(s.Locations)
		out[i] = s
	}
	return out, nil
}
