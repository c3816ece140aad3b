// Package usecase implements the business logic for symbol-related operations.
package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"chart_backend/internal/feature/symbollist/domain/entity"
)

// SymbolRepository abstracts where the symbol catalog comes from (config file or database).
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type SymbolRepository interface {
	ListActive(ctx context.Context) ([]entity.Symbol, error)
}

// SymbolUsecase provides business logic for symbol operations.
type SymbolUsecase struct {
	repo SymbolRepository
}

// NewSymbolUsecase creates a new SymbolUsecase with the given repository.
func NewSymbolUsecase(r SymbolRepository) *SymbolUsecase {
	return &SymbolUsecase{repo: r}
}

// ListActiveSymbols returns all active symbols from the repository.
func (u *SymbolUsecase) ListActiveSymbols(ctx context.Context) ([]entity.Symbol, error) {
	return u.repo.ListActive(ctx)
}

// BuildCatalog loads the active symbols once and freezes them into a Catalog.
func (u *SymbolUsecase) BuildCatalog(ctx context.Context) (*entity.Catalog, error) {
	symbols, err := u.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	catalog, err := entity.NewCatalog(symbols)
	if err != nil {
		return nil, err
	}
	slog.Info("symbol catalog loaded", "symbols", catalog.Len(), "codes", catalog.Codes())
	return catalog, nil
}
