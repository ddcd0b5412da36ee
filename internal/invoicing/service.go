package invoicing

import (
	"context"

	"github.com/devibrahimzy/OpticienPro-app/internal/shared"
)

// RepositoryPort abstracts invoice reads.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Invoice, error)
	GetBySale(ctx context.Context, saleID int64) (Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, error)
}

// Service exposes the read side of invoices. Invoices are only written by
// the sale orchestrator through Issuer.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// GetInvoice loads an invoice.
func (s *Service) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.Get(ctx, id)
}

// GetInvoiceBySale loads the invoice of a sale.
func (s *Service) GetInvoiceBySale(ctx context.Context, saleID int64) (Invoice, error) {
	return s.repo.GetBySale(ctx, saleID)
}

// ListInvoices lists invoices.
func (s *Service) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, shared.NewValidationError("status", "must be one of pending partially_paid paid cancelled")
	}
	if filter.Year < 0 {
		return nil, shared.NewValidationError("year", "must be positive")
	}
	return s.repo.List(ctx, filter)
}
