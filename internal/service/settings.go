package service

import (
	"context"
	"strings"

	"cafepos/internal/domain"
	"cafepos/internal/store"
)

type settingsInput struct {
	StoreName                string  `validate:"required,max=80"`
	VatPercentage            float64 `validate:"gte=0"`
	SeniorDiscountPercentage float64 `validate:"gte=0,lte=100"`
	PwdDiscountPercentage    float64 `validate:"gte=0,lte=100"`
}

func (s *Service) GetSettings(ctx context.Context) (domain.Settings, error) {
	return s.repo.GetSettings(ctx)
}

// UpdateSettings applies the supplied fields to the singleton.
func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.Settings, error) {
	current, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	if req.StoreName != nil {
		current.StoreName = strings.TrimSpace(*req.StoreName)
	}
	if req.VatPercentage != nil {
		current.VatPercentage = *req.VatPercentage
	}
	if req.SeniorDiscountPercentage != nil {
		current.SeniorDiscountPercentage = *req.SeniorDiscountPercentage
	}
	if req.PwdDiscountPercentage != nil {
		current.PwdDiscountPercentage = *req.PwdDiscountPercentage
	}

	if err := s.check(settingsInput(current)); err != nil {
		return domain.Settings{}, err
	}
	if err := s.Commit(ctx, store.NewUnitOfWork(store.UpdateSettings{Settings: current})); err != nil {
		return domain.Settings{}, err
	}
	return current, nil
}
