package http

import (
	"context"

	"factorlens/pkg/contracts/domain"
)

// RegressionService defines the interface the regression handler depends on
type RegressionService interface {
	Run(ctx context.Context, params domain.RunParams) (*domain.RegressionRun, error)
	LatestRun() (*domain.RegressionRun, bool)
	RSquaredSeries() (domain.Series, error)
	CoefficientSeries(name string) (domain.Series, error)
}
