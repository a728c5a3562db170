package engine

import (
	"context"

	"github.com/use-agent/cascade/models"
)

// Executor retrieves a target with one mechanism.
//
// ctx carries the per-attempt deadline. opts are the options materialized
// for the running strategy; retries of that strategy see the same values.
type Executor interface {
	// Mechanism returns the mechanism this executor implements.
	Mechanism() models.Mechanism

	// Execute performs a single attempt.
	Execute(ctx context.Context, target string, cfg *models.ScrapeConfig, opts models.RequestOptions) (Result, error)
}

// validate runs the configured validator, if any, against a response.
func validate(ctx context.Context, cfg *models.ScrapeConfig, mechanism models.Mechanism, response any) error {
	if cfg == nil || cfg.Options.Validate == nil {
		return nil
	}
	ok, err := cfg.Options.Validate(ctx, models.ValidationInput{Mechanism: mechanism, Response: response})
	if err != nil {
		return models.NewScrapeError(models.ErrCodeValidation, "validator returned an error", err)
	}
	if !ok {
		return models.NewScrapeError(models.ErrCodeValidation, "response rejected by validator", nil)
	}
	return nil
}
