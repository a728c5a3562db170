package engine

import (
	"context"
	"reflect"

	"github.com/use-agent/cascade/models"
)

// CustomExecutor calls the caller-supplied retrieval function.
type CustomExecutor struct{}

func (CustomExecutor) Mechanism() models.Mechanism { return models.MechanismCustom }

// Execute fails with a configuration error when no function is configured.
// Only nil counts as "no response", including a nil pointer, map, slice,
// channel or func stored in the interface; false, 0 and "" are results.
func (CustomExecutor) Execute(ctx context.Context, target string, cfg *models.ScrapeConfig, opts models.RequestOptions) (Result, error) {
	if cfg == nil || cfg.Custom == nil {
		return nil, models.NewScrapeError(models.ErrCodeConfig, "custom strategy requires a custom function", nil)
	}

	value, err := cfg.Custom(ctx, target, opts)
	if err != nil {
		return nil, categorizeError(err, "custom function failed")
	}
	if isNil(value) {
		return nil, models.NewScrapeError(models.ErrCodeNoResponse, "custom function returned no response", nil)
	}

	if err := validate(ctx, cfg, models.MechanismCustom, value); err != nil {
		return nil, err
	}
	return &CustomResult{Value: value}, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
