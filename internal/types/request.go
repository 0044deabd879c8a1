package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-core/pkg/errors"
)

// DateLayout is the calendar date format accepted by run requests.
const DateLayout = "2006-01-02"

// DefaultInitialCash is used when a request does not set initial cash.
const DefaultInitialCash = 10000.0

// RunRequest asks for one backtest run.
type RunRequest struct {
	Strategy    string         `yaml:"strategy" json:"strategy" validate:"required"`
	Symbol      string         `yaml:"symbol" json:"symbol" validate:"required"`
	StartDate   string         `yaml:"start_date" json:"start_date" validate:"required"`
	EndDate     string         `yaml:"end_date" json:"end_date" validate:"required"`
	Params      map[string]any `yaml:"params" json:"params"`
	InitialCash float64        `yaml:"initial_cash" json:"initial_cash" validate:"gte=0"`
}

// Validate checks required fields and that start precedes end.
func (r RunRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid run request", err)
	}

	_, _, err := r.Range()

	return err
}

// Range parses the start and end dates as UTC midnights.
func (r RunRequest) Range() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, r.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrapf(errors.ErrCodeInvalidDate, err, "invalid start date %q, expected YYYY-MM-DD", r.StartDate)
	}

	end, err := time.Parse(DateLayout, r.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrapf(errors.ErrCodeInvalidDate, err, "invalid end date %q, expected YYYY-MM-DD", r.EndDate)
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, errors.Newf(errors.ErrCodeInvalidDateRange, "start date %s must precede end date %s", r.StartDate, r.EndDate)
	}

	return start, end, nil
}

// Cash returns the initial cash, falling back to DefaultInitialCash.
func (r RunRequest) Cash() float64 {
	if r.InitialCash <= 0 {
		return DefaultInitialCash
	}

	return r.InitialCash
}
