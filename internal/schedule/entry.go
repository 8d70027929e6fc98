package schedule

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-forecast-bot/internal/weather"
)

var validate = validator.New()

// Entry is a configured time of day at which a forecast for Location is posted.
type Entry struct {
	Hours      int              `json:"hours" validate:"min=0,max=23"`
	Minutes    int              `json:"minutes" validate:"min=0,max=59"`
	Location   weather.Location `json:"location"`
	ScreenName string           `json:"screenName,omitempty"`
}

// Validate reports the first problem with e, if any.
func (e Entry) Validate() error {
	if err := validate.Struct(e); err != nil {
		return err
	}
	if !e.Location.Point.Valid() {
		return fmt.Errorf("point %v out of range", e.Location.Point)
	}
	return nil
}

// Clock renders the entry's time as HH:MM.
func (e Entry) Clock() string {
	return fmt.Sprintf("%02d:%02d", e.Hours, e.Minutes)
}
