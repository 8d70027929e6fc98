package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mlbright/forecast/v2"

	"github.com/i474232898/weather-forecast-bot/internal/common"
	"github.com/i474232898/weather-forecast-bot/internal/weather"
)

// WeatherAPIBaseURL is the WeatherAPI.com forecast endpoint.
const WeatherAPIBaseURL = "https://api.weatherapi.com/v1/forecast.json"

// WeatherAPIProvider implements the weather.Provider interface for WeatherAPI.com.
type WeatherAPIProvider struct {
	source
	apiKey  string
	baseURL string
	now     func() time.Time
}

func NewWeatherAPIProvider(apiKey string, opts Options) *WeatherAPIProvider {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = WeatherAPIBaseURL
	}
	return &WeatherAPIProvider{
		source:  newSource("weatherapi", opts),
		apiKey:  apiKey,
		baseURL: baseURL,
		now:     time.Now,
	}
}

func (p *WeatherAPIProvider) Fetch(ctx context.Context, pt weather.Point) (*forecast.Forecast, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("weatherapi api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// WeatherAPI uses "q" for location; it accepts "lat,lon".
		values.Set("q", fmt.Sprintf("%f,%f", pt.Lat, pt.Lon))
		values.Set("days", "2")
		values.Set("aqi", "no")
		values.Set("alerts", "no")
		// No lang parameter: icons are derived from the English condition text.

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	// The payload starts at local midnight; drop the hours already past.
	from := p.now().Truncate(time.Hour)
	decode := func(body []byte) (*forecast.Forecast, error) {
		return decodeWeatherAPI(body, from)
	}
	return p.fetch(ctx, pt.Key(), buildRequest, decode)
}

type weatherAPICondition struct {
	Text string `json:"text"`
}

type weatherAPIPayload struct {
	Location struct {
		Lat  float64 `json:"lat"`
		Lon  float64 `json:"lon"`
		TzID string  `json:"tz_id"`
	} `json:"location"`
	Current struct {
		LastUpdatedEpoch int64               `json:"last_updated_epoch"`
		TempC            float64             `json:"temp_c"`
		IsDay            int                 `json:"is_day"`
		Condition        weatherAPICondition `json:"condition"`
	} `json:"current"`
	Forecast struct {
		Forecastday []struct {
			Hour []struct {
				TimeEpoch    int64               `json:"time_epoch"`
				TempC        float64             `json:"temp_c"`
				IsDay        int                 `json:"is_day"`
				ChanceOfRain float64             `json:"chance_of_rain"`
				ChanceOfSnow float64             `json:"chance_of_snow"`
				Condition    weatherAPICondition `json:"condition"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

func decodeWeatherAPI(body []byte, from time.Time) (*forecast.Forecast, error) {
	var payload weatherAPIPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	f := &forecast.Forecast{
		Latitude:  payload.Location.Lat,
		Longitude: payload.Location.Lon,
		Timezone:  payload.Location.TzID,
	}
	f.Currently = hourlyPoint(
		time.Unix(payload.Current.LastUpdatedEpoch, 0),
		mapWeatherAPIIcon(payload.Current.Condition.Text, payload.Current.IsDay == 1),
		payload.Current.Condition.Text,
		payload.Current.TempC,
		0,
	)

	for _, day := range payload.Forecast.Forecastday {
		for _, h := range day.Hour {
			ts := time.Unix(h.TimeEpoch, 0)
			if ts.Before(from) {
				continue
			}
			chance := h.ChanceOfRain
			if h.ChanceOfSnow > chance {
				chance = h.ChanceOfSnow
			}
			f.Hourly.Data = append(f.Hourly.Data, hourlyPoint(
				ts,
				mapWeatherAPIIcon(h.Condition.Text, h.IsDay == 1),
				h.Condition.Text,
				h.TempC,
				chance/100,
			))
		}
	}
	return f, nil
}

func mapWeatherAPIIcon(text string, isDay bool) weather.Icon {
	switch {
	case text == "":
		return ""
	case common.HasAny(text, "fog", "mist"):
		return weather.IconFog
	case common.HasAny(text, "sleet", "ice pellets", "freezing"):
		return weather.IconSleet
	case common.HasAny(text, "snow", "blizzard"):
		return weather.IconSnow
	case common.HasAny(text, "rain", "shower", "drizzle", "thunder"):
		return weather.IconRain
	case common.HasAny(text, "partly"):
		if isDay {
			return weather.IconPartlyCloudyDay
		}
		return weather.IconPartlyCloudyNight
	case common.HasAny(text, "cloud", "overcast"):
		return weather.IconCloudy
	case common.HasAny(text, "sunny", "clear"):
		if isDay {
			return weather.IconClearDay
		}
		return weather.IconClearNight
	default:
		return weather.Icon(strings.ToLower(text))
	}
}
