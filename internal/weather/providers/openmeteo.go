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

	"github.com/i474232898/weather-forecast-bot/internal/weather"
)

const (
	// OpenMeteoBaseURL is the commercial endpoint that accepts an apikey.
	OpenMeteoBaseURL = "https://customer-api.open-meteo.com/v1/forecast"
	// OpenMeteoFreeBaseURL needs no key and is used when none is given.
	OpenMeteoFreeBaseURL = "https://api.open-meteo.com/v1/forecast"
)

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo,
// translating its hourly series into the Dark Sky payload shape.
type OpenMeteoProvider struct {
	source
	apiKey  string
	baseURL string
}

// NewOpenMeteoProvider builds an Open-Meteo client. apiKey is sent as the
// apikey parameter; without one the free endpoint is used.
func NewOpenMeteoProvider(apiKey string, opts Options) *OpenMeteoProvider {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	switch {
	case baseURL != "":
	case apiKey == "":
		baseURL = OpenMeteoFreeBaseURL
	default:
		baseURL = OpenMeteoBaseURL
	}
	return &OpenMeteoProvider{
		source:  newSource("openmeteo", opts),
		apiKey:  apiKey,
		baseURL: baseURL,
	}
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, pt weather.Point) (*forecast.Forecast, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", pt.Lat))
		values.Set("longitude", fmt.Sprintf("%f", pt.Lon))
		values.Set("current", "temperature_2m,weather_code,is_day")
		values.Set("hourly", "temperature_2m,precipitation_probability,weather_code,is_day")
		values.Set("temperature_unit", "celsius")
		values.Set("timeformat", "unixtime")
		values.Set("timezone", "auto")
		values.Set("forecast_hours", "48")
		if p.apiKey != "" {
			values.Set("apikey", p.apiKey)
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	return p.fetch(ctx, pt.Key(), buildRequest, decodeOpenMeteo)
}

type openMeteoPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Current   struct {
		Time          int64   `json:"time"`
		Temperature2m float64 `json:"temperature_2m"`
		WeatherCode   int     `json:"weather_code"`
		IsDay         int     `json:"is_day"`
	} `json:"current"`
	Hourly struct {
		Time                     []int64   `json:"time"`
		Temperature2m            []float64 `json:"temperature_2m"`
		PrecipitationProbability []float64 `json:"precipitation_probability"`
		WeatherCode              []int     `json:"weather_code"`
		IsDay                    []int     `json:"is_day"`
	} `json:"hourly"`
}

func decodeOpenMeteo(body []byte) (*forecast.Forecast, error) {
	var payload openMeteoPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	h := payload.Hourly
	n := len(h.Time)
	if len(h.Temperature2m) < n || len(h.PrecipitationProbability) < n || len(h.WeatherCode) < n {
		return nil, fmt.Errorf("openmeteo hourly series have mismatched lengths")
	}

	f := &forecast.Forecast{
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
		Timezone:  payload.Timezone,
	}
	f.Currently = hourlyPoint(
		time.Unix(payload.Current.Time, 0),
		mapOpenMeteoIcon(payload.Current.WeatherCode, payload.Current.IsDay == 1),
		"",
		payload.Current.Temperature2m,
		0,
	)

	f.Hourly.Data = make([]forecast.DataPoint, 0, n)
	for i := 0; i < n; i++ {
		isDay := i >= len(h.IsDay) || h.IsDay[i] == 1
		f.Hourly.Data = append(f.Hourly.Data, hourlyPoint(
			time.Unix(h.Time[i], 0),
			mapOpenMeteoIcon(h.WeatherCode[i], isDay),
			"",
			h.Temperature2m[i],
			h.PrecipitationProbability[i]/100,
		))
	}
	return f, nil
}

// mapOpenMeteoIcon maps WMO weather codes (as used by Open-Meteo) to sky-condition icons.
func mapOpenMeteoIcon(code int, isDay bool) weather.Icon {
	switch {
	case code == 0 || code == 1:
		if isDay {
			return weather.IconClearDay
		}
		return weather.IconClearNight
	case code == 2:
		if isDay {
			return weather.IconPartlyCloudyDay
		}
		return weather.IconPartlyCloudyNight
	case code == 3:
		return weather.IconCloudy
	case code == 45 || code == 48:
		return weather.IconFog
	case code == 66 || code == 67:
		return weather.IconSleet
	case (code >= 51 && code <= 65) || (code >= 80 && code <= 82) || code >= 95:
		return weather.IconRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return weather.IconSnow
	default:
		return weather.Icon(fmt.Sprintf("wmo-%d", code))
	}
}
