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

// OpenWeatherBaseURL is the One Call 3.0 endpoint.
const OpenWeatherBaseURL = "https://api.openweathermap.org/data/3.0/onecall"

// OpenWeatherProvider implements the weather.Provider interface for the
// OpenWeatherMap One Call API.
type OpenWeatherProvider struct {
	source
	apiKey  string
	baseURL string
	lang    string
}

func NewOpenWeatherProvider(apiKey string, opts Options) *OpenWeatherProvider {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = OpenWeatherBaseURL
	}
	return &OpenWeatherProvider{
		source:  newSource("openweathermap", opts),
		apiKey:  apiKey,
		baseURL: baseURL,
		lang:    opts.Lang,
	}
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, pt weather.Point) (*forecast.Forecast, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "metric")
		values.Set("lat", fmt.Sprintf("%f", pt.Lat))
		values.Set("lon", fmt.Sprintf("%f", pt.Lon))
		values.Set("exclude", "minutely,alerts")
		if p.lang != "" {
			values.Set("lang", p.lang)
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	return p.fetch(ctx, pt.Key()+":"+p.lang, buildRequest, decodeOpenWeather)
}

type openWeatherCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type openWeatherPayload struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Timezone string  `json:"timezone"`
	Current  struct {
		Dt      int64                  `json:"dt"`
		Temp    float64                `json:"temp"`
		Weather []openWeatherCondition `json:"weather"`
	} `json:"current"`
	Hourly []struct {
		Dt      int64                  `json:"dt"`
		Temp    float64                `json:"temp"`
		Pop     float64                `json:"pop"`
		Weather []openWeatherCondition `json:"weather"`
	} `json:"hourly"`
}

func decodeOpenWeather(body []byte) (*forecast.Forecast, error) {
	var payload openWeatherPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	f := &forecast.Forecast{
		Latitude:  payload.Lat,
		Longitude: payload.Lon,
		Timezone:  payload.Timezone,
	}
	f.Currently = hourlyPoint(
		time.Unix(payload.Current.Dt, 0),
		mapOpenWeatherIcon(payload.Current.Weather),
		describe(payload.Current.Weather),
		payload.Current.Temp,
		0,
	)

	f.Hourly.Data = make([]forecast.DataPoint, 0, len(payload.Hourly))
	for _, h := range payload.Hourly {
		f.Hourly.Data = append(f.Hourly.Data, hourlyPoint(
			time.Unix(h.Dt, 0),
			mapOpenWeatherIcon(h.Weather),
			describe(h.Weather),
			h.Temp,
			h.Pop,
		))
	}
	return f, nil
}

func describe(items []openWeatherCondition) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].Description
}

// mapOpenWeatherIcon uses the condition group and the day/night suffix of the icon code.
func mapOpenWeatherIcon(items []openWeatherCondition) weather.Icon {
	if len(items) == 0 {
		return ""
	}
	night := strings.HasSuffix(items[0].Icon, "n")

	switch items[0].Main {
	case "Clear":
		if night {
			return weather.IconClearNight
		}
		return weather.IconClearDay
	case "Clouds":
		// 02x is "few clouds".
		if strings.HasPrefix(items[0].Icon, "02") {
			if night {
				return weather.IconPartlyCloudyNight
			}
			return weather.IconPartlyCloudyDay
		}
		return weather.IconCloudy
	case "Rain", "Drizzle", "Thunderstorm":
		return weather.IconRain
	case "Snow":
		// 611-616 are the sleet and rain-and-snow codes.
		if items[0].ID >= 611 && items[0].ID <= 616 {
			return weather.IconSleet
		}
		return weather.IconSnow
	case "Mist", "Fog", "Haze", "Smoke":
		return weather.IconFog
	case "Squall", "Tornado":
		return weather.IconWind
	default:
		return weather.Icon(strings.ToLower(items[0].Main))
	}
}
