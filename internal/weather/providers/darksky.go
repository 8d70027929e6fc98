package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mlbright/forecast/v2"

	"github.com/i474232898/weather-forecast-bot/internal/weather"
)

// DarkSkyBaseURL is the Dark Sky compatible forecast endpoint.
const DarkSkyBaseURL = "https://api.darksky.net/forecast"

// DarkSkyProvider implements the weather.Provider interface for a Dark Sky
// compatible API. Units are always SI so temperatures arrive in Celsius.
type DarkSkyProvider struct {
	source
	apiKey  string
	baseURL string
	lang    string
	units   forecast.Units
}

func NewDarkSkyProvider(apiKey string, opts Options) *DarkSkyProvider {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DarkSkyBaseURL
	}
	return &DarkSkyProvider{
		source:  newSource("darksky", opts),
		apiKey:  apiKey,
		baseURL: baseURL,
		lang:    opts.Lang,
		units:   forecast.SI,
	}
}

// Fetch returns the current, hourly and daily forecast for pt.
func (p *DarkSkyProvider) Fetch(ctx context.Context, pt weather.Point) (*forecast.Forecast, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("darksky api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("units", string(p.units))
		values.Set("exclude", "minutely,alerts")
		if p.lang != "" {
			values.Set("lang", p.lang)
		}

		u := fmt.Sprintf("%s/%s/%s,%s?%s",
			p.baseURL,
			url.PathEscape(p.apiKey),
			strconv.FormatFloat(pt.Lat, 'f', -1, 64),
			strconv.FormatFloat(pt.Lon, 'f', -1, 64),
			values.Encode(),
		)
		return http.NewRequest(http.MethodGet, u, nil)
	}

	cacheKey := pt.Key() + ":" + string(p.units) + ":" + p.lang
	return p.fetch(ctx, cacheKey, buildRequest, decodeDarkSky)
}

func decodeDarkSky(body []byte) (*forecast.Forecast, error) {
	var f forecast.Forecast
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
