package providers

import (
	"fmt"
	"sort"

	"github.com/i474232898/weather-forecast-bot/internal/weather"
)

// Provider kinds accepted by Factory.
const (
	KindDarkSky     = "darksky"
	KindOpenMeteo   = "openmeteo"
	KindOpenWeather = "openweathermap"
	KindWeatherAPI  = "weatherapi"
)

var constructors = map[string]func(apiKey string, opts Options) weather.Provider{
	KindDarkSky:     func(k string, o Options) weather.Provider { return NewDarkSkyProvider(k, o) },
	KindOpenMeteo:   func(k string, o Options) weather.Provider { return NewOpenMeteoProvider(k, o) },
	KindOpenWeather: func(k string, o Options) weather.Provider { return NewOpenWeatherProvider(k, o) },
	KindWeatherAPI:  func(k string, o Options) weather.Provider { return NewWeatherAPIProvider(k, o) },
}

// Kinds lists the supported provider kinds.
func Kinds() []string {
	kinds := make([]string, 0, len(constructors))
	for k := range constructors {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Factory returns a constructor for the given kind.
func Factory(kind string, opts Options) (func(apiKey string) weather.Provider, error) {
	ctor, ok := constructors[kind]
	if !ok {
		return nil, fmt.Errorf("unknown forecast provider %q (want one of %v)", kind, Kinds())
	}
	return func(apiKey string) weather.Provider {
		return ctor(apiKey, opts)
	}, nil
}
