package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/i474232898/weather-forecast-bot/internal/common"
	"github.com/i474232898/weather-forecast-bot/internal/weather"
)

var tokyo = weather.Point{Lat: 35.6, Lon: 139.7}

func serve(t *testing.T, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenMeteoFetch(t *testing.T) {
	start := time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC).Unix()
	var times, temps, probs, codes, days []string
	for i := 0; i < 24; i++ {
		times = append(times, fmt.Sprint(start+int64(i)*3600))
		temps = append(temps, "20.4")
		probs = append(probs, "33")
		codes = append(codes, "0")
		days = append(days, "1")
	}
	body := fmt.Sprintf(`{"latitude":35.6,"longitude":139.7,"timezone":"Asia/Tokyo",
		"current":{"time":%d,"temperature_2m":21,"weather_code":3,"is_day":1},
		"hourly":{"time":[%s],"temperature_2m":[%s],"precipitation_probability":[%s],"weather_code":[%s],"is_day":[%s]}}`,
		start, strings.Join(times, ","), strings.Join(temps, ","), strings.Join(probs, ","), strings.Join(codes, ","), strings.Join(days, ","))

	srv := serve(t, body, func(r *http.Request) {
		q := r.URL.Query()
		if q.Get("apikey") != "om-key" || q.Get("timeformat") != "unixtime" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
	})

	p := NewOpenMeteoProvider("om-key", Options{BaseURL: srv.URL, HTTP: common.HTTPClientConfig{Client: srv.Client()}})
	f, err := p.Fetch(context.Background(), tokyo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Hourly.Data) != 24 {
		t.Fatalf("expected 24 samples, got %d", len(f.Hourly.Data))
	}
	dp := f.Hourly.Data[0]
	if int64(dp.Time) != start || dp.Icon != string(weather.IconClearDay) || dp.Temperature != 20.4 || dp.PrecipProbability != 0.33 {
		t.Fatalf("unexpected first sample %+v", dp)
	}
	if f.Currently.Icon != string(weather.IconCloudy) {
		t.Fatalf("unexpected current icon %q", f.Currently.Icon)
	}
}

func TestOpenMeteoMismatchedSeries(t *testing.T) {
	srv := serve(t, `{"hourly":{"time":[1,2],"temperature_2m":[1],"precipitation_probability":[1,2],"weather_code":[0,0]}}`, nil)
	p := NewOpenMeteoProvider("", Options{BaseURL: srv.URL, HTTP: common.HTTPClientConfig{Client: srv.Client()}})
	if _, err := p.Fetch(context.Background(), tokyo); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestMapOpenMeteoIcon(t *testing.T) {
	cases := []struct {
		code int
		day  bool
		icon weather.Icon
	}{
		{0, true, weather.IconClearDay},
		{1, false, weather.IconClearNight},
		{2, true, weather.IconPartlyCloudyDay},
		{2, false, weather.IconPartlyCloudyNight},
		{3, true, weather.IconCloudy},
		{45, true, weather.IconFog},
		{61, true, weather.IconRain},
		{67, true, weather.IconSleet},
		{73, true, weather.IconSnow},
		{95, true, weather.IconRain},
	}
	for _, tc := range cases {
		if got := mapOpenMeteoIcon(tc.code, tc.day); got != tc.icon {
			t.Errorf("code %d day=%v: expected %s, got %s", tc.code, tc.day, tc.icon, got)
		}
	}
	if mapOpenMeteoIcon(19, true).Known() {
		t.Errorf("unmapped WMO code should produce an unknown icon")
	}
}

func TestOpenWeatherFetch(t *testing.T) {
	body := `{"lat":35.6,"lon":139.7,"timezone":"Asia/Tokyo",
		"current":{"dt":1717192800,"temp":21.3,"weather":[{"id":800,"main":"Clear","description":"clear sky","icon":"01d"}]},
		"hourly":[
			{"dt":1717192800,"temp":20.4,"pop":0.33,"weather":[{"id":801,"main":"Clouds","description":"few clouds","icon":"02n"}]},
			{"dt":1717196400,"temp":19.6,"pop":0.7,"weather":[{"id":612,"main":"Snow","description":"light shower sleet","icon":"13d"}]}
		]}`
	srv := serve(t, body, func(r *http.Request) {
		q := r.URL.Query()
		if q.Get("appid") != "owm-key" || q.Get("units") != "metric" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
	})

	p := NewOpenWeatherProvider("owm-key", Options{BaseURL: srv.URL, HTTP: common.HTTPClientConfig{Client: srv.Client()}})
	f, err := p.Fetch(context.Background(), tokyo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Hourly.Data) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(f.Hourly.Data))
	}
	if f.Currently.Icon != string(weather.IconClearDay) {
		t.Fatalf("unexpected current icon %q", f.Currently.Icon)
	}
	if f.Hourly.Data[0].Icon != string(weather.IconPartlyCloudyNight) || f.Hourly.Data[0].PrecipProbability != 0.33 {
		t.Fatalf("unexpected first sample %+v", f.Hourly.Data[0])
	}
	if f.Hourly.Data[1].Icon != string(weather.IconSleet) {
		t.Fatalf("unexpected second icon %q", f.Hourly.Data[1].Icon)
	}
}

func TestWeatherAPIFetchSkipsPastHours(t *testing.T) {
	midnight := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	var hours []string
	for i := 0; i < 48; i++ {
		hours = append(hours, fmt.Sprintf(`{"time_epoch":%d,"temp_c":18.5,"is_day":1,"chance_of_rain":40,"chance_of_snow":0,"condition":{"text":"Partly cloudy"}}`,
			midnight.Add(time.Duration(i)*time.Hour).Unix()))
	}
	body := fmt.Sprintf(`{"location":{"lat":35.6,"lon":139.7,"tz_id":"Asia/Tokyo"},
		"current":{"last_updated_epoch":%d,"temp_c":19,"is_day":1,"condition":{"text":"Sunny"}},
		"forecast":{"forecastday":[{"hour":[%s]},{"hour":[%s]}]}}`,
		midnight.Unix(), strings.Join(hours[:24], ","), strings.Join(hours[24:], ","))

	srv := serve(t, body, func(r *http.Request) {
		if q := r.URL.Query(); q.Get("key") != "wa-key" || q.Get("q") != "35.600000,139.700000" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
	})

	p := NewWeatherAPIProvider("wa-key", Options{BaseURL: srv.URL, HTTP: common.HTTPClientConfig{Client: srv.Client()}})
	p.now = func() time.Time { return midnight.Add(7*time.Hour + 30*time.Minute) }

	f, err := p.Fetch(context.Background(), tokyo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.Hourly.Data) != 41 {
		t.Fatalf("expected 41 samples from 07:00, got %d", len(f.Hourly.Data))
	}
	first := f.Hourly.Data[0]
	if int64(first.Time) != midnight.Add(7*time.Hour).Unix() {
		t.Fatalf("expected first sample at 07:00, got %v", first.Time)
	}
	if first.Icon != string(weather.IconPartlyCloudyDay) || first.PrecipProbability != 0.4 {
		t.Fatalf("unexpected first sample %+v", first)
	}
	if f.Currently.Icon != string(weather.IconClearDay) {
		t.Fatalf("unexpected current icon %q", f.Currently.Icon)
	}
}

func TestMapWeatherAPIIcon(t *testing.T) {
	cases := map[string]weather.Icon{
		"Freezing fog":                   weather.IconFog,
		"Light freezing rain":            weather.IconSleet,
		"Heavy snow":                     weather.IconSnow,
		"Patchy light rain with thunder": weather.IconRain,
		"Overcast":                       weather.IconCloudy,
	}
	for text, want := range cases {
		if got := mapWeatherAPIIcon(text, true); got != want {
			t.Errorf("%q: expected %s, got %s", text, want, got)
		}
	}
	if got := mapWeatherAPIIcon("Clear", false); got != weather.IconClearNight {
		t.Errorf("expected clear-night, got %s", got)
	}
}

func TestFactory(t *testing.T) {
	for _, kind := range Kinds() {
		newClient, err := Factory(kind, Options{HTTP: common.HTTPClientConfig{Client: http.DefaultClient}})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", kind, err)
		}
		if p := newClient("k"); p == nil || p.Name() == "" {
			t.Fatalf("%s: expected a named provider", kind)
		}
	}
	if _, err := Factory("yahoo", Options{}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
