package weather

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mlbright/forecast/v2"

	"github.com/i474232898/weather-forecast-bot/internal/common"
	"github.com/i474232898/weather-forecast-bot/internal/log"
)

const (
	// Stride is the number of hours between the samples shown.
	Stride = 3
	// Blocks is the number of samples shown.
	Blocks = 8
	// MaxLength is the post length limit in characters.
	MaxLength = 140

	// FailureMessage is posted when the payload lacks enough hourly samples.
	FailureMessage = "天気予報の取得に失敗しました"

	ellipsis = "…"
)

// Formatter renders a forecast payload into post text.
type Formatter struct {
	// Location is used to convert sample timestamps to an hour of day.
	// Nil means the host's local time zone.
	Location *time.Location
}

// Format builds the post text for loc. Only the hourly series of f is read.
func (fm Formatter) Format(loc Location, f *forecast.Forecast) string {
	if f == nil || len(f.Hourly.Data) < Stride*Blocks {
		return FailureMessage
	}

	tz := fm.Location
	if tz == nil {
		tz = time.Local
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s forecast\n\n", loc.Name)
	for i := 0; i < Blocks; i++ {
		dp := f.Hourly.Data[i*Stride]
		hour := time.Unix(int64(dp.Time), 0).In(tz).Hour()
		icon := Icon(dp.Icon)
		if !icon.Known() {
			log.Debugw("unmapped sky condition", "location", loc.Name, "icon", dp.Icon)
		}
		fmt.Fprintf(&b, "%d時\n%s %d℃ %d％\n\n",
			hour,
			icon.Emoji(),
			roundInt(dp.Temperature),
			roundInt(dp.PrecipProbability*100),
		)
	}

	return common.TruncateRunes(b.String(), MaxLength, ellipsis)
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
