package weather

// Icon is a sky-condition code as reported by the forecast provider.
type Icon string

const (
	IconClearDay          Icon = "clear-day"
	IconClearNight        Icon = "clear-night"
	IconRain              Icon = "rain"
	IconSnow              Icon = "snow"
	IconSleet             Icon = "sleet"
	IconWind              Icon = "wind"
	IconFog               Icon = "fog"
	IconCloudy            Icon = "cloudy"
	IconPartlyCloudyDay   Icon = "partly-cloudy-day"
	IconPartlyCloudyNight Icon = "partly-cloudy-night"
)

// UnknownEmoji is shown for codes missing from the table.
const UnknownEmoji = "❓"

var iconEmoji = map[Icon]string{
	IconClearDay:          "☀",
	IconClearNight:        "🌙",
	IconRain:              "☔",
	IconSnow:              "⛄",
	IconSleet:             "🌨",
	IconWind:              "🌀",
	IconFog:               "🌫",
	IconCloudy:            "☁",
	IconPartlyCloudyDay:   "⛅",
	IconPartlyCloudyNight: "🌥",
}

// Emoji returns the glyph for the icon, or UnknownEmoji.
func (i Icon) Emoji() string {
	if e, ok := iconEmoji[i]; ok {
		return e
	}
	return UnknownEmoji
}

// Known reports whether the icon is one of the documented codes.
func (i Icon) Known() bool {
	_, ok := iconEmoji[i]
	return ok
}
