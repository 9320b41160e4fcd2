package weather

// Coordinates is the best geocoding match for a free-text place name.
type Coordinates struct {
	ID        int64   `json:"id,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	PlaceName string  `json:"placeName"`
	Country   string  `json:"country"`
}

// Conditions describes the current weather at a coordinate pair.
type Conditions struct {
	TemperatureCelsius float64  `json:"temperatureCelsius"`
	WeatherCode        int      `json:"weatherCode"`
	IsDaytime          bool     `json:"isDaytime"`
	Description        string   `json:"description"`
	Backdrop           Backdrop `json:"backdrop"`
}

// Annotate builds Conditions from raw upstream values. The description always
// comes from the code table, never from upstream text.
func Annotate(temperature float64, code int, isDay bool) Conditions {
	return Conditions{
		TemperatureCelsius: temperature,
		WeatherCode:        code,
		IsDaytime:          isDay,
		Description:        Describe(code),
		Backdrop:           BackdropFor(code),
	}
}

// DayOrNight renders the day flag the way prompts expect it.
func (c Conditions) DayOrNight() string {
	if c.IsDaytime {
		return "Day"
	}
	return "Night"
}
