package weather

// UnknownDescription is returned for codes outside every WMO range.
const UnknownDescription = "Unknown weather"

type codeRange struct {
	from, to    int
	description string
}

// WMO weather interpretation codes (WW). Order matters: first match wins.
var descriptionTable = []codeRange{
	{0, 0, "Clear sky"},
	{1, 3, "Mainly clear, partly cloudy, and overcast"},
	{45, 45, "Fog and depositing rime fog"},
	{48, 48, "Fog and depositing rime fog"},
	{51, 55, "Drizzle: Light, moderate, and dense intensity"},
	{56, 57, "Freezing Drizzle: Light and dense intensity"},
	{61, 65, "Rain: Slight, moderate and heavy intensity"},
	{66, 67, "Freezing Rain: Light and heavy intensity"},
	{71, 75, "Snow fall: Slight, moderate, and heavy intensity"},
	{77, 77, "Snow grains"},
	{80, 82, "Rain showers: Slight, moderate, and violent"},
	{85, 86, "Snow showers slight and heavy"},
	{95, 95, "Thunderstorm: Slight or moderate"},
	{96, 99, "Thunderstorm with slight and heavy hail"},
}

// rain, drizzle and storm ranges
var precipitationRanges = []codeRange{
	{51, 57, "drizzle"},
	{61, 67, "rain"},
	{80, 82, "showers"},
	{95, 99, "thunderstorm"},
}

// Describe maps a WMO code to a human readable category.
func Describe(code int) string {
	for _, r := range descriptionTable {
		if code >= r.from && code <= r.to {
			return r.description
		}
	}
	return UnknownDescription
}

// IsPrecipitation reports whether the code falls in a rain, drizzle or storm range.
func IsPrecipitation(code int) bool {
	for _, r := range precipitationRanges {
		if code >= r.from && code <= r.to {
			return true
		}
	}
	return false
}

// Backdrop is a coarse visual theme for clients.
type Backdrop string

const (
	BackdropRain   Backdrop = "rain"
	BackdropClear  Backdrop = "clear"
	BackdropCloudy Backdrop = "cloudy"
)

// BackdropFor picks the theme a client should render behind the result.
func BackdropFor(code int) Backdrop {
	switch {
	case code >= 50 && code <= 82:
		return BackdropRain
	case code == 0 || code == 1:
		return BackdropClear
	default:
		return BackdropCloudy
	}
}
