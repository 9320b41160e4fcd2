package weather

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDescribeTotalAndDeterministic(t *testing.T) {
	for code := 0; code <= 99; code++ {
		first := Describe(code)
		require.NotEmpty(t, first, "code %d", code)
		require.Equal(t, first, Describe(code), "code %d", code)
	}
}

func TestDescribeRanges(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "Clear sky"},
		{2, "Mainly clear, partly cloudy, and overcast"},
		{48, "Fog and depositing rime fog"},
		{55, "Drizzle: Light, moderate, and dense intensity"},
		{61, "Rain: Slight, moderate and heavy intensity"},
		{67, "Freezing Rain: Light and heavy intensity"},
		{77, "Snow grains"},
		{82, "Rain showers: Slight, moderate, and violent"},
		{95, "Thunderstorm: Slight or moderate"},
		{99, "Thunderstorm with slight and heavy hail"},
		{4, UnknownDescription},
		{46, UnknownDescription},
		{-1, UnknownDescription},
		{100, UnknownDescription},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, Describe(tc.code), "code %d", tc.code)
	}
}

func TestIsPrecipitation(t *testing.T) {
	for _, code := range []int{51, 53, 55, 56, 57, 61, 63, 65, 66, 67, 80, 81, 82, 95, 96, 99} {
		require.True(t, IsPrecipitation(code), "code %d", code)
	}
	for _, code := range []int{0, 3, 45, 71, 77, 85} {
		require.False(t, IsPrecipitation(code), "code %d", code)
	}
}

func TestAnnotate(t *testing.T) {
	c := Annotate(7.5, 61, false)
	require.Equal(t, "Rain: Slight, moderate and heavy intensity", c.Description)
	require.Equal(t, BackdropRain, c.Backdrop)
	require.Equal(t, "Night", c.DayOrNight())

	require.Equal(t, BackdropClear, BackdropFor(1))
	require.Equal(t, BackdropCloudy, BackdropFor(3))
}
