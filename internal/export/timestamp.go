package export

import (
	"fmt"
	"math"

	"scribe/internal/services"
)

// FormatTimestamp renders a second offset as a subtitle timestamp:
// HH:MM:SS<marker>mmm, zero-padded, with the hour field omitted when it is
// zero unless alwaysIncludeHours forces it. Offsets round to the nearest
// millisecond. Negative offsets are rejected.
func FormatTimestamp(seconds float64, alwaysIncludeHours bool, decimalMarker string) (string, error) {
	if seconds < 0 {
		return "", services.Wrap(services.ErrConfiguration, "export", "format timestamp",
			fmt.Sprintf("non-negative timestamp expected, got %g", seconds), nil)
	}
	milliseconds := int64(math.Round(seconds * 1000.0))

	hours := milliseconds / 3_600_000
	milliseconds -= hours * 3_600_000

	minutes := milliseconds / 60_000
	milliseconds -= minutes * 60_000

	secs := milliseconds / 1_000
	milliseconds -= secs * 1_000

	hoursMarker := ""
	if alwaysIncludeHours || hours > 0 {
		hoursMarker = fmt.Sprintf("%02d:", hours)
	}
	return fmt.Sprintf("%s%02d:%02d%s%03d", hoursMarker, minutes, secs, decimalMarker, milliseconds), nil
}
