package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// locationSeparator marks an offset phrase, e.g. "5km N of Cairo, Egypt".
	locationSeparator = " of "

	// nearThe is shown as the offset when the place has no separator.
	nearThe = "Near the"

	dateLayout = "Jan 02, 2006"
	timeLayout = "3:04 PM"
)

// magnitudeColors maps buckets 1..10 to badge colours. Bucket 1 covers
// magnitudes below 2, bucket 10 covers 10 and above.
var magnitudeColors = [...]string{
	1:  "#4A7BA7",
	2:  "#04B4B3",
	3:  "#10CAC9",
	4:  "#F5A623",
	5:  "#FF7D50",
	6:  "#FC6644",
	7:  "#E75F40",
	8:  "#E13A20",
	9:  "#D93218",
	10: "#C03823",
}

// ListItem is the display form of an Earthquake.
type ListItem struct {
	Magnitude       string `json:"magnitude"`
	MagnitudeBucket int    `json:"magnitude_bucket"`
	MagnitudeColor  string `json:"magnitude_color"`
	LocationOffset  string `json:"location_offset"`
	PrimaryLocation string `json:"primary_location"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	URL             string `json:"url"`
}

// NewListItem formats e for display, rendering date and time in loc.
func NewListItem(e Earthquake, loc *time.Location) ListItem {
	offset, primary := SplitLocation(e.Location())
	return ListItem{
		Magnitude:       FormatMagnitude(e.Magnitude()),
		MagnitudeBucket: MagnitudeBucket(e.Magnitude()),
		MagnitudeColor:  MagnitudeColor(e.Magnitude()),
		LocationOffset:  offset,
		PrimaryLocation: primary,
		Date:            FormatDate(e.Timestamp(), loc),
		Time:            FormatTime(e.Timestamp(), loc),
		URL:             e.DetailURL(),
	}
}

// NewListItems formats a batch of records, preserving order.
func NewListItems(quakes []Earthquake, loc *time.Location) []ListItem {
	items := make([]ListItem, 0, len(quakes))
	for _, q := range quakes {
		items = append(items, NewListItem(q, loc))
	}
	return items
}

// SplitLocation splits a USGS place string at the first " of ".
// "10km NE of Example City" -> ("10km NE of", "Example City").
// Without a separator the offset is "Near the" and primary is the whole place.
func SplitLocation(place string) (offset, primary string) {
	idx := strings.Index(place, locationSeparator)
	if idx < 0 {
		return nearThe, place
	}
	offset = place[:idx+len(locationSeparator)-1]
	primary = place[idx+len(locationSeparator):]
	return offset, primary
}

// FormatMagnitude renders a magnitude with exactly one decimal place.
func FormatMagnitude(m float64) string {
	return strconv.FormatFloat(m, 'f', 1, 64)
}

// MagnitudeBucket returns floor(m) clamped to 1..10.
func MagnitudeBucket(m float64) int {
	if math.IsNaN(m) {
		return 1
	}
	floor := math.Floor(m)
	switch {
	case floor < 1:
		return 1
	case floor > 10:
		return 10
	default:
		return int(floor)
	}
}

// MagnitudeColor returns the badge colour for the magnitude's bucket.
func MagnitudeColor(m float64) string {
	return magnitudeColors[MagnitudeBucket(m)]
}

// FormatDate renders epoch milliseconds as "Mar 03, 1998".
func FormatDate(ms int64, loc *time.Location) string {
	return inLocation(ms, loc).Format(dateLayout)
}

// FormatTime renders epoch milliseconds as "4:30 PM".
func FormatTime(ms int64, loc *time.Location) string {
	return inLocation(ms, loc).Format(timeLayout)
}

func inLocation(ms int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(ms).In(loc)
}
