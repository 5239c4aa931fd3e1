package usgs

import (
	"strconv"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
)

// BuildQueryURL appends the feed filters to base as standard query-string
// pairs. Parameters already present on base are kept unless overridden.
func BuildQueryURL(base string, q domain.Query) (string, error) {
	u, err := parseEndpoint(base)
	if err != nil {
		return "", err
	}

	params := u.Query()
	params.Set("format", "geojson")
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.MinMagnitude > 0 {
		params.Set("minmag", strconv.FormatFloat(q.MinMagnitude, 'f', -1, 64))
	}
	if q.OrderBy != "" {
		params.Set("orderby", string(q.OrderBy))
	}
	u.RawQuery = params.Encode()

	return u.String(), nil
}
