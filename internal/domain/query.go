package domain

import "fmt"

// Ordering is a USGS "orderby" value.
type Ordering string

const (
	OrderByTime         Ordering = "time"
	OrderByTimeAsc      Ordering = "time-asc"
	OrderByMagnitude    Ordering = "magnitude"
	OrderByMagnitudeAsc Ordering = "magnitude-asc"
)

// ParseOrdering validates an orderby value accepted by the USGS service.
func ParseOrdering(s string) (Ordering, error) {
	switch o := Ordering(s); o {
	case OrderByTime, OrderByTimeAsc, OrderByMagnitude, OrderByMagnitudeAsc:
		return o, nil
	default:
		return "", fmt.Errorf("unknown ordering %q", s)
	}
}

// Query holds the optional feed filters appended to the endpoint.
type Query struct {
	MinMagnitude float64
	Limit        int
	OrderBy      Ordering
}
