package domain

import (
	"encoding/json"
	"time"
)

// Earthquake is a single event extracted from the feed. It is immutable once
// constructed; fields are only reachable through accessors.
type Earthquake struct {
	magnitude float64
	location  string
	timestamp int64
	detailURL string
}

// NewEarthquake constructs an Earthquake. timestamp is epoch milliseconds.
func NewEarthquake(magnitude float64, location string, timestamp int64, detailURL string) Earthquake {
	return Earthquake{
		magnitude: magnitude,
		location:  location,
		timestamp: timestamp,
		detailURL: detailURL,
	}
}

// Magnitude returns the event magnitude.
func (e Earthquake) Magnitude() float64 { return e.magnitude }

// Location returns the free-form place description.
func (e Earthquake) Location() string { return e.location }

// Timestamp returns the event time in milliseconds since the Unix epoch.
func (e Earthquake) Timestamp() int64 { return e.timestamp }

// Time returns the event time as a UTC time.Time.
func (e Earthquake) Time() time.Time { return time.UnixMilli(e.timestamp).UTC() }

// DetailURL returns the link to the USGS event page.
func (e Earthquake) DetailURL() string { return e.detailURL }

// earthquakeJSON is the wire shape used for Kafka messages and the HTTP API.
type earthquakeJSON struct {
	Magnitude float64 `json:"magnitude"`
	Location  string  `json:"location"`
	Time      int64   `json:"time"`
	URL       string  `json:"url"`
}

func (e Earthquake) MarshalJSON() ([]byte, error) {
	return json.Marshal(earthquakeJSON{
		Magnitude: e.magnitude,
		Location:  e.location,
		Time:      e.timestamp,
		URL:       e.detailURL,
	})
}

func (e *Earthquake) UnmarshalJSON(data []byte) error {
	var v earthquakeJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*e = NewEarthquake(v.Magnitude, v.Location, v.Time, v.URL)
	return nil
}
