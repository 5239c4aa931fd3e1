package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// featuresKey is the top-level GeoJSON member holding the event array.
const featuresKey = "features"

// ParseEarthquakes converts a raw feed body into records. Blank input yields
// nil. A malformed document is logged and the records decoded before the
// failure are returned.
func ParseEarthquakes(body string, logger *slog.Logger) []Earthquake {
	quakes, err := DecodeEarthquakes(body)
	if err != nil {
		logger.Error("problem parsing the earthquake JSON results",
			"error", err,
			"parsed", len(quakes),
		)
	}
	return quakes
}

// DecodeEarthquakes is ParseEarthquakes without the logging: it returns the
// records decoded so far together with any ErrMalformedResponse.
func DecodeEarthquakes(body string) ([]Earthquake, error) {
	if strings.TrimSpace(body) == "" {
		return nil, nil
	}

	quakes := make([]Earthquake, 0)
	err := streamFeatures(strings.NewReader(body), func(feature json.RawMessage) {
		quakes = append(quakes, earthquakeFromFeature(feature))
	})
	if err != nil {
		return quakes, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return quakes, nil
}

// streamFeatures walks the top-level object token by token and calls emit for
// every element of the "features" array as soon as it is decoded, so elements
// ahead of a syntax error are still delivered.
func streamFeatures(r io.Reader, emit func(json.RawMessage)) error {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("top-level value is not an object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		if key != featuresKey {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return err
			}
			continue
		}

		if err := streamArray(dec, emit); err != nil {
			return err
		}
	}

	// closing '}'
	_, err = dec.Token()
	return err
}

// streamArray emits each element of the array at the decoder's position. A
// non-array value is consumed and treated as an empty feature list.
func streamArray(dec *json.Decoder, emit func(json.RawMessage)) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return nil
	}
	if d != '[' {
		return skipComposite(dec)
	}

	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		emit(raw)
	}

	// closing ']'
	_, err = dec.Token()
	return err
}

// skipComposite consumes tokens until the object or array whose opening
// delimiter was just read is closed.
func skipComposite(dec *json.Decoder) error {
	for depth := 1; depth > 0; {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

// earthquakeFromFeature reads the properties of one feature. Anything that is
// not shaped as expected falls back to the field defaults.
func earthquakeFromFeature(feature json.RawMessage) Earthquake {
	props := objectMember(feature, "properties")

	return NewEarthquake(
		optFloat(props, "mag", 0),
		optString(props, "place", ""),
		optInt64(props, "time", 0),
		optString(props, "url", ""),
	)
}

// objectMember returns the named member of a JSON object as a field map, or
// nil when raw is not an object or the member is not an object.
func objectMember(raw json.RawMessage, name string) map[string]json.RawMessage {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return nil
	}
	var inner map[string]json.RawMessage
	if err := json.Unmarshal(outer[name], &inner); err != nil {
		return nil
	}
	return inner
}

func optFloat(fields map[string]json.RawMessage, key string, def float64) float64 {
	n, ok := optNumber(fields, key)
	if !ok {
		return def
	}
	v, err := n.Float64()
	if err != nil {
		return def
	}
	return v
}

// optInt64 accepts integral and fractional JSON numbers; fractions are
// truncated toward zero.
func optInt64(fields map[string]json.RawMessage, key string, def int64) int64 {
	n, ok := optNumber(fields, key)
	if !ok {
		return def
	}
	if v, err := n.Int64(); err == nil {
		return v
	}
	v, err := n.Float64()
	if err != nil {
		return def
	}
	return int64(v)
}

func optString(fields map[string]json.RawMessage, key string, def string) string {
	raw, ok := fields[key]
	if !ok {
		return def
	}
	var v *string
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return def
	}
	return *v
}

// optNumber reports the member as a json.Number only when it is a JSON number
// literal; numeric strings are rejected.
func optNumber(fields map[string]json.RawMessage, key string) (json.Number, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 || raw[0] == '"' {
		return "", false
	}
	var n *json.Number
	if err := json.Unmarshal(raw, &n); err != nil || n == nil {
		return "", false
	}
	return *n, true
}
