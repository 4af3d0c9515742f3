package ear

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// Trend is the direction of the discrimination threshold over time.
type Trend int

const (
	Improving Trend = iota + 1 // Threshold shrinking.
	Stable                     // Within ±5%.
	Declining                  // Threshold growing.
)

var (
	trendNames  = [...]string{Improving: "Improving", Stable: "Stable", Declining: "Declining"}
	trendByName = map[string]Trend{
		"Improving": Improving,
		"Stable":    Stable,
		"Declining": Declining,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Trend(0)
	_ json.Marshaler           = Trend(0)
	_ json.Unmarshaler         = (*Trend)(nil)
	_ encoding.TextMarshaler   = Trend(0)
	_ encoding.TextUnmarshaler = (*Trend)(nil)
)

// IsValid reports whether t is Improving, Stable or Declining.
func (t Trend) IsValid() bool {
	return t >= Improving && t <= Declining
}

// String returns the name of the trend. For invalid values it returns "Trend(n)".
func (t Trend) String() string {
	if t.IsValid() {
		return trendNames[t]
	}
	return fmt.Sprintf("Trend(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t Trend) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("ear: invalid trend: %d", int(t))
	}
	return []byte(trendNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Trend) UnmarshalText(text []byte) error {
	v, ok := trendByName[string(text)]
	if !ok {
		return fmt.Errorf("ear: invalid trend: %q", text)
	}
	*t = v
	return nil
}

// MarshalJSON implements json.Marshaler. Trend serializes as a JSON string.
func (t Trend) MarshalJSON() ([]byte, error) {
	text, err := t.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (t *Trend) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("ear: invalid trend: %s", data)
	}
	return t.UnmarshalText([]byte(s))
}
