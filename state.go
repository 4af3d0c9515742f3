package ear

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// SessionState is the phase of a training session. ComparisonSession uses
// Idle, PlayingReference, PlayingTarget, AwaitingAnswer and ShowingFeedback;
// PitchMatchingSession uses Idle, PlayingReference, PlayingTunable and
// ShowingFeedback.
type SessionState int

const (
	Idle             SessionState = iota + 1 // Not training.
	PlayingReference                         // First tone sounding.
	PlayingTarget                            // Detuned tone sounding; answers accepted.
	AwaitingAnswer                           // Both tones done.
	PlayingTunable                           // Indefinite tone the user retunes.
	ShowingFeedback                          // Result shown before the next trial.
)

var (
	stateNames = [...]string{
		Idle:             "Idle",
		PlayingReference: "PlayingReference",
		PlayingTarget:    "PlayingTarget",
		AwaitingAnswer:   "AwaitingAnswer",
		PlayingTunable:   "PlayingTunable",
		ShowingFeedback:  "ShowingFeedback",
	}
	stateByName = map[string]SessionState{
		"Idle":             Idle,
		"PlayingReference": PlayingReference,
		"PlayingTarget":    PlayingTarget,
		"AwaitingAnswer":   AwaitingAnswer,
		"PlayingTunable":   PlayingTunable,
		"ShowingFeedback":  ShowingFeedback,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = SessionState(0)
	_ json.Marshaler           = SessionState(0)
	_ json.Unmarshaler         = (*SessionState)(nil)
	_ encoding.TextMarshaler   = SessionState(0)
	_ encoding.TextUnmarshaler = (*SessionState)(nil)
)

func (s SessionState) isValid() bool {
	return s >= Idle && s <= ShowingFeedback
}

// String returns the name of the state. For invalid values it returns
// "SessionState(n)".
func (s SessionState) String() string {
	if s.isValid() {
		return stateNames[s]
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s SessionState) MarshalText() ([]byte, error) {
	if !s.isValid() {
		return nil, fmt.Errorf("ear: invalid session state: %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SessionState) UnmarshalText(text []byte) error {
	v, ok := stateByName[string(text)]
	if !ok {
		return fmt.Errorf("ear: invalid session state: %q", text)
	}
	*s = v
	return nil
}

// MarshalJSON implements json.Marshaler. SessionState serializes as a JSON string.
func (s SessionState) MarshalJSON() ([]byte, error) {
	text, err := s.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (s *SessionState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("ear: invalid session state: %s", data)
	}
	return s.UnmarshalText([]byte(str))
}
