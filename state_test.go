package ear

import (
	"encoding/json"
	"testing"
)

func TestSessionStateString(t *testing.T) {
	tests := []struct {
		s    SessionState
		want string
	}{
		{Idle, "Idle"},
		{PlayingReference, "PlayingReference"},
		{PlayingTarget, "PlayingTarget"},
		{AwaitingAnswer, "AwaitingAnswer"},
		{PlayingTunable, "PlayingTunable"},
		{ShowingFeedback, "ShowingFeedback"},
		{SessionState(0), "SessionState(0)"},
		{SessionState(7), "SessionState(7)"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("SessionState(%d).String() = %q, want %q", int(tt.s), got, tt.want)
		}
	}
}

func TestSessionStateJSON(t *testing.T) {
	for s := Idle; s <= ShowingFeedback; s++ {
		data, err := json.Marshal(s)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", s, err)
		}
		var back SessionState
		if err := json.Unmarshal(data, &back); err != nil || back != s {
			t.Errorf("round trip %v → %s → %v (%v)", s, data, back, err)
		}
	}
	var s SessionState
	if err := json.Unmarshal([]byte(`"Paused"`), &s); err == nil {
		t.Error("Unmarshal accepted unknown state")
	}
}
