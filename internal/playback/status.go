package playback

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Status mirrors the state codes of the embedded YouTube player.
type Status int

const (
	StatusUnstarted Status = -1
	StatusEnded     Status = 0
	StatusPlaying   Status = 1
	StatusPaused    Status = 2
	StatusBuffering Status = 3
	StatusCued      Status = 5
)

var statusNames = map[Status]string{
	StatusUnstarted: "UNSTARTED",
	StatusEnded:     "ENDED",
	StatusPlaying:   "PLAYING",
	StatusPaused:    "PAUSED",
	StatusBuffering: "BUFFERING",
	StatusCued:      "CUED",
}

func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// UnmarshalJSON accepts only the fixed player codes.
func (s *Status) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("status must be a number: %w", err)
	}

	status := Status(code)
	if !status.Valid() {
		return fmt.Errorf("unknown status %d", code)
	}

	*s = status
	return nil
}
