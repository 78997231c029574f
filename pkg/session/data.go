package session

import "time"

type Data struct {
	ID          string    `json:"id"`
	MeetingLink string    `json:"meeting_link"`
	State       State     `json:"state"`
	Reason      Reason    `json:"reason,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Output      string    `json:"output"`
	Report      string    `json:"report,omitempty"`
	StopMode    string    `json:"stop_mode,omitempty"`
	Error       string    `json:"error,omitempty"`
}
