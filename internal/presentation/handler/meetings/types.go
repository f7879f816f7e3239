package meetings

import "time"

type createMeetingRequest struct {
	Title    string `json:"title"`
	Password string `json:"password,omitempty"`
}

type joinMeetingRequest struct {
	Password string `json:"password,omitempty"`
}

type meetingResponse struct {
	Code         string    `json:"code"`
	Title        string    `json:"title"`
	HostID       int64     `json:"hostId"`
	HasPassword  bool      `json:"hasPassword"`
	CreatedAt    time.Time `json:"createdAt"`
	MemberCount  int       `json:"memberCount"`
	SignalingURL string    `json:"signalingUrl,omitempty"`
	AudioURL     string    `json:"audioUrl,omitempty"`
}

type summaryResponse struct {
	RoomID    string    `json:"roomId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type putSummaryRequest struct {
	Text string `json:"text"`
}
