package models

import "math"

type SessionStats struct {
	TotalUsers       int64   `json:"totalUsers"`
	OnlineUsers      int64   `json:"onlineUsers"`
	OfflineUsers     int64   `json:"offlineUsers"`
	OnlinePercentage float64 `json:"onlinePercentage"`
}

// NewSessionStats derives the offline count and online percentage.
// Offline is floored at zero and the percentage is rounded to two decimals.
func NewSessionStats(total, online int64) *SessionStats {
	offline := total - online
	if offline < 0 {
		offline = 0
	}

	percentage := 0.0
	if total > 0 {
		percentage = float64(online) / float64(total) * 100
	}

	return &SessionStats{
		TotalUsers:       total,
		OnlineUsers:      online,
		OfflineUsers:     offline,
		OnlinePercentage: math.Round(percentage*100) / 100,
	}
}
