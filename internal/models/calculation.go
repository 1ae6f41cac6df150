package models

import "time"

// RetentionInfo describes how long a recorder keeps footage.
type RetentionInfo struct {
	Days     *int   `json:"days"`
	Message  string `json:"message"`
	IsUrgent bool   `json:"isUrgent"`
}

// DurationInfo describes the span between two video timestamps.
type DurationInfo struct {
	Valid   bool   `json:"valid"`
	Minutes int    `json:"minutes"`
	Text    string `json:"text"`
}

// OffsetDirection tells whether a device clock runs ahead or behind real time.
type OffsetDirection string

const (
	OffsetAhead  OffsetDirection = "AHEAD"
	OffsetBehind OffsetDirection = "BEHIND"
)

// OffsetInfo is the structured reading of a free-text clock offset.
type OffsetInfo struct {
	Hours     int             `json:"hours"`
	Minutes   int             `json:"minutes"`
	Seconds   int             `json:"seconds"`
	Direction OffsetDirection `json:"direction"`
	HasUnits  bool            `json:"hasUnits"`
	Formatted string          `json:"formatted"`
}

// Duration returns the magnitude of the offset.
func (o OffsetInfo) Duration() time.Duration {
	return time.Duration(o.Hours)*time.Hour + time.Duration(o.Minutes)*time.Minute + time.Duration(o.Seconds)*time.Second
}
