package models

import "time"

// StatusKind styles the status banner.
type StatusKind string

const (
	StatusInfo    StatusKind = "info"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// Banner is a transient status message.
type Banner struct {
	Text    string     `json:"text"`
	Kind    StatusKind `json:"kind"`
	ShownAt time.Time  `json:"shown_at"`
}

// SelectorOption is one entry of the stock selector. The placeholder
// option has an empty Value.
type SelectorOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Control names a busy-able dashboard control.
type Control string

const (
	ControlRefresh Control = "refresh"
	ControlUpdate  Control = "update"
)
