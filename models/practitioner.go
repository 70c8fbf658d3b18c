package models

import "time"

// Practitioner holds presence and aggregate rating for a practitioner account.
// InService implies IsOnline. ActiveSessionID names the session holding the
// practitioner in service, empty when idle.
type Practitioner struct {
	UserID          string    `bson:"userId" json:"userId"`
	IsOnline        bool      `bson:"isOnline" json:"isOnline"`
	InService       bool      `bson:"inService" json:"inService"`
	ActiveSessionID string    `bson:"activeSessionId,omitempty" json:"activeSessionId,omitempty"`
	Rating          float64   `bson:"rating" json:"rating"`
	ReviewCount     int       `bson:"reviewCount" json:"reviewCount"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PresenceStatus is the externally visible presence of a practitioner.
type PresenceStatus struct {
	IsOnline  bool `json:"isOnline"`
	InService bool `json:"inService"`
}

// PractitionerListing joins a practitioner record with its profile.
type PractitionerListing struct {
	Profile
	IsOnline    bool    `json:"isOnline"`
	InService   bool    `json:"inService"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
}
