package models

import "time"

// Review is a guest's rating of a finished session. At most one per session.
type Review struct {
	ID             string    `bson:"id" json:"id"`
	SessionID      string    `bson:"sessionId" json:"sessionId"`
	GuestID        string    `bson:"guestId" json:"guestId"`
	PractitionerID string    `bson:"practitionerId" json:"practitionerId"`
	Rating         int       `bson:"rating" json:"rating"`
	Comment        string    `bson:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}
