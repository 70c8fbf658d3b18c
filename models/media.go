package models

import "time"

// MediaGrant is a channel-scoped credential for the media provider.
type MediaGrant struct {
	Token     string    `json:"token"`
	AppID     string    `json:"appId"`
	UID       string    `json:"uid"`
	Channel   string    `json:"channel"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UploadTicket describes how a client uploads one object directly to storage.
type UploadTicket struct {
	Bucket    string            `json:"bucket"`
	Method    string            `json:"method"`
	UploadURL string            `json:"uploadUrl"`
	Fields    map[string]string `json:"fields,omitempty"`
	ObjectKey string            `json:"objectKey"`
	PublicURL string            `json:"publicUrl"`
	ExpiresAt time.Time         `json:"expiresAt"`
}
