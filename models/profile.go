package models

import "time"

// Profile is the public-facing record of a user. ID and Role never change
// after creation.
type Profile struct {
	ID          string    `bson:"id" json:"id"`
	Role        Role      `bson:"role" json:"role"`
	DisplayName string    `bson:"displayName" json:"displayName"`
	Country     string    `bson:"country,omitempty" json:"country,omitempty"`
	Bio         string    `bson:"bio,omitempty" json:"bio,omitempty"`
	AvatarURL   string    `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	GalleryURLs []string  `bson:"galleryUrls" json:"galleryUrls"`
	VideoURL    string    `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	Specialties []string  `bson:"specialties" json:"specialties"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ProfileUpdate carries the mutable profile fields. Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName *string   `json:"displayName,omitempty" binding:"omitempty,min=1,max=80"`
	Country     *string   `json:"country,omitempty" binding:"omitempty,max=56"`
	Bio         *string   `json:"bio,omitempty" binding:"omitempty,max=2000"`
	AvatarURL   *string   `json:"avatarUrl,omitempty" binding:"omitempty,url"`
	GalleryURLs *[]string `json:"galleryUrls,omitempty" binding:"omitempty,max=12,dive,url"`
	VideoURL    *string   `json:"videoUrl,omitempty" binding:"omitempty,url"`
	Specialties *[]string `json:"specialties,omitempty" binding:"omitempty,max=20,dive,min=1,max=60"`
}
