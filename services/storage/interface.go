package storage

import (
	"context"
	"fmt"
	"path"

	"consultline/models"
	"consultline/utils"

	"github.com/google/uuid"
)

// Buckets a client may upload into.
const (
	BucketAvatars = "avatars"
	BucketGallery = "gallery"
	BucketVideos  = "videos"
)

// Uploader issues direct-to-storage upload tickets. File bytes never pass
// through this server.
type Uploader interface {
	UploadURL(ctx context.Context, ownerID, bucket string) (*models.UploadTicket, error)
}

// UploadRequest is the body of POST /uploads/url.
type UploadRequest struct {
	Bucket string `json:"bucket" binding:"required"`
}

func validBucket(bucket string) error {
	switch bucket {
	case BucketAvatars, BucketGallery, BucketVideos:
		return nil
	}
	return utils.ValidationFields(map[string]string{
		"bucket": fmt.Sprintf("must be one of %s, %s, %s", BucketAvatars, BucketGallery, BucketVideos),
	})
}

// objectKey returns the folder and full key <bucket>/<owner>/<uuid>.
func objectKey(ownerID, bucket string) (folder, name, key string) {
	folder = path.Join(bucket, ownerID)
	name = uuid.NewString()
	return folder, name, path.Join(folder, name)
}
