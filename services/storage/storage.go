package storage

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"consultline/models"
	"consultline/utils"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/asset"
)

const cloudinaryUploadBase = "https://api.cloudinary.com/v1_1"

// CloudinaryUploader issues signed direct-upload forms.
type CloudinaryUploader struct {
	cld       *cloudinary.Cloudinary
	cloudName string
	apiKey    string
	apiSecret string
	ttl       time.Duration
	now       func() time.Time
}

// NewCloudinaryUploader creates a CloudinaryUploader from account credentials.
func NewCloudinaryUploader(cloudName, apiKey, apiSecret string, ttl time.Duration) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	utils.GetLogger().Sugar().Debugf("Initializing CloudinaryUploader with cloudName: %s", cloudName)
	return &CloudinaryUploader{
		cld:       cld,
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

func resourceType(bucket string) string {
	if bucket == BucketVideos {
		return "video"
	}
	return "image"
}

// getAsset returns an asset instance based on the resource type.
func (u *CloudinaryUploader) getAsset(resource, publicID string) (*asset.Asset, error) {
	if resource == "video" {
		return u.cld.Video(publicID)
	}
	return u.cld.Image(publicID)
}

// UploadURL signs folder, public_id and timestamp. The client posts these
// fields plus api_key, signature and the file to UploadURL.
func (u *CloudinaryUploader) UploadURL(_ context.Context, ownerID, bucket string) (*models.UploadTicket, error) {
	if err := validBucket(bucket); err != nil {
		return nil, err
	}
	folder, name, key := objectKey(ownerID, bucket)
	now := u.now()
	timestamp := strconv.FormatInt(now.Unix(), 10)

	signature, err := api.SignParameters(url.Values{
		"folder":    {folder},
		"public_id": {name},
		"timestamp": {timestamp},
	}, u.apiSecret)
	if err != nil {
		return nil, utils.Internal(err, "failed to sign upload")
	}

	resource := resourceType(bucket)
	a, err := u.getAsset(resource, key)
	if err != nil {
		return nil, utils.Internal(err, "failed to build asset")
	}
	publicURL, err := a.String()
	if err != nil {
		return nil, utils.Internal(err, "failed to build public URL")
	}

	return &models.UploadTicket{
		Bucket:    bucket,
		Method:    "POST",
		UploadURL: fmt.Sprintf("%s/%s/%s/upload", cloudinaryUploadBase, u.cloudName, resource),
		Fields: map[string]string{
			"api_key":   u.apiKey,
			"timestamp": timestamp,
			"folder":    folder,
			"public_id": name,
			"signature": signature,
		},
		ObjectKey: key,
		PublicURL: publicURL,
		ExpiresAt: now.Add(u.ttl),
	}, nil
}
