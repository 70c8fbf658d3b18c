package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"consultline/models"
	"consultline/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Uploader issues presigned PUT URLs.
type S3Uploader struct {
	presigner  *s3.PresignClient
	bucket     string
	publicBase string
	ttl        time.Duration
	now        func() time.Time
}

// NewS3Client builds a client from the default AWS credential chain.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  cfg.Credentials,
		HTTPClient:   cfg.HTTPClient,
		BaseEndpoint: cfg.BaseEndpoint,
	}), nil
}

// NewS3Uploader creates an S3Uploader. publicBase defaults to the bucket's
// virtual-hosted URL.
func NewS3Uploader(client *s3.Client, bucket, region, publicBase string, ttl time.Duration) (*S3Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("S3 bucket is required")
	}
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3Uploader{
		presigner:  s3.NewPresignClient(client),
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

func (u *S3Uploader) UploadURL(ctx context.Context, ownerID, bucket string) (*models.UploadTicket, error) {
	if err := validBucket(bucket); err != nil {
		return nil, err
	}
	_, _, key := objectKey(ownerID, bucket)

	req, err := u.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(u.ttl))
	if err != nil {
		return nil, utils.Upstream(err, "failed to presign upload")
	}

	return &models.UploadTicket{
		Bucket:    bucket,
		Method:    req.Method,
		UploadURL: req.URL,
		ObjectKey: key,
		PublicURL: u.publicBase + "/" + key,
		ExpiresAt: u.now().Add(u.ttl),
	}, nil
}
