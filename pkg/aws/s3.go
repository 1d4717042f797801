package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const DefaultImageURLTTL = 15 * time.Minute

type presignGetAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ImagePresigner hands out time-limited GET urls for objects of one bucket.
type ImagePresigner struct {
	presigner presignGetAPI
	bucket    string
	ttl       time.Duration
}

func NewImagePresigner(cfg sdkaws.Config, bucket string, ttl time.Duration) *ImagePresigner {
	if ttl <= 0 {
		ttl = DefaultImageURLTTL
	}
	return &ImagePresigner{
		presigner: s3.NewPresignClient(s3.NewFromConfig(cfg)),
		bucket:    bucket,
		ttl:       ttl,
	}
}

func (p *ImagePresigner) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := p.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: sdkaws.String(p.bucket),
		Key:    sdkaws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = p.ttl
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign get object: %w", err)
	}
	return req.URL, nil
}
