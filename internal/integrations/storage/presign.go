package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// uploadExpiry bounds how long an issued upload URL stays valid.
const uploadExpiry = time.Hour

// presignAPI is the minimal S3 presigning interface required by Presigner.
// *s3.PresignClient satisfies it.
type presignAPI interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Presigner issues time-limited PUT URLs scoped to single keys in the
// document bucket. Callers upload directly to storage with the returned URL.
type Presigner struct {
	api    presignAPI
	bucket string
}

// NewPresigner creates a Presigner for the given bucket.
func NewPresigner(api presignAPI, bucket string) (*Presigner, error) {
	if api == nil {
		return nil, errors.New("storage: presign api must not be nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("storage: bucket must not be empty")
	}
	return &Presigner{api: api, bucket: bucket}, nil
}

// UploadURL returns a presigned PUT URL for key, valid for one hour.
func (p *Presigner) UploadURL(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("storage: key must not be empty")
	}
	req, err := p.api.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = uploadExpiry
	})
	if err != nil {
		return "", fmt.Errorf("storage: presign put object: %w", err)
	}
	return req.URL, nil
}
