package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/zfogg/inkwell/internal/metrics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// s3API is the subset of the S3 client used here
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Uploader handles image uploads to AWS S3
type S3Uploader struct {
	client     s3API
	bucket     string
	region     string
	baseURL    string
	hmacSecret []byte
	now        func() time.Time
}

// UploadResult contains the result of an S3 upload
type UploadResult struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Bucket string `json:"bucket"`
	Region string `json:"region"`
	Size   int64  `json:"size"`
}

// NewS3Uploader creates a new S3 uploader. Calls to S3 are traced as client
// spans of the request that triggered them.
func NewS3Uploader(ctx context.Context, region, bucket, baseURL string, hmacSecret []byte) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithHTTPClient(&http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}

	return newS3Uploader(s3.NewFromConfig(cfg), region, bucket, baseURL, hmacSecret), nil
}

func newS3Uploader(client s3API, region, bucket, baseURL string, hmacSecret []byte) *S3Uploader {
	return &S3Uploader{
		client:     client,
		bucket:     bucket,
		region:     region,
		baseURL:    baseURL,
		hmacSecret: hmacSecret,
		now:        time.Now,
	}
}

// UploadImage validates the extension and uploads the image under an HMAC
// derived key
func (u *S3Uploader) UploadImage(ctx context.Context, target Target, ownerID, filename string, body io.Reader, size int64) (result *UploadResult, err error) {
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.Get().UploadsTotal.WithLabelValues(string(target), status).Inc()
	}()

	now := u.now().UTC()
	key, err := ObjectKey(u.hmacSecret, target, ownerID, filename, now)
	if err != nil {
		return nil, err
	}
	ext, _ := ImageExtension(filename)

	putObjectInput := &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(getContentTypeForImage(ext)),

		// Keys are never reused, so objects can be cached for a long time
		CacheControl: aws.String("max-age=31536000, immutable"),

		Metadata: map[string]string{
			"owner-id":          ownerID,
			"original-filename": filename,
			"upload-timestamp":  now.Format(time.RFC3339),
			"file-type":         string(target),
		},
	}

	if _, err := u.client.PutObject(ctx, putObjectInput); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		Key:    key,
		URL:    u.PublicURL(key),
		Bucket: u.bucket,
		Region: u.region,
		Size:   size,
	}, nil
}

// PublicURL returns the CDN URL of an object
func (u *S3Uploader) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(u.baseURL, "/"), key)
}

// DeleteFile deletes a file from S3
func (u *S3Uploader) DeleteFile(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (u *S3Uploader) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}

	return nil
}
