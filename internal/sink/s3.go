package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the part of *s3.Client the S3Store uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures NewS3Client.
type S3Options struct {
	Region   string
	Endpoint string // empty for AWS, set for S3-compatible servers

	// PathStyle addresses buckets as endpoint/bucket/key.
	PathStyle bool
}

// NewS3Client creates an S3 client. Credentials come from the standard
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN
// environment variables; the region falls back to AWS_REGION.
func NewS3Client(o S3Options) *s3.Client {
	region := o.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	opts := s3.Options{
		Region:       region,
		UsePathStyle: o.PathStyle,
		Credentials:  aws.NewCredentialsCache(envCredentials{}),
	}
	if o.Endpoint != "" {
		opts.BaseEndpoint = aws.String(o.Endpoint)
	}
	return s3.New(opts)
}

type envCredentials struct{}

func (envCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	c := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return aws.Credentials{}, fmt.Errorf("sink: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return c, nil
}

// S3Store uploads images to a bucket.
//
// Example usage:
//
//	client := sink.NewS3Client(sink.S3Options{Region: "eu-west-1"})
//	store := sink.NewS3Store(client, "frames", "shot010/")
type S3Store struct {
	client PutObjectAPI
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Store creates a store writing to bucket under prefix.
func NewS3Store(client PutObjectAPI, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
	}
}

// Put uploads the image and returns its s3:// location.
func (s *S3Store) Put(ctx context.Context, key, contentType string, size int64, r io.Reader) (string, error) {
	key = s.prefix + key
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
		Metadata: map[string]string{
			"render-time": s.now().UTC().Format(time.RFC3339),
			"size":        strconv.FormatInt(size, 10),
		},
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("sink: s3 upload of %s failed: %w", key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}
