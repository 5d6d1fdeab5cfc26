package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config points at an S3-compatible bucket (AWS or MinIO).
type S3Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	User         string
	Password     string
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectPutter {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Sink archives every event as a JSON object under
// events/YYYY/MM/DD/<event id>.json.
type S3Sink struct {
	client objectPutter
	bucket string
}

func NewS3Sink(ctx context.Context, c S3Config) (*S3Sink, error) {
	if c.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.User != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.User, c.Password, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Sink{client: client, bucket: c.Bucket}, nil
}

// ObjectKey is where e is stored.
func ObjectKey(e Event) string {
	t := e.Time.UTC()
	return fmt.Sprintf("events/%04d/%02d/%02d/%s.json", t.Year(), int(t.Month()), t.Day(), e.ID)
}

func (s *S3Sink) Record(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(ObjectKey(e)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", ObjectKey(e), err)
	}
	return nil
}
