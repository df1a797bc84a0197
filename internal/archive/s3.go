package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/inov8tr/ecolab/internal/models"
)

// S3Config configures the S3 publisher. Credentials fall back to the default
// AWS chain when AccessKeyID is empty.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, e.g. MinIO
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// S3 publishes artifacts to a single bucket.
type S3 struct {
	client *s3.Client
	bucket string
}

// NewS3 creates an S3 publisher from cfg.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3{client: client, bucket: cfg.Bucket}, nil
}

func (p *S3) Driver() Driver { return DriverS3 }

// Check confirms the bucket exists and the credentials can reach it.
func (p *S3) Check(ctx context.Context) error {
	if _, err := p.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &p.bucket}); err != nil {
		return fmt.Errorf("head bucket %s: %w", p.bucket, err)
	}
	return nil
}

func (p *S3) Publish(ctx context.Context, s *models.Summary) (Receipt, error) {
	key := Key(s)
	// Emulate create-only via Head first.
	_, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &p.bucket, Key: &key})
	switch {
	case err == nil:
		return Receipt{}, fmt.Errorf("%s: %w", key, ErrExists)
	case !isNotFound(err):
		return Receipt{}, fmt.Errorf("head %s: %w", key, err)
	}

	data, err := encode(s)
	if err != nil {
		return Receipt{}, err
	}
	out, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &p.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ContentType),
		Metadata:    metadata(s),
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("put %s: %w", key, err)
	}
	return Receipt{
		Key:      key,
		ETag:     strings.Trim(aws.ToString(out.ETag), `"`),
		Location: "s3://" + p.bucket + "/" + key,
	}, nil
}

// isNotFound reports whether a Head call failed only because the object is absent.
func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}
