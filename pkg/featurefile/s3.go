package featurefile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/togglekit/pkg/feature"
)

// S3Client defines the S3 operations used by S3Source.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config locates a feature document in a bucket.
type S3Config struct {
	Bucket         string `env:"FEATURES_S3_BUCKET"`
	Key            string `env:"FEATURES_S3_KEY"`
	Region         string `env:"FEATURES_S3_REGION" envDefault:"us-east-1"`
	AccessKeyID    string `env:"FEATURES_S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"FEATURES_S3_SECRET_KEY"`
	Endpoint       string `env:"FEATURES_S3_ENDPOINT"` // Optional: for S3-compatible services
	ForcePathStyle bool   `env:"FEATURES_S3_FORCE_PATH_STYLE"`
	// Format of the document; derived from the key extension when empty.
	Format Format `env:"FEATURES_CONFIG_TYPE"`
}

// S3Option defines a function that configures S3Source.
type S3Option func(*s3Options)

type s3Options struct {
	httpClient      *http.Client
	s3Client        S3Client
	s3ConfigOptions []func(*config.LoadOptions) error
}

// WithS3Client sets a pre-configured S3 client. Useful for testing with mocks.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) {
		o.s3Client = client
	}
}

// WithHTTPClient sets a custom HTTP client for S3 requests.
func WithHTTPClient(client *http.Client) S3Option {
	return func(o *s3Options) {
		o.httpClient = client
	}
}

// WithS3ConfigOption adds a custom AWS config option.
func WithS3ConfigOption(option func(*config.LoadOptions) error) S3Option {
	return func(o *s3Options) {
		o.s3ConfigOptions = append(o.s3ConfigOptions, option)
	}
}

// S3Source reads overrides from a document stored in S3 or an S3-compatible service.
type S3Source struct {
	client S3Client
	bucket string
	key    string
	format Format
}

// NewS3Source creates an S3 source.
func NewS3Source(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3Source, error) {
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("%w: bucket and key are required", ErrInvalidConfig)
	}
	format := cfg.Format
	if format == "" {
		format = Format(path.Ext(cfg.Key))
	}
	format, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}

	options := &s3Options{}
	for _, opt := range opts {
		opt(options)
	}

	client := options.s3Client
	if client == nil {
		awsOptions := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions,
				config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID,
					cfg.SecretKey,
					"",
				)),
			)
		}
		if options.httpClient != nil {
			awsOptions = append(awsOptions, config.WithHTTPClient(options.httpClient))
		}
		awsOptions = append(awsOptions, options.s3ConfigOptions...)

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: loading aws config: %v", ErrInvalidConfig, err)
		}
		client = s3.NewFromConfig(awsConfig, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.ForcePathStyle
		})
	}

	return &S3Source{client: client, bucket: cfg.Bucket, key: cfg.Key, format: format}, nil
}

// Fetch implements feature.Source.
func (s *S3Source) Fetch(ctx context.Context) (map[string]feature.Override, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, errors.Join(feature.ErrSourceUnavailable, classifyS3Error(err, s.bucket, s.key))
	}
	defer out.Body.Close()

	overrides, err := DecodeOverrides(s.format, out.Body)
	if err != nil {
		return nil, errors.Join(feature.ErrSourceUnavailable, fmt.Errorf("s3://%s/%s: %w", s.bucket, s.key, err))
	}
	return overrides, nil
}

func classifyS3Error(err error, bucket, key string) error {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("s3://%s/%s does not exist: %w", bucket, key, err)
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return fmt.Errorf("bucket %q does not exist: %w", bucket, err)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("get s3://%s/%s failed (code: %s): %w", bucket, key, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
}
