package featurefile_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/togglekit/pkg/feature"
	"github.com/dmitrymomot/togglekit/pkg/featurefile"
)

// MockS3Client is a mock implementation of the S3Client interface
type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func objectInput(bucket, key string) any {
	return mock.MatchedBy(func(in *s3.GetObjectInput) bool {
		return in.Bucket != nil && *in.Bucket == bucket && in.Key != nil && *in.Key == key
	})
}

func TestS3Source(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Fetch", func(t *testing.T) {
		t.Parallel()
		client := &MockS3Client{}
		client.On("GetObject", mock.Anything, objectInput("config", "prod/features.yaml")).
			Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(yamlDoc))}, nil)

		src, err := featurefile.NewS3Source(ctx, featurefile.S3Config{
			Bucket: "config",
			Key:    "prod/features.yaml",
		}, featurefile.WithS3Client(client))
		require.NoError(t, err)

		overrides, err := src.Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "s3", overrides["storage"].CurrentInstance)
		client.AssertExpectations(t)
	})

	t.Run("ExplicitFormat", func(t *testing.T) {
		t.Parallel()
		client := &MockS3Client{}
		client.On("GetObject", mock.Anything, objectInput("config", "features")).
			Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("feature.a.enabled=true"))}, nil)

		src, err := featurefile.NewS3Source(ctx, featurefile.S3Config{
			Bucket: "config",
			Key:    "features",
			Format: featurefile.FormatProperties,
		}, featurefile.WithS3Client(client))
		require.NoError(t, err)

		overrides, err := src.Fetch(ctx)
		require.NoError(t, err)
		assert.True(t, *overrides["a"].Enabled)
	})

	t.Run("MissingObject", func(t *testing.T) {
		t.Parallel()
		client := &MockS3Client{}
		client.On("GetObject", mock.Anything, mock.Anything).Return(nil, &types.NoSuchKey{})

		src, err := featurefile.NewS3Source(ctx, featurefile.S3Config{Bucket: "b", Key: "f.json"}, featurefile.WithS3Client(client))
		require.NoError(t, err)

		_, err = src.Fetch(ctx)
		require.ErrorIs(t, err, feature.ErrSourceUnavailable)
		var nsk *types.NoSuchKey
		assert.True(t, errors.As(err, &nsk))
	})

	t.Run("InvalidDocument", func(t *testing.T) {
		t.Parallel()
		client := &MockS3Client{}
		client.On("GetObject", mock.Anything, mock.Anything).
			Return(&s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader("{"))}, nil)

		src, err := featurefile.NewS3Source(ctx, featurefile.S3Config{Bucket: "b", Key: "f.json"}, featurefile.WithS3Client(client))
		require.NoError(t, err)

		_, err = src.Fetch(ctx)
		require.ErrorIs(t, err, feature.ErrSourceUnavailable)
		require.ErrorIs(t, err, featurefile.ErrInvalidDocument)
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		t.Parallel()
		_, err := featurefile.NewS3Source(ctx, featurefile.S3Config{Bucket: "b"})
		require.ErrorIs(t, err, featurefile.ErrInvalidConfig)

		_, err = featurefile.NewS3Source(ctx, featurefile.S3Config{Bucket: "b", Key: "features.ini"}, featurefile.WithS3Client(&MockS3Client{}))
		require.ErrorIs(t, err, featurefile.ErrUnsupportedFormat)
	})
}
