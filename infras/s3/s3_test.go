package s3_test

import (
	"context"
	"errors"
	"io"
	"ruang/config"
	"ruang/infras/otel/mocks"
	"ruang/infras/s3"
	s3Mocks "ruang/infras/s3/mocks"
	"strings"
	"testing"

	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.External.S3.BucketName = "ruang"
	cfg.External.S3.PublicDomain = "https://cdn.example.com/"
	cfg.External.S3.APIEndpoint = "https://s3.example.com"

	return cfg
}

func TestUpload(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := s3Mocks.NewMockObjectAPI(ctrl)
	store := s3.NewWithClient(testConfig(), api, mocks.NewOtel())

	api.EXPECT().
		PutObject(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *awsS3.PutObjectInput, _ ...func(*awsS3.Options)) (*awsS3.PutObjectOutput, error) {
			assert.Equal(t, "ruang", *in.Bucket)
			assert.Equal(t, "rooms/lab-a.png", *in.Key)
			assert.Equal(t, "image/png", *in.ContentType)
			assert.Equal(t, int64(5), *in.ContentLength)

			body, err := io.ReadAll(in.Body)
			require.NoError(t, err)
			assert.Equal(t, "image", string(body))

			return &awsS3.PutObjectOutput{}, nil
		})

	url, err := store.Upload(context.Background(), "rooms", "lab-a.png", "image/png", strings.NewReader("image"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/rooms/lab-a.png", url)
}

func TestUpload_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := s3Mocks.NewMockObjectAPI(ctrl)
	store := s3.NewWithClient(testConfig(), api, mocks.NewOtel())

	api.EXPECT().PutObject(gomock.Any(), gomock.Any()).Return(nil, errors.New("denied"))

	_, err := store.Upload(context.Background(), "rooms", "lab-a.png", "image/png", strings.NewReader("image"))
	assert.ErrorContains(t, err, "denied")
}

func TestDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := s3Mocks.NewMockObjectAPI(ctrl)
	store := s3.NewWithClient(testConfig(), api, mocks.NewOtel())

	api.EXPECT().
		DeleteObject(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, in *awsS3.DeleteObjectInput, _ ...func(*awsS3.Options)) (*awsS3.DeleteObjectOutput, error) {
			assert.Equal(t, "rooms/old.png", *in.Key)

			return &awsS3.DeleteObjectOutput{}, nil
		})

	require.NoError(t, store.Delete(context.Background(), "https://cdn.example.com/rooms/old.png"))

	// foreign URLs never reach the API
	require.NoError(t, store.Delete(context.Background(), "https://elsewhere.example.com/rooms/old.png"))
}

func TestObjectKey(t *testing.T) {
	store := s3.NewWithClient(testConfig(), nil, mocks.NewOtel())

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "public domain", url: "https://cdn.example.com/rooms/a.png", want: "rooms/a.png"},
		{name: "path style api", url: "https://s3.example.com/ruang/rooms/a.png", want: "rooms/a.png"},
		{name: "foreign", url: "https://other.example.com/rooms/a.png", want: ""},
		{name: "bare prefix", url: "https://cdn.example.com/", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, store.ObjectKey(tt.url))
		})
	}
}
