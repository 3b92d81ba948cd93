package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type storeMock struct {
	mock.Mock
}

func (m *storeMock) BucketExists(ctx context.Context, bucket string) (bool, error) {
	args := m.Called(bucket)
	return args.Bool(0), args.Error(1)
}

func (m *storeMock) MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error {
	return m.Called(bucket).Error(0)
}

func (m *storeMock) PutObject(ctx context.Context, bucket, key string, reader *bytes.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	body, _ := io.ReadAll(reader)
	args := m.Called(bucket, key, string(body), size, opts.ContentType)
	return minio.UploadInfo{Bucket: bucket, Key: key, Size: size}, args.Error(0)
}

func TestPutReceiptCreatesBucketOnce(t *testing.T) {
	store := &storeMock{}
	store.On("BucketExists", "receipts").Return(false, nil).Once()
	store.On("MakeBucket", "receipts").Return(nil).Once()
	store.On("PutObject", "receipts", "receipts/res-1.json", `{"id":"res-1"}`, int64(14), "application/json").Return(nil).Once()
	store.On("PutObject", "receipts", "receipts/res-2.json", `{}`, int64(2), "application/json").Return(nil).Once()
	a := &ReceiptArchive{bucket: "receipts", store: store}

	loc, err := a.PutReceipt(context.Background(), "/receipts/res-1.json", []byte(`{"id":"res-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "s3://receipts/receipts/res-1.json", loc)

	_, err = a.PutReceipt(context.Background(), "receipts/res-2.json", []byte(`{}`))
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestPutReceiptSurfacesErrors(t *testing.T) {
	store := &storeMock{}
	store.On("BucketExists", "receipts").Return(true, nil)
	store.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("access denied"))
	a := &ReceiptArchive{bucket: "receipts", store: store}

	_, err := a.PutReceipt(context.Background(), "receipts/res-1.json", []byte(`{}`))
	assert.ErrorContains(t, err, "access denied")

	_, err = a.PutReceipt(context.Background(), " ", nil)
	assert.ErrorContains(t, err, "key is required")
}

func TestNewReceiptArchiveValidates(t *testing.T) {
	_, err := NewReceiptArchive(Config{Bucket: "b"}, nil)
	assert.ErrorContains(t, err, "endpoint")
	_, err = NewReceiptArchive(Config{Endpoint: "http://localhost:9000"}, nil)
	assert.ErrorContains(t, err, "bucket")

	a, err := NewReceiptArchive(Config{Endpoint: "http://localhost:9000", Bucket: "b", AccessKey: "k", SecretKey: "s"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "b", a.bucket)
}
