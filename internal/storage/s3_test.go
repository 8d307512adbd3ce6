package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	bodies  [][]byte
	deletes []string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, f.err
}

func TestGetContentTypeForImage(t *testing.T) {
	tests := []struct {
		extension string
		expected  string
	}{
		{".jpg", "image/jpeg"},
		{".JPG", "image/jpeg"},
		{".jpeg", "image/jpeg"},
		{".png", "image/png"},
		{".gif", "image/gif"},
		{".webp", "image/webp"},
		{".WEBP", "image/webp"},
		{".unknown", "application/octet-stream"},
		{"", "application/octet-stream"},
		{".bmp", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.extension, func(t *testing.T) {
			assert.Equal(t, tt.expected, getContentTypeForImage(tt.extension))
		})
	}
}

func TestImageExtension(t *testing.T) {
	ext, err := ImageExtension("Cover.PNG")
	require.NoError(t, err)
	assert.Equal(t, ".png", ext)

	for _, name := range []string{"notes.txt", "archive.tar.gz", "noext", "image.svg"} {
		_, err := ImageExtension(name)
		assert.ErrorIs(t, err, ErrUnsupportedImage, name)
	}
}

func TestObjectKey(t *testing.T) {
	secret := []byte("s3cret")
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	key, err := ObjectKey(secret, TargetNovelCover, "user-1", "cover.jpg", now)
	require.NoError(t, err)
	assert.Regexp(t, `^covers/2026/03/[0-9a-f]{32}\.jpg$`, key)

	same, _ := ObjectKey(secret, TargetNovelCover, "user-1", "cover.jpg", now)
	assert.Equal(t, key, same)

	otherOwner, _ := ObjectKey(secret, TargetNovelCover, "user-2", "cover.jpg", now)
	assert.NotEqual(t, key, otherOwner)

	otherSecret, _ := ObjectKey([]byte("different"), TargetNovelCover, "user-1", "cover.jpg", now)
	assert.NotEqual(t, key, otherSecret)

	later, _ := ObjectKey(secret, TargetNovelCover, "user-1", "cover.jpg", now.Add(time.Nanosecond))
	assert.NotEqual(t, key, later)

	_, err = ObjectKey(secret, TargetPostImage, "user-1", "cover.exe", now)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestUploadImage(t *testing.T) {
	api := &fakeS3{}
	u := newS3Uploader(api, "us-east-1", "bucket", "https://cdn.example.com/", []byte("k"))
	u.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	res, err := u.UploadImage(context.Background(), TargetPostImage, "user-9", "photo.webp", bytes.NewReader([]byte("img")), 3)
	require.NoError(t, err)

	assert.Regexp(t, `^posts/2026/01/[0-9a-f]{32}\.webp$`, res.Key)
	assert.Equal(t, "https://cdn.example.com/"+res.Key, res.URL)
	assert.Equal(t, int64(3), res.Size)

	require.Len(t, api.puts, 1)
	put := api.puts[0]
	assert.Equal(t, "image/webp", aws.ToString(put.ContentType))
	assert.Equal(t, "bucket", aws.ToString(put.Bucket))
	assert.Equal(t, "user-9", put.Metadata["owner-id"])
	assert.Equal(t, "photo.webp", put.Metadata["original-filename"])
	assert.Equal(t, []byte("img"), api.bodies[0])
}

func TestUploadImageRejectsUnsupportedType(t *testing.T) {
	api := &fakeS3{}
	u := newS3Uploader(api, "us-east-1", "bucket", "https://cdn", nil)

	_, err := u.UploadImage(context.Background(), TargetNovelCover, "u", "script.js", bytes.NewReader(nil), 0)
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	assert.Empty(t, api.puts)
}

func TestDeleteFileAndBucketAccess(t *testing.T) {
	api := &fakeS3{}
	u := newS3Uploader(api, "us-east-1", "bucket", "https://cdn", nil)

	require.NoError(t, u.DeleteFile(context.Background(), "posts/a.png"))
	assert.Equal(t, []string{"posts/a.png"}, api.deletes)
	require.NoError(t, u.CheckBucketAccess(context.Background()))

	api.err = errors.New("access denied")
	assert.ErrorContains(t, u.DeleteFile(context.Background(), "posts/b.png"), "access denied")
	assert.ErrorContains(t, u.CheckBucketAccess(context.Background()), "bucket")
	_, err := u.UploadImage(context.Background(), TargetPostImage, "u", "x.png", bytes.NewReader(nil), 0)
	assert.ErrorContains(t, err, "failed to upload")
}
