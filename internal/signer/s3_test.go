package signer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelhub-api/internal/model"
)

func TestS3Signer_ObjectKey(t *testing.T) {
	s := newS3Signer(Config{Bucket: "media", PublicBaseURL: "https://cdn.example.com/"}, nil)

	cases := map[string]string{
		"https://cdn.example.com/videos/a.mp4":          "videos/a.mp4",
		"s3://media/images/b.png":                       "images/b.png",
		"https://s3.example.com/media/images/c.png?x=1": "images/c.png",
		"renders/d.mp4":                                 "renders/d.mp4",
	}
	for in, want := range cases {
		got, err := s.objectKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"s3://other/x", "ftp://host/x", "https://cdn2.example.com/"} {
		_, err := s.objectKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestS3Signer_SignURL(t *testing.T) {
	var gotKey string
	var gotExpiry time.Duration
	s := newS3Signer(Config{Bucket: "media", Expiry: 30 * 24 * time.Hour}, func(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
		gotKey, gotExpiry = key, expiry
		return "https://signed/" + bucket + "/" + key, nil
	})

	signed, err := s.SignURL(context.Background(), "s3://media/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://signed/media/a.mp4", signed)
	assert.Equal(t, "a.mp4", gotKey)
	assert.Equal(t, MaxExpiry, gotExpiry)
}

func TestS3Signer_Errors(t *testing.T) {
	s := newS3Signer(Config{Bucket: "media"}, func(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
		return "", errors.New("boom")
	})

	_, err := s.SignURL(context.Background(), "a.mp4")
	assert.ErrorIs(t, err, model.ErrSigning)
	assert.Contains(t, err.Error(), "boom")

	_, err = s.SignURL(context.Background(), "ftp://x/y")
	assert.ErrorIs(t, err, model.ErrSigning)
}

func TestNewS3Signer_Presigns(t *testing.T) {
	_, err := NewS3Signer(context.Background(), Config{})
	assert.ErrorIs(t, err, model.ErrNotConfigured)

	s, err := NewS3Signer(context.Background(), Config{
		Bucket:    "media",
		Region:    "auto",
		Endpoint:  "https://storage.example.com",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
	})
	require.NoError(t, err)

	signed, err := s.SignURL(context.Background(), "videos/a.mp4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, "https://storage.example.com/media/videos/a.mp4?"), signed)
	assert.Contains(t, signed, "X-Amz-Expires=604800")
	assert.Contains(t, signed, "X-Amz-Signature=")
}
