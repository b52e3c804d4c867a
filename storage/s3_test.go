package storage

import (
	"errors"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func TestNewS3Validation(t *testing.T) {
	t.Run("bucket required", func(t *testing.T) {
		_, err := NewS3("", "us-east-1")
		assert.Error(t, err)
	})

	t.Run("region required", func(t *testing.T) {
		_, err := NewS3("artifacts", "")
		assert.Error(t, err)
	})
}

func TestObjectKey(t *testing.T) {
	t.Run("normalizes to slash form", func(t *testing.T) {
		key, err := objectKey("shots/alice.png")
		assert.NoError(t, err)
		assert.Equal(t, "shots/alice.png", key)
	})

	t.Run("rejects empty traversal and absolute keys", func(t *testing.T) {
		for _, key := range []string{"", "../up.png", "/abs.png"} {
			_, err := objectKey(key)
			assert.ErrorIs(t, err, ErrInvalidKey, "key %q", key)
		}
	})
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("plain error")))
}
