package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edumeet/errwatch-backend/internal/domain"
)

func TestRedisNotifier_NilClientReportsFailure(t *testing.T) {
	n := NewRedisNotifier(nil, "")

	e := &domain.StoredError{ID: "abc"}
	err := n.Notify(context.Background(), e)

	assert.Error(t, err, "a missing Redis must surface as a delivery failure, not a panic")
}

func TestRedisNotifier_DefaultChannel(t *testing.T) {
	n := NewRedisNotifier(nil, "")
	assert.Equal(t, DefaultChannel, n.channel)

	n = NewRedisNotifier(nil, "alerts:custom")
	assert.Equal(t, "alerts:custom", n.channel)
}

func TestLogNotifier_NeverFails(t *testing.T) {
	e := &domain.StoredError{ID: "abc"}
	e.Message = "boom"

	assert.NoError(t, LogNotifier{}.Notify(context.Background(), e))
}
