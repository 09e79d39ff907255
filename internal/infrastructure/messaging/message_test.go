package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateBackoff(t *testing.T) {
	cfg := DefaultBackoffConfig()

	tests := []struct {
		name       string
		retryCount int
		want       time.Duration
	}{
		{"首次重试", 0, time.Second},
		{"一次退避", 1, 2 * time.Second},
		{"三次退避", 3, 8 * time.Second},
		{"达到上限截断", 10, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.CalculateBackoff(tt.retryCount))
		})
	}
}

func TestDLQStream(t *testing.T) {
	assert.Equal(t, "dlq:stream:object:upsert", StreamObjectUpsert.DLQStream())
}

func TestMessagePayload(t *testing.T) {
	type changed struct {
		ObjectID   string `json:"object_id"`
		ChangeKind string `json:"change_kind"`
	}

	msg, err := NewMessage("m1", TypeObjectChanged, "obj1", changed{ObjectID: "obj1", ChangeKind: "created"})
	require.NoError(t, err)

	var got changed
	require.NoError(t, msg.UnmarshalPayload(&got))
	assert.Equal(t, "obj1", got.ObjectID)
	assert.Equal(t, "created", got.ChangeKind)
}

func TestMessageMetadata(t *testing.T) {
	msg := &Message{}
	assert.Empty(t, msg.GetMetadata("retry"))
	msg.SetMetadata("retry", "2")
	assert.Equal(t, "2", msg.GetMetadata("retry"))
}
