package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublisher_RecordsMessages(t *testing.T) {
	t.Parallel()

	p := New()
	require.Empty(t, p.Messages())

	id, err := p.Publish(context.Background(), "runs", map[string]int{"succeeded": 3})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)

	id, err = p.Publish(context.Background(), "runs", "second")
	require.NoError(t, err)
	require.Equal(t, "memory-2", id)

	msgs := p.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, "runs", msgs[0].Topic)
	require.Equal(t, map[string]int{"succeeded": 3}, msgs[0].Payload)
	require.Equal(t, "second", msgs[1].Payload)
}
