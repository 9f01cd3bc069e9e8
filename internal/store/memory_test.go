package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	memory := NewMemory()

	_, err := memory.Get(ctx, "portal:announcements")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, memory.Set(ctx, "portal:announcements", []byte(`[]`)))

	value, err := memory.Get(ctx, "portal:announcements")
	require.NoError(t, err)
	require.Equal(t, []byte(`[]`), value)

	require.NoError(t, memory.Delete(ctx, "portal:announcements"))
	_, err = memory.Get(ctx, "portal:announcements")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	memory := NewMemory()
	require.NoError(t, memory.Set(ctx, "k", []byte("abc")))

	value, err := memory.Get(ctx, "k")
	require.NoError(t, err)
	value[0] = 'z'

	again, err := memory.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), again)
}

func TestMemorySubscribeNotifiesOnChange(t *testing.T) {
	ctx := context.Background()
	memory := NewMemory()

	var fired int
	unsubscribe, err := memory.Subscribe(ctx, "k", func() { fired++ })
	require.NoError(t, err)

	require.NoError(t, memory.Set(ctx, "k", []byte("1")))
	require.NoError(t, memory.Set(ctx, "other", []byte("x")))
	require.NoError(t, memory.Delete(ctx, "k"))
	require.Equal(t, 2, fired)

	unsubscribe()
	unsubscribe() // idempotent

	require.NoError(t, memory.Set(ctx, "k", []byte("2")))
	require.Equal(t, 2, fired)
}

func TestMemorySubscriberMayWriteBack(t *testing.T) {
	ctx := context.Background()
	memory := NewMemory()

	done := false
	unsubscribe, err := memory.Subscribe(ctx, "k", func() {
		if done {
			return
		}
		done = true
		require.NoError(t, memory.Set(ctx, "k2", []byte("side")))
	})
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, memory.Set(ctx, "k", []byte("1")))

	value, err := memory.Get(ctx, "k2")
	require.NoError(t, err)
	require.Equal(t, []byte("side"), value)
}
