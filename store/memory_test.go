package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"ragchat-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Create(ctx, "c1", "什么是防火墙?"))
	conv, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "什么是防火墙?", conv.Title)
	assert.Empty(t, conv.Turns)
}

func TestMemoryStoreTitleTruncation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	long := strings.Repeat("安", 40)
	require.NoError(t, s.Create(ctx, "c1", long))
	conv, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("安", 30)+"...", conv.Title)
}

func TestMemoryStoreAppendOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, "c1", "hi"))

	require.NoError(t, s.Append(ctx, "c1", models.ConversationTurn{Role: models.RoleUser, Content: "q"}))
	require.NoError(t, s.Append(ctx, "c1", models.ConversationTurn{Role: models.RoleAssistant, Content: "a"}))

	conv, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, conv.Turns, 2)
	assert.Equal(t, models.RoleUser, conv.Turns[0].Role)
	assert.Equal(t, models.RoleAssistant, conv.Turns[1].Role)
}

func TestMemoryStoreAppendUnknown(t *testing.T) {
	s := NewMemoryStore()
	err := s.Append(context.Background(), "nope", models.ConversationTurn{Role: models.RoleUser, Content: "q"})
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, "c1", "hi"))
	require.NoError(t, s.Append(ctx, "c1", models.ConversationTurn{Role: models.RoleUser, Content: "q"}))

	conv, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	conv.Turns[0].Content = "mutated"

	again, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "q", again.Turns[0].Content)
}

func TestMemoryStoreListSortedDescending(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, id := range []string{"a", "c", "b"} {
		require.NoError(t, s.Create(ctx, id, "t-"+id))
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, "a", list[2].ID)
}

func TestMemoryStoreClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, "c1", "hi"))
	require.NoError(t, s.Clear(ctx))

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.Get(ctx, "c1")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const conversations = 8
	const turnsEach = 50

	var wg sync.WaitGroup
	for i := 0; i < conversations; i++ {
		id := fmt.Sprintf("c%d", i)
		require.NoError(t, s.Create(ctx, id, id))
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < turnsEach; j++ {
				_ = s.Append(ctx, id, models.ConversationTurn{Role: models.RoleUser, Content: "m"})
			}
		}(id)
	}
	wg.Wait()

	for i := 0; i < conversations; i++ {
		conv, err := s.Get(ctx, fmt.Sprintf("c%d", i))
		require.NoError(t, err)
		assert.Len(t, conv.Turns, turnsEach)
	}
}
