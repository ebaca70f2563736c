package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunHandoffQueueContract runs a suite of tests to verify that a HandoffQueue
// implementation adheres to the defined interface contract.
// The queue must be empty when the suite starts.
func RunHandoffQueueContract(t *testing.T, queue HandoffQueue) {
	ctx := context.Background()
	stamp := time.Now().UTC().Truncate(time.Second)

	first := domain.Ticket{ID: "t-1", Query: "refund please", UserID: "U1", Reason: "High urgency", CreatedAt: stamp}
	second := domain.Ticket{ID: "t-2", Query: "talk to a human", UserID: "U2", Reason: "Escalation requested", CreatedAt: stamp}

	t.Run("Empty", func(t *testing.T) {
		pending, err := queue.Pending(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("Submit and List In Order", func(t *testing.T) {
		require.NoError(t, queue.Submit(ctx, first))
		require.NoError(t, queue.Submit(ctx, second))

		pending, err := queue.Pending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "t-1", pending[0].ID)
		assert.Equal(t, "refund please", pending[0].Query)
		assert.Equal(t, "U2", pending[1].UserID)
		assert.True(t, stamp.Equal(pending[1].CreatedAt))
	})

	t.Run("Limit Keeps Newest", func(t *testing.T) {
		pending, err := queue.Pending(ctx, 1)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "t-2", pending[0].ID)
	})
}

// RunRetrieverContract verifies the ordering and bound guarantees of a Retriever.
// The retriever must hold at least one passage matching query.
func RunRetrieverContract(t *testing.T, r Retriever, query string) {
	ctx := context.Background()

	t.Run("Respects k", func(t *testing.T) {
		snippets, err := r.Search(ctx, query, 1)
		require.NoError(t, err)
		assert.Len(t, snippets, 1)
	})

	t.Run("Snippets Are Labelled", func(t *testing.T) {
		snippets, err := r.Search(ctx, query, 3)
		require.NoError(t, err)
		require.NotEmpty(t, snippets)
		for _, s := range snippets {
			assert.NotEmpty(t, s.Source)
			assert.NotEmpty(t, s.Text)
		}
	})

	t.Run("Zero k", func(t *testing.T) {
		snippets, err := r.Search(ctx, query, 0)
		require.NoError(t, err)
		assert.Empty(t, snippets)
	})
}
