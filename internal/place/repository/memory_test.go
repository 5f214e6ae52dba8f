package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemoryRepoAddSetAll(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()

	id1, err := r.Add(ctx, map[string]any{"placeName": "Cafe"})
	require.NoError(t, err)
	require.NotEmpty(t, id1)
	id2, err := r.Add(ctx, map[string]any{"placeName": "Deli"})
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	list, err := r.All(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, id1, list[0].ID)
	require.Equal(t, id2, list[1].ID)

	// Set replaces the whole document
	require.NoError(t, r.Set(ctx, id1, map[string]any{"address": "1 Main St"}))
	list, err = r.All(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, map[string]any{"address": "1 Main St"}, list[0].Fields)

	// Set on an unknown id creates it
	require.NoError(t, r.Set(ctx, "abc", map[string]any{"placeName": "New"}))
	require.Equal(t, 3, r.Len())

	require.ErrorIs(t, r.Set(ctx, "", nil), ErrInvalidID)
}

func TestMemoryRepoReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepo()
	in := map[string]any{"placeName": "Cafe"}
	id, err := r.Add(ctx, in)
	require.NoError(t, err)
	in["placeName"] = "mutated"

	list, err := r.All(ctx)
	require.NoError(t, err)
	require.Equal(t, "Cafe", list[0].Fields["placeName"])
	list[0].Fields["placeName"] = "mutated again"

	list, _ = r.All(ctx)
	require.Equal(t, "Cafe", list[0].Fields["placeName"])
	require.Equal(t, id, list[0].ID)
}

func TestMemoryRepoSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewMemoryRepo()
	ch, err := r.Subscribe(ctx)
	require.NoError(t, err)

	_, err = r.Add(context.Background(), map[string]any{"placeName": "Cafe"})
	require.NoError(t, err)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected change notification")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-ch
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryRepoHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewMemoryRepo()
	_, err := r.All(ctx)
	require.Error(t, err)
	_, err = r.Add(ctx, nil)
	require.Error(t, err)
}

func TestMongoIDMapping(t *testing.T) {
	m := NewMongoRepo(nil)
	oid := primitive.NewObjectID()
	require.Equal(t, oid.Hex(), m.idString(oid))
	require.Equal(t, "abc", m.idString("abc"))
	require.Equal(t, "", m.idString(nil))
	require.Equal(t, "7", m.idString(int32(7)))

	require.Equal(t, oid, m.idValue(oid.Hex()))
	require.Equal(t, "abc", m.idValue("abc"))
}

func TestMongoIDMapping_HexLookingStringStaysString(t *testing.T) {
	m := NewMongoRepo(nil)
	hexString := "0123456789abcdef01234567"
	require.Equal(t, hexString, m.idString(hexString))
	require.Equal(t, hexString, m.idValue(hexString), "string _id must not be turned into an ObjectID")

	// an id never read from the collection is addressed as given
	other := primitive.NewObjectID().Hex()
	require.Equal(t, other, m.idValue(other))
}
