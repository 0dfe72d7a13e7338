// Package recordstest holds behaviour checks shared by every records.Gateway.
package recordstest

import (
	"context"
	"encoding/json"
	"resourcerush/internal/records"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Sample returns a waiting public record with one player.
func Sample(roomID string) records.Record {
	return records.Record{
		RoomID:       roomID,
		Name:         "Test",
		Visibility:   "public",
		Status:       records.StatusWaiting,
		HostPlayerID: "p1",
		HostName:     "Alice",
		Players:      []records.PlayerEntry{{ID: "p1", Name: "Alice", JoinedAt: time.Now().UTC().Truncate(time.Second)}},
		MaxPlayers:   4,
	}
}

// Run exercises gw, which must not already hold the room IDs used here.
// wait must let at least d pass on the gateway's clock.
func Run(t *testing.T, gw records.Gateway, wait func(d time.Duration)) {
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		created, err := gw.Create(ctx, Sample("CONFORM01"))
		require.NoError(t, err)
		assert.Equal(t, 1, created.CurrentPlayers)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := gw.Get(ctx, "CONFORM01")
		require.NoError(t, err)
		assert.Equal(t, "Test", got.Name)
		assert.Equal(t, records.StatusWaiting, got.Status)
		require.Len(t, got.Players, 1)
		assert.Equal(t, "Alice", got.Players[0].Name)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := gw.Get(ctx, "MISSING00")
		assert.ErrorIs(t, err, records.ErrNotFound)
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		_, err := gw.Create(ctx, Sample("CONFORM02"))
		require.NoError(t, err)

		rec, err := gw.UpdateStatus(ctx, "CONFORM02", records.StatusPlaying)
		require.NoError(t, err)
		assert.Equal(t, records.StatusPlaying, rec.Status)

		_, err = gw.UpdateStatus(ctx, "MISSING00", records.StatusPlaying)
		assert.ErrorIs(t, err, records.ErrNotFound)
	})

	t.Run("AppendPlayer", func(t *testing.T) {
		_, err := gw.Create(ctx, Sample("CONFORM03"))
		require.NoError(t, err)

		rec, err := gw.AppendPlayer(ctx, "CONFORM03", records.PlayerEntry{ID: "p2", Name: "Bob"})
		require.NoError(t, err)
		assert.Equal(t, 2, rec.CurrentPlayers)
		require.Len(t, rec.Players, 2)
		assert.Equal(t, "Bob", rec.Players[1].Name)
	})

	t.Run("UpdateRoster", func(t *testing.T) {
		_, err := gw.Create(ctx, Sample("CONFORM11"))
		require.NoError(t, err)
		_, err = gw.AppendPlayer(ctx, "CONFORM11", records.PlayerEntry{ID: "p2", Name: "Bob"})
		require.NoError(t, err)

		rec, err := gw.UpdateRoster(ctx, "CONFORM11", records.Roster{
			HostPlayerID: "p2",
			HostName:     "Bob",
			Players:      []records.PlayerEntry{{ID: "p2", Name: "Bob"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, rec.CurrentPlayers)
		assert.Equal(t, "Bob", rec.HostName)

		list, err := gw.ListPublicWaiting(ctx)
		require.NoError(t, err)
		var found bool
		for _, r := range list {
			if r.RoomID == "CONFORM11" {
				found = true
				assert.Equal(t, "p2", r.HostPlayerID)
				assert.Equal(t, "Bob", r.HostName)
				assert.Equal(t, 1, r.CurrentPlayers)
				require.Len(t, r.Players, 1)
				assert.Equal(t, "Bob", r.Players[0].Name)
			}
		}
		assert.True(t, found, "CONFORM11 should be listed")

		_, err = gw.UpdateRoster(ctx, "MISSING00", records.Roster{})
		assert.ErrorIs(t, err, records.ErrNotFound)
	})

	t.Run("UpdateSnapshot", func(t *testing.T) {
		_, err := gw.Create(ctx, Sample("CONFORM04"))
		require.NoError(t, err)

		require.NoError(t, gw.UpdateSnapshot(ctx, "CONFORM04", []byte(`{"id":"CONFORM04","currentRound":3}`)))
		rec, err := gw.Get(ctx, "CONFORM04")
		require.NoError(t, err)

		var snap map[string]any
		require.NoError(t, json.Unmarshal(rec.Snapshot, &snap))
		assert.EqualValues(t, 3, snap["currentRound"])
	})

	t.Run("ListPublicWaiting", func(t *testing.T) {
		pub := Sample("CONFORM05")
		priv := Sample("CONFORM06")
		priv.Visibility = "private"
		playing := Sample("CONFORM07")
		for _, rec := range []records.Record{pub, priv, playing} {
			_, err := gw.Create(ctx, rec)
			require.NoError(t, err)
		}
		_, err := gw.UpdateStatus(ctx, "CONFORM07", records.StatusPlaying)
		require.NoError(t, err)

		list, err := gw.ListPublicWaiting(ctx)
		require.NoError(t, err)
		ids := roomIDs(list)
		assert.Contains(t, ids, "CONFORM05")
		assert.NotContains(t, ids, "CONFORM06")
		assert.NotContains(t, ids, "CONFORM07")
	})

	t.Run("ListOpen", func(t *testing.T) {
		_, err := gw.Create(ctx, Sample("CONFORM08"))
		require.NoError(t, err)
		_, err = gw.UpdateStatus(ctx, "CONFORM08", records.StatusClosed)
		require.NoError(t, err)

		list, err := gw.ListOpen(ctx)
		require.NoError(t, err)
		ids := roomIDs(list)
		assert.NotContains(t, ids, "CONFORM08")
		assert.Contains(t, ids, "CONFORM01")
	})

	t.Run("Delete", func(t *testing.T) {
		_, err := gw.Create(ctx, Sample("CONFORM09"))
		require.NoError(t, err)
		require.NoError(t, gw.Delete(ctx, "CONFORM09"))

		_, err = gw.Get(ctx, "CONFORM09")
		assert.ErrorIs(t, err, records.ErrNotFound)
	})

	t.Run("PurgeOlderThan", func(t *testing.T) {
		_, err := gw.Create(ctx, Sample("CONFORM10"))
		require.NoError(t, err)
		_, err = gw.UpdateStatus(ctx, "CONFORM10", records.StatusFinished)
		require.NoError(t, err)

		n, err := gw.PurgeOlderThan(ctx, records.StatusFinished, time.Hour)
		require.NoError(t, err)
		assert.Zero(t, n)

		wait(2 * time.Second)
		n, err = gw.PurgeOlderThan(ctx, records.StatusFinished, time.Second)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))

		_, err = gw.Get(ctx, "CONFORM10")
		assert.ErrorIs(t, err, records.ErrNotFound)
	})
}

func roomIDs(list []records.Record) []string {
	ids := make([]string, 0, len(list))
	for _, rec := range list {
		ids = append(ids, rec.RoomID)
	}
	return ids
}
