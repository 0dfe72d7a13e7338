// Package redisstore keeps room records in Redis: one JSON document per room
// plus a sorted-set index ordered by creation time.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"resourcerush/internal/records"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultPrefix = "resourcerush"
	maxRetries    = 5
)

type Store struct {
	client *redis.Client
	prefix string
	clock  clockwork.Clock
}

func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

func New(client *redis.Client, prefix string, clock clockwork.Clock) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{client: client, prefix: prefix, clock: clock}
}

func (s *Store) key(roomID string) string {
	return s.prefix + ":room:" + roomID
}

func (s *Store) indexKey() string {
	return s.prefix + ":rooms"
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Create(ctx context.Context, rec records.Record) (*records.Record, error) {
	now := s.clock.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	rec.CurrentPlayers = len(rec.Players)
	if rec.Players == nil {
		rec.Players = []records.PlayerEntry{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding room record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(rec.RoomID), data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("creating room record: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("creating room record %s: already exists", rec.RoomID)
	}
	if err := s.client.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(rec.CreatedAt.UnixNano()),
		Member: rec.RoomID,
	}).Err(); err != nil {
		return nil, fmt.Errorf("indexing room record: %w", err)
	}
	return &rec, nil
}

func (s *Store) Get(ctx context.Context, roomID string) (*records.Record, error) {
	data, err := s.client.Get(ctx, s.key(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, records.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting room record: %w", err)
	}
	var rec records.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding room record %s: %w", roomID, err)
	}
	return &rec, nil
}

func (s *Store) UpdateStatus(ctx context.Context, roomID string, status records.Status) (*records.Record, error) {
	return s.update(ctx, roomID, func(rec *records.Record) {
		rec.Status = status
	})
}

func (s *Store) AppendPlayer(ctx context.Context, roomID string, player records.PlayerEntry) (*records.Record, error) {
	return s.update(ctx, roomID, func(rec *records.Record) {
		rec.Players = append(rec.Players, player)
		rec.CurrentPlayers = len(rec.Players)
	})
}

func (s *Store) UpdateRoster(ctx context.Context, roomID string, roster records.Roster) (*records.Record, error) {
	return s.update(ctx, roomID, func(rec *records.Record) {
		rec.HostPlayerID = roster.HostPlayerID
		rec.HostName = roster.HostName
		rec.Players = append([]records.PlayerEntry{}, roster.Players...)
		rec.CurrentPlayers = len(rec.Players)
	})
}

func (s *Store) UpdateSnapshot(ctx context.Context, roomID string, snapshot []byte) error {
	_, err := s.update(ctx, roomID, func(rec *records.Record) {
		rec.Snapshot = append([]byte(nil), snapshot...)
	})
	return err
}

// update applies fn to the stored record under WATCH so concurrent writers
// never lose each other's changes.
func (s *Store) update(ctx context.Context, roomID string, fn func(*records.Record)) (*records.Record, error) {
	key := s.key(roomID)
	var out records.Record

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return records.ErrNotFound
		}
		if err != nil {
			return err
		}
		var rec records.Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("decoding room record %s: %w", roomID, err)
		}
		fn(&rec)
		rec.UpdatedAt = s.clock.Now().UTC()
		data, err = json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding room record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			out = rec
		}
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, records.ErrNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("updating room record: %w", err)
		}
		return &out, nil
	}
	return nil, fmt.Errorf("updating room record %s: too much contention", roomID)
}

func (s *Store) ListPublicWaiting(ctx context.Context) ([]records.Record, error) {
	return s.list(ctx, func(rec records.Record) bool {
		return rec.Visibility == "public" && rec.Status == records.StatusWaiting
	})
}

func (s *Store) ListOpen(ctx context.Context) ([]records.Record, error) {
	return s.list(ctx, func(rec records.Record) bool {
		return rec.Status != records.StatusClosed
	})
}

// list loads every indexed record, newest first, keeping those keep accepts.
// Index entries whose document is gone are pruned.
func (s *Store) list(ctx context.Context, keep func(records.Record) bool) ([]records.Record, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing room index: %w", err)
	}
	out := make([]records.Record, 0)
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("loading room records: %w", err)
	}

	var stale []any
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var rec records.Record
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, fmt.Errorf("decoding room record %s: %w", ids[i], err)
		}
		if keep(rec) {
			out = append(out, rec)
		}
	}
	if len(stale) > 0 {
		s.client.ZRem(ctx, s.indexKey(), stale...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) Delete(ctx context.Context, roomID string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.key(roomID))
	pipe.ZRem(ctx, s.indexKey(), roomID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting room record: %w", err)
	}
	if del.Val() == 0 {
		return records.ErrNotFound
	}
	return nil
}

func (s *Store) PurgeOlderThan(ctx context.Context, status records.Status, age time.Duration) (int64, error) {
	cutoff := s.clock.Now().Add(-age)
	list, err := s.list(ctx, func(rec records.Record) bool {
		return rec.Status == status && rec.UpdatedAt.Before(cutoff)
	})
	if err != nil {
		return 0, fmt.Errorf("purging %s room records: %w", status, err)
	}
	var n int64
	for _, rec := range list {
		if err := s.Delete(ctx, rec.RoomID); err != nil {
			if errors.Is(err, records.ErrNotFound) {
				continue
			}
			return n, fmt.Errorf("purging %s room records: %w", status, err)
		}
		n++
	}
	return n, nil
}
