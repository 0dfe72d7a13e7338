package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"resourcerush/internal/records"
	"time"
)

const roomColumns = `room_id, name, visibility, status, host_player_id, host_name,
	players, current_players, max_players, snapshot, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*records.Record, error) {
	var (
		rec      records.Record
		status   string
		players  []byte
		snapshot []byte
	)
	err := row.Scan(&rec.RoomID, &rec.Name, &rec.Visibility, &status, &rec.HostPlayerID, &rec.HostName,
		&players, &rec.CurrentPlayers, &rec.MaxPlayers, &snapshot, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Status = records.Status(status)
	if err := json.Unmarshal(players, &rec.Players); err != nil {
		return nil, fmt.Errorf("decoding players of %s: %w", rec.RoomID, err)
	}
	if len(snapshot) > 0 {
		rec.Snapshot = snapshot
	}
	return &rec, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return records.ErrNotFound
	}
	return err
}

func (d *DB) Create(ctx context.Context, rec records.Record) (*records.Record, error) {
	players, err := json.Marshal(nonNil(rec.Players))
	if err != nil {
		return nil, fmt.Errorf("encoding players: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	row := d.conn.QueryRowContext(ctx, `
		INSERT INTO rooms (room_id, name, visibility, status, host_player_id, host_name,
			players, current_players, max_players, snapshot, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		RETURNING `+roomColumns,
		rec.RoomID, rec.Name, rec.Visibility, string(rec.Status), rec.HostPlayerID, rec.HostName,
		players, len(rec.Players), rec.MaxPlayers, nullBytes(rec.Snapshot), createdAt)
	out, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("creating room record: %w", err)
	}
	return out, nil
}

func (d *DB) Get(ctx context.Context, roomID string) (*records.Record, error) {
	row := d.conn.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE room_id = $1`, roomID)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("getting room record: %w", notFound(err))
	}
	return rec, nil
}

func (d *DB) UpdateStatus(ctx context.Context, roomID string, status records.Status) (*records.Record, error) {
	row := d.conn.QueryRowContext(ctx, `
		UPDATE rooms SET status = $2, updated_at = now()
		WHERE room_id = $1
		RETURNING `+roomColumns, roomID, string(status))
	rec, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("updating room status: %w", notFound(err))
	}
	return rec, nil
}

func (d *DB) AppendPlayer(ctx context.Context, roomID string, player records.PlayerEntry) (*records.Record, error) {
	entry, err := json.Marshal([]records.PlayerEntry{player})
	if err != nil {
		return nil, fmt.Errorf("encoding player: %w", err)
	}
	row := d.conn.QueryRowContext(ctx, `
		UPDATE rooms
		SET players = players || $2::jsonb,
			current_players = jsonb_array_length(players || $2::jsonb),
			updated_at = now()
		WHERE room_id = $1
		RETURNING `+roomColumns, roomID, entry)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("appending room player: %w", notFound(err))
	}
	return rec, nil
}

func (d *DB) UpdateRoster(ctx context.Context, roomID string, roster records.Roster) (*records.Record, error) {
	players, err := json.Marshal(nonNil(roster.Players))
	if err != nil {
		return nil, fmt.Errorf("encoding players: %w", err)
	}
	row := d.conn.QueryRowContext(ctx, `
		UPDATE rooms
		SET host_player_id = $2, host_name = $3, players = $4, current_players = $5, updated_at = now()
		WHERE room_id = $1
		RETURNING `+roomColumns, roomID, roster.HostPlayerID, roster.HostName, players, len(roster.Players))
	rec, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("updating room roster: %w", notFound(err))
	}
	return rec, nil
}

func (d *DB) UpdateSnapshot(ctx context.Context, roomID string, snapshot []byte) error {
	res, err := d.conn.ExecContext(ctx, `
		UPDATE rooms SET snapshot = $2, updated_at = now() WHERE room_id = $1
	`, roomID, snapshot)
	if err != nil {
		return fmt.Errorf("updating room snapshot: %w", err)
	}
	return expectRow(res)
}

func (d *DB) ListPublicWaiting(ctx context.Context) ([]records.Record, error) {
	return d.list(ctx, `
		SELECT `+roomColumns+` FROM rooms
		WHERE visibility = 'public' AND status = $1
		ORDER BY created_at DESC`, string(records.StatusWaiting))
}

func (d *DB) ListOpen(ctx context.Context) ([]records.Record, error) {
	return d.list(ctx, `
		SELECT `+roomColumns+` FROM rooms
		WHERE status <> $1
		ORDER BY created_at DESC`, string(records.StatusClosed))
}

func (d *DB) list(ctx context.Context, query string, args ...any) ([]records.Record, error) {
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing room records: %w", err)
	}
	defer rows.Close()

	out := make([]records.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning room record: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating room records: %w", err)
	}
	return out, nil
}

func (d *DB) Delete(ctx context.Context, roomID string) error {
	res, err := d.conn.ExecContext(ctx, `DELETE FROM rooms WHERE room_id = $1`, roomID)
	if err != nil {
		return fmt.Errorf("deleting room record: %w", err)
	}
	return expectRow(res)
}

func (d *DB) PurgeOlderThan(ctx context.Context, status records.Status, age time.Duration) (int64, error) {
	res, err := d.conn.ExecContext(ctx, `
		DELETE FROM rooms
		WHERE status = $1 AND updated_at < now() - make_interval(secs => $2)
	`, string(status), age.Seconds())
	if err != nil {
		return 0, fmt.Errorf("purging %s room records: %w", status, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purging %s room records: %w", status, err)
	}
	return n, nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return records.ErrNotFound
	}
	return nil
}

func nonNil(players []records.PlayerEntry) []records.PlayerEntry {
	if players == nil {
		return []records.PlayerEntry{}
	}
	return players
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
