package db

import (
	"power-monitor/internal/model"
)

// Per key, the row with the greatest ts; equal timestamps resolve to the
// most recently inserted row.
const selectLatest = `
	SELECT l.ts, l.key, l.val
	FROM log AS l
	WHERE l.dev = ? AND l.key IS NOT NULL AND l.id = (
		SELECT m.id FROM log AS m
		WHERE m.dev = l.dev AND m.key = l.key
		ORDER BY m.ts DESC, m.id DESC
		LIMIT 1
	)`

const selectRange = `
	SELECT ts, val
	FROM log
	WHERE key = ? AND dev = ? AND ts >= ? AND ts <= ?
	ORDER BY ts ASC, id ASC`

// GetLatest returns the most recent reading of every key ever written for device.
func (d *DB) GetLatest(device uint32) (map[string]model.Item, error) {
	if d.sql == nil {
		return nil, newError(KindNotOpen, "get latest", nil)
	}

	rows, err := d.sql.Query(selectLatest, device)
	if err != nil {
		return nil, newError(KindBackend, "select latest values", err)
	}
	defer rows.Close()

	out := make(map[string]model.Item)
	for rows.Next() {
		var (
			key string
			it  model.Item
		)
		if err := rows.Scan(&it.Timestamp, &key, &it.Value); err != nil {
			return nil, newError(KindBackend, "scan latest value", err)
		}
		out[key] = it
	}
	if err := rows.Err(); err != nil {
		return nil, newError(KindBackend, "select latest values", err)
	}
	return out, nil
}

// Query returns the readings of key on device with tsStart <= ts <= tsEnd,
// oldest first. No match yields an empty, non-nil slice.
func (d *DB) Query(key string, device uint32, tsStart, tsEnd int64) ([]model.Item, error) {
	if d.sql == nil {
		return nil, newError(KindNotOpen, "query", nil)
	}

	rows, err := d.sql.Query(selectRange, key, device, tsStart, tsEnd)
	if err != nil {
		return nil, newError(KindBackend, "select range", err)
	}
	defer rows.Close()

	out := make([]model.Item, 0, 64)
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.Timestamp, &it.Value); err != nil {
			return nil, newError(KindBackend, "scan range row", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, newError(KindBackend, "select range", err)
	}
	return out, nil
}
