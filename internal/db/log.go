package db

import (
	"power-monitor/internal/model"
	"power-monitor/internal/utils"
)

const insertReading = `INSERT INTO log (dev, ts, key, val) VALUES (?, ?, ?, ?)`

// SaveValue records a reading for the default device unless it is within the
// configured delta of the cached value for key. Suppressed readings succeed
// without touching storage. The cache is only updated after a successful insert.
func (d *DB) SaveValue(key string, value int64) error {
	if d.sql == nil {
		return newError(KindNotOpen, "save value", nil)
	}

	if cached, ok := d.cache.Get(key); ok {
		if cached.Value == value {
			d.log.Debug("same value, ignoring", "key", key, "value", value)
			return nil
		}
		if !utils.ExceedsDelta(value, cached.Value, d.opts.Delta) {
			d.log.Debug("within delta of cached value, ignoring",
				"key", key, "old", cached.Value, "new", value, "delta", d.opts.Delta)
			return nil
		}
		d.log.Debug("replacing existing value", "key", key, "old", cached.Value, "new", value)
	} else {
		d.log.Debug("no stored value, saving", "key", key, "value", value)
	}

	it := model.Item{Timestamp: d.now().Unix(), Value: value}
	if _, err := d.insert(model.DefaultDevice, it.Timestamp, key, it.Value); err != nil {
		return err
	}
	d.cache.Set(key, it)
	return nil
}

// SaveReading appends r as-is, bypassing delta suppression. A zero Timestamp
// is replaced with the current time. r.ID is set from the new row.
// A default-device reading no older than the cached one for its key becomes
// the cached value, so the cache keeps matching GetLatest.
func (d *DB) SaveReading(r *model.Reading) error {
	if d.sql == nil {
		return newError(KindNotOpen, "save reading", nil)
	}
	if r.Timestamp == 0 {
		r.Timestamp = d.now().Unix()
	}
	id, err := d.insert(r.Device, r.Timestamp, r.Key, r.Value)
	if err != nil {
		return err
	}
	r.ID = id

	if r.Device == model.DefaultDevice {
		if cached, ok := d.cache.Get(r.Key); !ok || r.Timestamp >= cached.Timestamp {
			d.cache.Set(r.Key, model.Item{Timestamp: r.Timestamp, Value: r.Value})
		}
	}
	return nil
}

func (d *DB) insert(dev uint32, ts int64, key string, val int64) (int64, error) {
	res, err := d.sql.Exec(insertReading, dev, ts, key, val)
	if err != nil {
		return 0, newError(KindBackend, "insert reading", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, newError(KindBackend, "insert reading", err)
	}
	return id, nil
}

// Repair deletes every row with a negative value, on all devices, and returns
// how many were removed. The cache is left alone; reopen to refresh it.
func (d *DB) Repair() (int64, error) {
	if d.sql == nil {
		return 0, newError(KindNotOpen, "repair", nil)
	}
	res, err := d.sql.Exec(`DELETE FROM log WHERE val < 0`)
	if err != nil {
		return 0, newError(KindBackend, "delete negative values", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, newError(KindBackend, "delete negative values", err)
	}
	if n > 0 {
		d.log.Info("repaired log", "deleted", n)
	}
	return n, nil
}
