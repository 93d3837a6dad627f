package db

import (
	"errors"
	"testing"

	"power-monitor/internal/model"
)

func TestSaveValueDuplicateSuppressed(t *testing.T) {
	d, _ := openTestDB(t)
	d.now = clockAt(1000)

	if err := d.SaveValue("BatteryVoltage", 24000); err != nil {
		t.Fatal(err)
	}
	d.now = clockAt(1060)
	if err := d.SaveValue("BatteryVoltage", 24000); err != nil {
		t.Fatal(err)
	}

	if n := countRows(t, d, "BatteryVoltage"); n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
	cached, _ := d.cache.Get("BatteryVoltage")
	if cached.Timestamp != 1000 {
		t.Fatalf("suppressed write must not touch the cache, got ts %d", cached.Timestamp)
	}
}

func TestSaveValueDeltaThreshold(t *testing.T) {
	d, _ := openTestDB(t)
	d.now = clockAt(1000)

	if err := d.SaveValue("BatteryVoltage", 24000); err != nil {
		t.Fatal(err)
	}
	// 0.42%: below the default 0.5% delta.
	if err := d.SaveValue("BatteryVoltage", 24100); err != nil {
		t.Fatal(err)
	}
	if n := countRows(t, d, "BatteryVoltage"); n != 1 {
		t.Fatalf("expected 24100 to be suppressed, got %d rows", n)
	}

	// 0.83%: stored.
	d.now = clockAt(1010)
	if err := d.SaveValue("BatteryVoltage", 24200); err != nil {
		t.Fatal(err)
	}
	if n := countRows(t, d, "BatteryVoltage"); n != 2 {
		t.Fatalf("expected 24200 to be stored, got %d rows", n)
	}
	cached, _ := d.cache.Get("BatteryVoltage")
	if cached != (model.Item{Timestamp: 1010, Value: 24200}) {
		t.Fatalf("unexpected cache entry %+v", cached)
	}
}

func TestSaveValueCustomDelta(t *testing.T) {
	d, _ := openTestDB(t)
	d.opts.Delta = 5

	for _, v := range []int64{1000, 1040, 960, 1060} {
		if err := d.SaveValue("PvInputPower", v); err != nil {
			t.Fatal(err)
		}
	}
	// 1000 stored, 1040 and 960 within 5%, 1060 stored.
	if n := countRows(t, d, "PvInputPower"); n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
}

func TestSaveValueFromZero(t *testing.T) {
	d, _ := openTestDB(t)

	if err := d.SaveValue("PvInputCurrent", 0); err != nil {
		t.Fatal(err)
	}
	if err := d.SaveValue("PvInputCurrent", 0); err != nil {
		t.Fatal(err)
	}
	if err := d.SaveValue("PvInputCurrent", 1); err != nil {
		t.Fatal(err)
	}
	if n := countRows(t, d, "PvInputCurrent"); n != 2 {
		t.Fatalf("expected 0 and 1 to be stored, got %d rows", n)
	}
}

func TestSaveValueUsesClock(t *testing.T) {
	d, _ := openTestDB(t)
	d.now = clockAt(1700000000)

	if err := d.SaveValue("AcOutputLoad", 42000); err != nil {
		t.Fatal(err)
	}
	items, err := d.Query("AcOutputLoad", model.DefaultDevice, 0, 1<<40)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Timestamp != 1700000000 {
		t.Fatalf("expected one row stamped 1700000000, got %+v", items)
	}
}

func TestSaveValueKeyWithQuotes(t *testing.T) {
	d, _ := openTestDB(t)
	key := `O'Brien "load"; DROP TABLE log; --`

	if err := d.SaveValue(key, 12345); err != nil {
		t.Fatalf("SaveValue: %v", err)
	}
	latest, err := d.GetLatest(model.DefaultDevice)
	if err != nil {
		t.Fatal(err)
	}
	if it, ok := latest[key]; !ok || it.Value != 12345 {
		t.Fatalf("key round trip failed: %v", latest)
	}
}

func TestSaveValueInsertFailureKeepsCache(t *testing.T) {
	d, _ := openTestDB(t)
	d.now = clockAt(500)

	if err := d.SaveValue("BatteryVoltage", 24000); err != nil {
		t.Fatal(err)
	}
	if _, err := d.sql.Exec(`DROP TABLE log`); err != nil {
		t.Fatal(err)
	}

	d.now = clockAt(600)
	err := d.SaveValue("BatteryVoltage", 26000)
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
	cached, _ := d.cache.Get("BatteryVoltage")
	if cached != (model.Item{Timestamp: 500, Value: 24000}) {
		t.Fatalf("cache changed after failed insert: %+v", cached)
	}

	if err := d.SaveValue("AcOutputPower", 1); !errors.Is(err, ErrBackend) {
		t.Fatalf("expected ErrBackend for uncached key, got %v", err)
	}
	if _, ok := d.cache.Get("AcOutputPower"); ok {
		t.Fatal("failed insert must not populate the cache")
	}
}

func TestSaveReading(t *testing.T) {
	d, _ := openTestDB(t)
	d.now = clockAt(900)

	first := model.Reading{Device: 2, Key: "BatteryVoltage", Value: 12000}
	if err := d.SaveReading(&first); err != nil {
		t.Fatal(err)
	}
	if first.ID == 0 || first.Timestamp != 900 {
		t.Fatalf("expected id and clock timestamp to be set, got %+v", first)
	}

	// Identical values are not suppressed.
	second := model.Reading{Device: 2, Timestamp: 950, Key: "BatteryVoltage", Value: 12000}
	if err := d.SaveReading(&second); err != nil {
		t.Fatal(err)
	}
	if second.ID <= first.ID {
		t.Fatalf("expected increasing ids, got %d then %d", first.ID, second.ID)
	}

	items, err := d.Query("BatteryVoltage", 2, 0, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 rows on device 2, got %d", len(items))
	}
	if d.cache.Len() != 0 {
		t.Fatalf("other devices must not reach the default-device cache, got %d keys", d.cache.Len())
	}
}

func TestSaveReadingDefaultDeviceUpdatesCache(t *testing.T) {
	d, _ := openTestDB(t)
	d.now = clockAt(1000)

	if err := d.SaveValue("BatteryVoltage", 24000); err != nil {
		t.Fatal(err)
	}
	r := model.Reading{Device: model.DefaultDevice, Timestamp: 1100, Key: "BatteryVoltage", Value: 30000}
	if err := d.SaveReading(&r); err != nil {
		t.Fatal(err)
	}
	cached, _ := d.cache.Get("BatteryVoltage")
	if cached != (model.Item{Timestamp: 1100, Value: 30000}) {
		t.Fatalf("cache = %+v, want the newer reading", cached)
	}

	// 24050 differs from 30000 by far more than the delta.
	d.now = clockAt(1200)
	if err := d.SaveValue("BatteryVoltage", 24050); err != nil {
		t.Fatal(err)
	}
	if n := countRows(t, d, "BatteryVoltage"); n != 3 {
		t.Fatalf("expected 3 rows, got %d", n)
	}

	latest, err := d.GetLatest(model.DefaultDevice)
	if err != nil {
		t.Fatal(err)
	}
	cached, _ = d.cache.Get("BatteryVoltage")
	if latest["BatteryVoltage"] != cached || cached != (model.Item{Timestamp: 1200, Value: 24050}) {
		t.Fatalf("latest %+v and cache %+v disagree", latest["BatteryVoltage"], cached)
	}
}

func TestSaveReadingBackfillKeepsNewerCache(t *testing.T) {
	d, _ := openTestDB(t)
	d.now = clockAt(1000)

	if err := d.SaveValue("AcOutputPower", 350000); err != nil {
		t.Fatal(err)
	}
	old := model.Reading{Timestamp: 500, Key: "AcOutputPower", Value: 1000}
	if err := d.SaveReading(&old); err != nil {
		t.Fatal(err)
	}
	cached, _ := d.cache.Get("AcOutputPower")
	if cached != (model.Item{Timestamp: 1000, Value: 350000}) {
		t.Fatalf("backfill replaced the cache: %+v", cached)
	}

	fresh := model.Reading{Timestamp: 0, Key: "PvInputPower", Value: 5000}
	if err := d.SaveReading(&fresh); err != nil {
		t.Fatal(err)
	}
	if got, ok := d.cache.Get("PvInputPower"); !ok || got != (model.Item{Timestamp: 1000, Value: 5000}) {
		t.Fatalf("uncached key not added: %+v (ok=%v)", got, ok)
	}
}

func TestRepair(t *testing.T) {
	d, _ := openTestDB(t)

	for _, r := range []model.Reading{
		{Timestamp: 10, Key: "BatteryCurrent", Value: -100},
		{Timestamp: 11, Key: "BatteryCurrent", Value: 0},
		{Timestamp: 12, Key: "BatteryCurrent", Value: 100},
		{Device: 3, Timestamp: 13, Key: "BatteryCurrent", Value: -1},
	} {
		if err := d.SaveReading(&r); err != nil {
			t.Fatal(err)
		}
	}

	n, err := d.Repair()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows deleted, got %d", n)
	}
	items, err := d.Query("BatteryCurrent", model.DefaultDevice, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Item{{Timestamp: 11, Value: 0}, {Timestamp: 12, Value: 100}}
	if len(items) != len(want) {
		t.Fatalf("expected %v, got %v", want, items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("row %d: got %+v, want %+v", i, items[i], want[i])
		}
	}

	n, err = d.Repair()
	if err != nil || n != 0 {
		t.Fatalf("second repair: n=%d err=%v", n, err)
	}
}
