// Package probestore is the per-node liveness-probe backing store: one
// Redis database per sampler worker, holding each of that worker's
// targets as a hash plus a small rolling window of recent outcomes.
//
// Grounded on original_source/mnet/pmonitor.py's SQLite `targets` table
// (columns sample_time/responded/total_count/total_success, a
// last-five rolling window query) re-expressed against Redis the way the
// teacher's pkg/newtron/device/sonic clients wrap one Redis DB per
// concern (sonic.AppDBClient owns DB 0, sonic.AsicDBClient owns DB 1):
// here, each probe worker owns one DB, keyed by worker index.
package probestore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	lastFiveKey = "last_five"
	lastFiveCap = 5
)

// Store is a single worker's probe backing store.
type Store struct {
	client *redis.Client
}

// New returns a Store backed by DB db on the Redis server at addr.
func New(addr string, db int) *Store {
	return &Store{client: redis.NewClient(&redis.Options{Addr: addr, DB: db})}
}

// Close releases the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping verifies connectivity to the backing Redis server.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func probeKey(address string) string {
	return "probe:" + address
}

// Record is one target's accumulated liveness state, mirroring
// pmonitor.py's targets row.
type Record struct {
	Name         string
	Address      string
	Stable       bool
	Responded    bool
	SampleTime   time.Time
	TotalCount   int
	TotalSuccess int
}

// Result is one historical probe outcome kept in the rolling window.
type Result struct {
	Name      string
	Address   string
	Responded bool
	Time      time.Time
}

// RecordResult updates address's accumulated hash and pushes the outcome
// onto the capped last-five list. total_count always increments;
// total_success increments only on a successful response — the same
// insert-or-update behavior as pmonitor.py's sample_target.
func (s *Store) RecordResult(ctx context.Context, name, address string, stable, responded bool) error {
	key := probeKey(address)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"name":        name,
		"address":     address,
		"stable":      stable,
		"responded":   responded,
		"sample_time": time.Now().Unix(),
	})
	pipe.HIncrBy(ctx, key, "total_count", 1)
	if responded {
		pipe.HIncrBy(ctx, key, "total_success", 1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording probe result for %s: %w", address, err)
	}

	payload, err := json.Marshal(Result{Name: name, Address: address, Responded: responded, Time: time.Now()})
	if err != nil {
		return fmt.Errorf("encoding probe result for %s: %w", address, err)
	}
	lpipe := s.client.TxPipeline()
	lpipe.LPush(ctx, lastFiveKey, payload)
	lpipe.LTrim(ctx, lastFiveKey, 0, lastFiveCap-1)
	if _, err := lpipe.Exec(ctx); err != nil {
		return fmt.Errorf("updating last-five window for %s: %w", address, err)
	}
	return nil
}

// StatusCount returns (good, total) counts among targets whose Stable flag
// strictly equals stable, restricted to targets that have been sampled at
// least once — the stable/dynamic partition spec.md §4.9's aggregator
// needs. This diverges from pmonitor.py's get_status_count, whose
// stable=false branch counts every row regardless of the flag; spec.md's
// aggregator needs a strict partition instead, so both calls here filter.
func (s *Store) StatusCount(ctx context.Context, stable bool) (good, total int, err error) {
	records, err := s.allRecords(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, r := range records {
		if r.Stable != stable || r.TotalCount == 0 {
			continue
		}
		total++
		if r.Responded {
			good++
		}
	}
	return good, total, nil
}

// StatusList returns every sampled target's current record, matching
// pmonitor.py's get_status_list.
func (s *Store) StatusList(ctx context.Context) ([]Record, error) {
	records, err := s.allRecords(ctx)
	if err != nil {
		return nil, err
	}
	out := records[:0:0]
	for _, r := range records {
		if r.TotalCount > 0 {
			out = append(out, r)
		}
	}
	return out, nil
}

// LastFive returns the store's rolling window of recent probe outcomes,
// newest first.
func (s *Store) LastFive(ctx context.Context) ([]Result, error) {
	raw, err := s.client.LRange(ctx, lastFiveKey, 0, lastFiveCap-1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("reading last-five window: %w", err)
	}
	out := make([]Result, 0, len(raw))
	for _, item := range raw {
		var r Result
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) allRecords(ctx context.Context) ([]Record, error) {
	var cursor uint64
	var keys []string
	for {
		batch, next, err := s.client.Scan(ctx, cursor, "probe:*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning probe keys: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	out := make([]Record, 0, len(keys))
	for _, key := range keys {
		vals, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}
		out = append(out, parseRecord(vals))
	}
	return out, nil
}

func parseRecord(vals map[string]string) Record {
	r := Record{Name: vals["name"], Address: vals["address"]}
	r.Stable = isTrue(vals["stable"])
	r.Responded = isTrue(vals["responded"])
	if ts, err := strconv.ParseInt(vals["sample_time"], 10, 64); err == nil {
		r.SampleTime = time.Unix(ts, 0)
	}
	r.TotalCount, _ = strconv.Atoi(vals["total_count"])
	r.TotalSuccess, _ = strconv.Atoi(vals["total_success"])
	return r
}

func isTrue(v string) bool {
	return v == "1" || v == "true"
}
