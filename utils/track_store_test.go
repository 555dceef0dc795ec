package utils

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestMemoryTrackStoreHashOps(t *testing.T) {
	store := NewMemoryTrackStore()
	ctx := context.Background()

	if v, err := store.HGet(ctx, "h", "missing"); err != nil || v != "" {
		t.Fatalf("expected empty value for missing field, got %q err %v", v, err)
	}

	if err := store.HSet(ctx, "h", "a", "1"); err != nil {
		t.Fatalf("hset: %v", err)
	}
	if n, err := store.HIncrBy(ctx, "h", "a", 2); err != nil || n != 3 {
		t.Fatalf("expected incr to 3, got %d err %v", n, err)
	}

	all, err := store.HGetAll(ctx, "h")
	if err != nil {
		t.Fatalf("hgetall: %v", err)
	}
	if all["a"] != "3" {
		t.Fatalf("expected a=3, got %v", all)
	}

	if err := store.HDel(ctx, "h", "a"); err != nil {
		t.Fatalf("hdel: %v", err)
	}
	if keys, _ := store.HKeys(ctx, "h"); len(keys) != 0 {
		t.Fatalf("expected empty hash, got %v", keys)
	}
}

func TestMemoryTrackStoreSetOpsAndExpiry(t *testing.T) {
	store := NewMemoryTrackStore()
	ctx := context.Background()

	if err := store.SAdd(ctx, "s", "1", "2", "1"); err != nil {
		t.Fatalf("sadd: %v", err)
	}
	members, err := store.SMembers(ctx, "s")
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	sort.Strings(members)
	if len(members) != 2 || members[0] != "1" || members[1] != "2" {
		t.Fatalf("expected {1,2}, got %v", members)
	}

	if err := store.Expire(ctx, "s", 10*time.Millisecond); err != nil {
		t.Fatalf("expire: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	members, _ = store.SMembers(ctx, "s")
	if len(members) != 0 {
		t.Fatalf("expected expired set, got %v", members)
	}
}

func TestMemoryTrackStoreConcurrentIncrements(t *testing.T) {
	store := NewMemoryTrackStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	const workers = 16
	const perWorker = 50
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := store.HIncrBy(ctx, "h", "n", 1); err != nil {
					t.Errorf("hincrby: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	v, _ := store.HGet(ctx, "h", "n")
	if v != "800" {
		t.Fatalf("expected 800 after concurrent increments, got %s", v)
	}
}
