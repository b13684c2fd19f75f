package ircache_test

import (
	"path/filepath"
	"testing"

	"github.com/synthizer/waveling/internal/ircache"
)

func TestPutGetRoundtrip(t *testing.T) {
	cache, err := ircache.Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	key := ircache.Key("program t;\n")
	if _, hit, err := cache.Get(key); err != nil || hit {
		t.Fatalf("fresh cache should miss (hit=%v err=%v)", hit, err)
	}

	doc := []byte(`{"program_name":"t"}`)
	if err := cache.Put(key, doc); err != nil {
		t.Fatal(err)
	}

	got, hit, err := cache.Get(key)
	if err != nil || !hit {
		t.Fatalf("expected a hit (err=%v)", err)
	}
	if string(got) != string(doc) {
		t.Errorf("cached document is %q, want %q", got, doc)
	}
}

func TestPutReplaces(t *testing.T) {
	cache, err := ircache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	key := ircache.Key("source")
	if err := cache.Put(key, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := cache.Put(key, []byte("two")); err != nil {
		t.Fatal(err)
	}
	got, _, err := cache.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "two" {
		t.Errorf("replacement did not stick, got %q", got)
	}
}

func TestKeyDependsOnSource(t *testing.T) {
	if ircache.Key("a") == ircache.Key("b") {
		t.Error("distinct sources must not collide")
	}
	if ircache.Key("a") != ircache.Key("a") {
		t.Error("keys must be deterministic")
	}
}
