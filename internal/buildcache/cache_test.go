package buildcache

import (
	"os"
	"testing"
	"time"
)

func open(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestKeyStability(t *testing.T) {
	a := Key([]byte("x = 1"), "v1")
	b := Key([]byte("x = 1"), "v1")
	if a != b {
		t.Error("identical inputs produced different keys")
	}
	if Key([]byte("x = 1"), "v2") == a {
		t.Error("extra input did not change the key")
	}
	if Key([]byte("x = 2"), "v1") == a {
		t.Error("source change did not change the key")
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
}

func TestPutGet(t *testing.T) {
	c := open(t)
	key := Key([]byte("print(1)"))

	if _, ok := c.Get(key); ok {
		t.Fatal("hit on empty cache")
	}
	path, err := c.Put(key, []byte("artifact"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := c.Get(key)
	if !ok {
		t.Fatal("miss after put")
	}
	if got != path {
		t.Errorf("path = %q, want %q", got, path)
	}
	data, err := os.ReadFile(got)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "artifact" {
		t.Errorf("content = %q", data)
	}
}

func TestPutReplaces(t *testing.T) {
	c := open(t)
	key := Key([]byte("a"))
	if _, err := c.Put(key, []byte("old")); err != nil {
		t.Fatal(err)
	}
	path, err := c.Put(key, []byte("new"))
	if err != nil {
		t.Fatalf("re-put: %v", err)
	}
	got, ok := c.Get(key)
	if !ok || got != path {
		t.Fatalf("got %q ok=%v", got, ok)
	}
	data, _ := os.ReadFile(got)
	if string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
}

func TestGetPrunesVanishedArtifact(t *testing.T) {
	c := open(t)
	key := Key([]byte("b"))
	path, err := c.Put(key, []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	os.Remove(path)
	if _, ok := c.Get(key); ok {
		t.Error("hit for artifact deleted on disk")
	}
}

func TestPrune(t *testing.T) {
	c := open(t)
	key := Key([]byte("c"))
	if _, err := c.Put(key, []byte("x")); err != nil {
		t.Fatal(err)
	}
	time.Sleep(1100 * time.Millisecond)
	if err := c.Prune(time.Second); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("pruned artifact still served")
	}
}
