package cache

import (
	"context"
	"testing"
	"time"
)

type item struct {
	Name string `json:"name"`
}

func TestKey(t *testing.T) {
	c := NewCache[item](nil, "paybatch:assignor", time.Minute)
	if got := c.Key("a1"); got != "paybatch:assignor:a1" {
		t.Errorf("Key = %s", got)
	}
}

func TestNilClientIsAMiss(t *testing.T) {
	ctx := context.Background()
	c := NewCache[item](nil, "p", 0)

	if err := c.Set(ctx, "a", &item{Name: "x"}); err != nil {
		t.Fatal(err)
	}
	v, err := c.Get(ctx, "a")
	if err != nil || v != nil {
		t.Errorf("Get = %v, %v", v, err)
	}
	if err := c.Delete(ctx, "a"); err != nil {
		t.Error(err)
	}

	var nilCache *Cache[item]
	if v, err := nilCache.Get(ctx, "a"); v != nil || err != nil {
		t.Errorf("nil cache Get = %v, %v", v, err)
	}
}
