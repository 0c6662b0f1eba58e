package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ncobase/paybatch/payable/structs"
)

type mapCache struct {
	items map[string]*structs.Assignor
	gets  int
}

func (m *mapCache) Get(_ context.Context, id string) (*structs.Assignor, error) {
	m.gets++
	return m.items[id], nil
}

func (m *mapCache) Set(_ context.Context, id string, a *structs.Assignor) error {
	m.items[id] = a
	return nil
}

func (m *mapCache) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type countingAssignors struct {
	AssignorRepository
	finds int
}

func (c *countingAssignors) FindByID(ctx context.Context, id string) (*structs.Assignor, error) {
	c.finds++
	return c.AssignorRepository.FindByID(ctx, id)
}

func TestCachedAssignorRepository(t *testing.T) {
	ctx := context.Background()
	d := newTestData(t)
	inner := &countingAssignors{AssignorRepository: NewAssignorRepository(d)}
	c := &mapCache{items: map[string]*structs.Assignor{}}
	repo := NewCachedAssignorRepository(inner, c)

	a := &structs.Assignor{ID: "a1", Name: "ACME", CreatedAt: time.Now().UTC()}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		got, err := repo.FindByID(ctx, "a1")
		if err != nil || got.Name != "ACME" {
			t.Fatalf("FindByID = %+v, %v", got, err)
		}
	}
	if inner.finds != 1 {
		t.Errorf("database lookups = %d, want 1", inner.finds)
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, ErrAssignorNotFound) {
		t.Errorf("missing err = %v", err)
	}
	if _, cached := c.items["missing"]; cached {
		t.Error("misses must not be cached")
	}
}
