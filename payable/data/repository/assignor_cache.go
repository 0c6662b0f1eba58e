package repository

import (
	"context"

	"github.com/ncobase/paybatch/cache"
	"github.com/ncobase/paybatch/logging/logger"
	"github.com/ncobase/paybatch/payable/structs"
)

type cachedAssignorRepository struct {
	AssignorRepository
	cache cache.ICache[structs.Assignor]
}

// NewCachedAssignorRepository serves lookups from c before asking repo.
// Cache failures fall back to repo.
func NewCachedAssignorRepository(repo AssignorRepository, c cache.ICache[structs.Assignor]) AssignorRepository {
	return &cachedAssignorRepository{AssignorRepository: repo, cache: c}
}

func (r *cachedAssignorRepository) FindByID(ctx context.Context, id string) (*structs.Assignor, error) {
	if a, err := r.cache.Get(ctx, id); err != nil {
		logger.Warnf(ctx, "assignor cache get %s: %v", id, err)
	} else if a != nil {
		return a, nil
	}

	a, err := r.AssignorRepository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, id, a); err != nil {
		logger.Warnf(ctx, "assignor cache set %s: %v", id, err)
	}
	return a, nil
}
