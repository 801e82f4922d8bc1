// Package venuestest provides an in-memory venue catalogue.
package venuestest

import (
	"context"
	"sort"
	"sync"

	"turfbook/internal/venues/repository"
	"turfbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Repository struct {
	mu     sync.RWMutex
	venues map[string]*model.Venue
}

func NewRepository(venues ...*model.Venue) *Repository {
	r := &Repository{venues: make(map[string]*model.Venue)}
	for _, v := range venues {
		r.Add(v)
	}
	return r
}

// Add stores v, assigning an id when it has none.
func (r *Repository) Add(v *model.Venue) *model.Venue {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v.ID == "" {
		v.ID = primitive.NewObjectID().Hex()
	}
	r.venues[v.ID] = v
	return v
}

func (r *Repository) FindByID(_ context.Context, id string) (*model.Venue, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, repository.ErrInvalidID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.venues[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *Repository) FindIDsByOwner(_ context.Context, ownerID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, v := range r.venues {
		if v.OwnerID == ownerID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
