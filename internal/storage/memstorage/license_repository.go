// Package memstorage holds an in-memory license repository for tests and
// local runs without PostgreSQL.
package memstorage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/makkenzo/license-checkout-service/internal/domain/license"
)

type LicenseRepository struct {
	mu    sync.RWMutex
	byKey map[string]*license.License
	now   func() time.Time
}

func NewLicenseRepository() *LicenseRepository {
	return &LicenseRepository{
		byKey: make(map[string]*license.License),
		now:   time.Now,
	}
}

var _ license.Repository = (*LicenseRepository)(nil)

func (r *LicenseRepository) Create(_ context.Context, lic *license.License) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byKey[lic.LicenseKey]; exists {
		return uuid.Nil, fmt.Errorf("%w: %s", license.ErrDuplicateKey, lic.LicenseKey)
	}
	if lic.Notes.Valid {
		for _, other := range r.byKey {
			if other.Notes.Valid && other.Notes.String == lic.Notes.String {
				return uuid.Nil, fmt.Errorf("%w: %s", license.ErrDuplicateSession, lic.Notes.String)
			}
		}
	}

	lic.ID = uuid.New()
	lic.CreatedAt = r.now().UTC()

	stored := *lic
	r.byKey[lic.LicenseKey] = &stored
	return lic.ID, nil
}

func (r *LicenseRepository) FindByKey(_ context.Context, key string) (*license.License, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lic, ok := r.byKey[key]
	if !ok {
		return nil, license.ErrNotFound
	}
	licCopy := *lic
	return &licCopy, nil
}

func (r *LicenseRepository) FindBySessionID(_ context.Context, sessionID string) (*license.License, error) {
	if sessionID == "" {
		return nil, license.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *license.License
	for _, lic := range r.byKey {
		if lic.SessionID() == sessionID {
			found = lic
			break
		}
	}
	if found == nil {
		return nil, license.ErrNotFound
	}
	licCopy := *found
	return &licCopy, nil
}

func (r *LicenseRepository) List(_ context.Context, params license.ListParams) ([]*license.License, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*license.License, 0, len(r.byKey))
	for _, lic := range r.byKey {
		if params.PurchaseEmail != nil && !strings.EqualFold(lic.PurchaseEmail, *params.PurchaseEmail) {
			continue
		}
		if params.IsActive != nil && lic.IsActive != *params.IsActive {
			continue
		}
		licCopy := *lic
		matched = append(matched, &licCopy)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if params.Offset >= len(matched) {
		return []*license.License{}, total, nil
	}
	matched = matched[params.Offset:]
	if params.Limit > 0 && params.Limit < len(matched) {
		matched = matched[:params.Limit]
	}
	return matched, total, nil
}

func (r *LicenseRepository) SetActive(_ context.Context, key string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lic, ok := r.byKey[key]
	if !ok {
		return license.ErrNotFound
	}
	lic.IsActive = active
	return nil
}

func (r *LicenseRepository) Stats(_ context.Context) (*license.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dayAgo := r.now().Add(-24 * time.Hour)
	var s license.Stats
	for _, lic := range r.byKey {
		s.Total++
		if lic.IsActive {
			s.Active++
		} else {
			s.Inactive++
		}
		if lic.CreatedAt.After(dayAgo) {
			s.IssuedDay++
		}
	}
	return &s, nil
}

// Len reports how many licenses are stored.
func (r *LicenseRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}
