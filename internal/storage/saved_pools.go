package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/CalmEddy/SimpleThink-v3-sub001/internal/models"
)

const savedPoolsFile = "saved_pools.json"

// PoolStore persists named template pools as one JSON file
type PoolStore struct {
	filePath string
}

// NewPoolStore creates a pool store under baseDir
func NewPoolStore(baseDir string) *PoolStore {
	return &PoolStore{
		filePath: filepath.Join(baseDir, savedPoolsFile),
	}
}

type savedPoolsData struct {
	Pools   []models.SavedPool `json:"pools"`
	Version string             `json:"version"`
}

// List loads every saved pool, sorted by name
func (s *PoolStore) List() ([]models.SavedPool, error) {
	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return []models.SavedPool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read saved pools file: %w", err)
	}

	var pools savedPoolsData
	if err := json.Unmarshal(data, &pools); err != nil {
		return nil, fmt.Errorf("failed to parse saved pools JSON: %w", err)
	}
	sort.Slice(pools.Pools, func(i, j int) bool { return pools.Pools[i].Name < pools.Pools[j].Name })
	return pools.Pools, nil
}

func (s *PoolStore) write(pools []models.SavedPool) error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create saved pools directory: %w", err)
	}
	data, err := json.MarshalIndent(savedPoolsData{Pools: pools, Version: "1"}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal saved pools: %w", err)
	}
	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write saved pools file: %w", err)
	}
	return nil
}

// Save adds a pool or replaces the one with the same name
func (s *PoolStore) Save(pool models.SavedPool) error {
	if pool.Name == "" {
		return fmt.Errorf("pool name is required")
	}
	pools, err := s.List()
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if pool.CreatedAt == "" {
		pool.CreatedAt = now
	}
	pool.UpdatedAt = now

	for i, existing := range pools {
		if existing.Name == pool.Name {
			pool.CreatedAt = existing.CreatedAt
			pools[i] = pool
			return s.write(pools)
		}
	}
	return s.write(append(pools, pool))
}

// Get returns the pool with the given name
func (s *PoolStore) Get(name string) (*models.SavedPool, error) {
	pools, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := range pools {
		if pools[i].Name == name {
			return &pools[i], nil
		}
	}
	return nil, fmt.Errorf("saved pool %q: %w", name, ErrNotFound)
}

// Delete removes the pool with the given name
func (s *PoolStore) Delete(name string) error {
	pools, err := s.List()
	if err != nil {
		return err
	}
	for i, pool := range pools {
		if pool.Name == name {
			return s.write(append(pools[:i], pools[i+1:]...))
		}
	}
	return fmt.Errorf("saved pool %q: %w", name, ErrNotFound)
}
