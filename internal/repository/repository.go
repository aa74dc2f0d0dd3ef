package repository

import (
	"context"
	"errors"
	"fmt"

	"listingfilter/internal/config"
	"listingfilter/internal/model"
)

var (
	// ErrListingNotFound is returned when an id is not part of the dataset
	ErrListingNotFound = errors.New("listing not found")
	// ErrDuplicateListing is returned when a source yields the same id twice
	ErrDuplicateListing = errors.New("duplicate listing id")
)

// ListingSource loads the listing dataset from wherever it is stored
type ListingSource interface {
	LoadListings(ctx context.Context) ([]model.Listing, error)
	Close() error
}

// Dataset is the immutable, ordered set of listings the service filters.
type Dataset struct {
	listings []model.Listing
	index    map[int64]int
}

// NewDataset copies listings into a dataset, rejecting duplicate ids
func NewDataset(listings []model.Listing) (*Dataset, error) {
	d := &Dataset{
		listings: make([]model.Listing, len(listings)),
		index:    make(map[int64]int, len(listings)),
	}
	copy(d.listings, listings)

	for i, l := range d.listings {
		if _, ok := d.index[l.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateListing, l.ID)
		}
		d.index[l.ID] = i
	}
	return d, nil
}

// Load reads every listing from src into a dataset
func Load(ctx context.Context, src ListingSource) (*Dataset, error) {
	listings, err := src.LoadListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load listings: %w", err)
	}
	return NewDataset(listings)
}

// All returns the listings in dataset order. Callers must not modify the result.
func (d *Dataset) All() []model.Listing {
	return d.listings
}

// Len returns the number of listings
func (d *Dataset) Len() int {
	return len(d.listings)
}

// Get returns the listing with the given id
func (d *Dataset) Get(id int64) (model.Listing, error) {
	i, ok := d.index[id]
	if !ok {
		return model.Listing{}, fmt.Errorf("%w: %d", ErrListingNotFound, id)
	}
	return d.listings[i], nil
}

// Open picks the listing source described by cfg: SQL table, dataset file, or the embedded default.
func Open(cfg config.DatasetConfig) (ListingSource, error) {
	switch {
	case cfg.Driver != "":
		return NewSQLRepository(cfg.Driver, cfg.DSN, cfg.Table, cfg.MaxConnections)
	case cfg.Path != "":
		return NewFileSource(cfg.Path), nil
	default:
		return NewEmbeddedSource(), nil
	}
}
