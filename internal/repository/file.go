package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"listingfilter/internal/model"
)

//go:embed data/listings.json
var defaultListings []byte

// FileSource reads listings from a JSON or YAML document holding an array of listings
type FileSource struct {
	path   string
	format string
	data   []byte
}

// NewFileSource creates a source for the file at path; the format follows the extension.
func NewFileSource(path string) *FileSource {
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	return &FileSource{path: path, format: format}
}

// NewEmbeddedSource returns the dataset compiled into the binary
func NewEmbeddedSource() *FileSource {
	return &FileSource{path: "embedded:listings.json", format: "json", data: defaultListings}
}

// LoadListings decodes the whole file
func (s *FileSource) LoadListings(ctx context.Context) ([]model.Listing, error) {
	data := s.data
	if data == nil {
		var err error
		data, err = os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read dataset file: %w", err)
		}
	}

	var listings []model.Listing
	var err error
	if s.format == "yaml" {
		err = yaml.Unmarshal(data, &listings)
	} else {
		err = json.Unmarshal(data, &listings)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s dataset %s: %w", s.format, s.path, err)
	}
	return listings, nil
}

// Close is a no-op for file sources
func (s *FileSource) Close() error {
	return nil
}

// String names the source in logs
func (s *FileSource) String() string {
	return s.path
}
