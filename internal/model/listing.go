package model

// Listing represents a property listing in the static dataset
type Listing struct {
	ID      int64  `json:"id" yaml:"id" db:"id"`
	Image   string `json:"image" yaml:"image" db:"image"` // file name under the images directory
	Address string `json:"address" yaml:"address" db:"address"`
	Price   string `json:"price" yaml:"price" db:"price"`
	Rooms   string `json:"rooms" yaml:"rooms" db:"rooms"`
}
