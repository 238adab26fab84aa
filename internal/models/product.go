package models

// Product is a catalog entry. Year, Genre and Stock are optional columns.
type Product struct {
	ID     int64   `json:"id" yaml:"-"`
	Title  string  `json:"title" yaml:"title"`
	Artist string  `json:"artist" yaml:"artist"`
	Price  float64 `json:"price" yaml:"price"`
	Image  string  `json:"image" yaml:"image"`
	Year   *int    `json:"year,omitempty" yaml:"year,omitempty"`
	Genre  *string `json:"genre,omitempty" yaml:"genre,omitempty"`
	Stock  *int    `json:"stock,omitempty" yaml:"stock,omitempty"`
}
