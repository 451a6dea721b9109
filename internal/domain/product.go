package domain

import (
	"time"

	"github.com/maplecart/storefront/internal/utils"
)

type Product struct {
	ID             int64          `json:"id"`
	Title          string         `json:"title"`
	Slug           string         `json:"slug"`
	Description    string         `json:"description"`
	Price          float64        `json:"price"`
	CompareAtPrice *float64       `json:"compareAtPrice,omitempty"`
	Images         []string       `json:"images"`
	Category       string         `json:"category"`
	Subcategory    string         `json:"subcategory,omitempty"`
	Stock          int            `json:"stock"`
	SKU            *string        `json:"sku,omitempty"`
	Attributes     map[string]any `json:"attributes"`
	Tags           []string       `json:"tags"`
	Featured       bool           `json:"featured"`
	Active         bool           `json:"active"`
	AverageRating  float64        `json:"averageRating"`
	ReviewCount    int            `json:"reviewCount"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// MainImage is the image snapshotted onto order line items.
func (p *Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

type CreateProductRequest struct {
	Title          string         `json:"title" validate:"required"`
	Slug           string         `json:"slug" validate:"required"`
	Description    string         `json:"description" validate:"required"`
	Price          float64        `json:"price" validate:"gte=0"`
	CompareAtPrice *float64       `json:"compareAtPrice,omitempty" validate:"omitempty,gte=0"`
	Images         []string       `json:"images"`
	Category       string         `json:"category" validate:"required"`
	Subcategory    string         `json:"subcategory"`
	Stock          int            `json:"stock" validate:"gte=0"`
	SKU            *string        `json:"sku,omitempty"`
	Attributes     map[string]any `json:"attributes"`
	Tags           []string       `json:"tags"`
	Featured       bool           `json:"featured"`
}

func (r *CreateProductRequest) Normalize() {
	r.Title = utils.NormalizeString(r.Title)
	r.Slug = utils.NormalizeSlug(r.Slug)
	r.Description = utils.NormalizeString(r.Description)
	r.Category = utils.NormalizeString(r.Category)
}

// ProductPatch is the allow-listed update surface for PUT /products/{id}.
// Active and the computed rating fields are deliberately absent: deactivation
// goes through DELETE and ratings are derived from reviews.
type ProductPatch struct {
	Title          *string         `json:"title,omitempty"`
	Slug           *string         `json:"slug,omitempty"`
	Description    *string         `json:"description,omitempty"`
	Price          *float64        `json:"price,omitempty" validate:"omitempty,gte=0"`
	CompareAtPrice *float64        `json:"compareAtPrice,omitempty" validate:"omitempty,gte=0"`
	Images         []string        `json:"images,omitempty"`
	Category       *string         `json:"category,omitempty"`
	Subcategory    *string         `json:"subcategory,omitempty"`
	Stock          *int            `json:"stock,omitempty" validate:"omitempty,gte=0"`
	SKU            *string         `json:"sku,omitempty"`
	Attributes     map[string]any  `json:"attributes,omitempty"`
	Tags           []string        `json:"tags,omitempty"`
	Featured       *bool           `json:"featured,omitempty"`
}

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price-asc"
	SortPriceDesc ProductSort = "price-desc"
	SortPopular   ProductSort = "popular"
	SortName      ProductSort = "name"
)

func ParseProductSort(s string) (ProductSort, bool) {
	switch ProductSort(s) {
	case SortNewest, SortPriceAsc, SortPriceDesc, SortPopular, SortName:
		return ProductSort(s), true
	case "":
		return SortNewest, true
	default:
		return "", false
	}
}

type ProductFilter struct {
	Category     string
	Search       string
	MinPrice     *float64
	MaxPrice     *float64
	FeaturedOnly bool
	// IncludeInactive widens admin listings; public queries leave it false.
	IncludeInactive bool
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

type ProductPage struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}
