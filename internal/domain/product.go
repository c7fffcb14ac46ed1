package domain

import "time"

// Product represents a product in the catalog. Prices are in cents.
type Product struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	Description  string         `json:"description,omitempty"`
	Price        int64          `json:"price"`
	SecondPrice  int64          `json:"secondPrice"`
	Stock        int            `json:"stock"`
	FreeShipping bool           `json:"freeShipping"`
	CategoryID   string         `json:"categoryId,omitempty"`
	UnityID      string         `json:"unityId,omitempty"`
	UserID       string         `json:"userId,omitempty"`
	DisplayOrder int            `json:"displayOrder"`
	Images       []ProductImage `json:"images"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// ProductImage represents an image attached to a product. Images are ordered;
// the image with DisplayOrder 1 is the primary one.
type ProductImage struct {
	ID           string `json:"id"`
	ProductID    string `json:"productId"`
	S3Key        string `json:"s3Key"`
	DisplayOrder int    `json:"displayOrder"`
}

// EffectivePrice returns the price actually charged per unit: the promotional
// second price when set, the regular price otherwise.
func (p *Product) EffectivePrice() int64 {
	if p.SecondPrice != 0 {
		return p.SecondPrice
	}
	return p.Price
}

// PrimaryImage returns the image with display order 1, or the first image when
// none is marked primary. Returns false when the product has no images.
func (p *Product) PrimaryImage() (ProductImage, bool) {
	if len(p.Images) == 0 {
		return ProductImage{}, false
	}
	for _, img := range p.Images {
		if img.DisplayOrder == 1 {
			return img, true
		}
	}
	return p.Images[0], true
}

// ProductOrder is one entry of a reorder request: a product and its new
// 1-based display order.
type ProductOrder struct {
	ID           string `json:"id"`
	DisplayOrder int    `json:"displayOrder"`
}
