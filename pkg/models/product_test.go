package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestProduct_Validate(t *testing.T) {
	tests := []struct {
		name string
		p    Product
		err  error
	}{
		{"ok", Product{Name: "Kaftan", Price: 10, Stock: 1}, nil},
		{"free", Product{Name: "Sticker"}, nil},
		{"blank name", Product{Name: "  ", Price: 1}, ErrProductName},
		{"negative price", Product{Name: "x", Price: -1}, ErrNegativePrice},
		{"negative stock", Product{Name: "x", Stock: -2}, ErrNegativeStock},
		{"negative threshold", Product{Name: "x", LowStockThreshold: -1}, ErrNegativeLowMark},
		{"negative variant", Product{Name: "x", Variants: []Variant{{Size: "M", Stock: -1}}}, ErrVariantStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.err, tt.p.Validate())
		})
	}
}

func TestProduct_HasVariant(t *testing.T) {
	p := Product{Variants: []Variant{{Size: "M", Color: "Red", Stock: 2}}}

	assert.True(t, p.HasVariant(nil))
	assert.True(t, p.HasVariant(&VariantRef{}))
	assert.True(t, p.HasVariant(&VariantRef{Size: "m", Color: "red"}))
	assert.False(t, p.HasVariant(&VariantRef{Size: "L", Color: "Red"}))
}

func TestProduct_RecomputeRating(t *testing.T) {
	p := Product{}
	p.RecomputeRating()
	assert.Equal(t, 0.0, p.AvgRating)
	assert.Equal(t, 0, p.RatingCount)

	user, order := primitive.NewObjectID(), primitive.NewObjectID()
	p.Ratings = []Rating{{UserID: user, OrderID: order, Rating: 5}, {Rating: 2}}
	p.RecomputeRating()
	assert.Equal(t, 3.5, p.AvgRating)
	assert.Equal(t, 2, p.RatingCount)
	assert.True(t, p.HasRating(user, order))
	assert.False(t, p.HasRating(user, primitive.NewObjectID()))
}

func TestProduct_LowStock(t *testing.T) {
	p := Product{Stock: 4}
	assert.True(t, p.LowStock(5))
	assert.False(t, p.LowStock(4))

	p.LowStockThreshold = 2
	assert.False(t, p.LowStock(5))
}

func TestProductQuery_Normalize(t *testing.T) {
	q := ProductQuery{Page: 0, Limit: 1000, SortField: "password"}
	q.Normalize()
	assert.Equal(t, int64(1), q.Page)
	assert.Equal(t, int64(MaxPageSize), q.Limit)
	assert.Equal(t, "created_at", q.SortField)
	assert.True(t, q.SortDesc)

	q = ProductQuery{Page: 3, Limit: 5, SortField: "price"}
	q.Normalize()
	assert.Equal(t, int64(10), q.Skip())
	assert.False(t, q.SortDesc)

	q = ProductQuery{Page: 1e18, Limit: 10}
	q.Normalize()
	assert.Equal(t, int64(MaxPage), q.Page)
	assert.Positive(t, q.Skip())

	page := NewProductPage(nil, 11, ProductQuery{Page: 3, Limit: 5})
	assert.Equal(t, int64(3), page.Pages)
	assert.NotNil(t, page.Products)
}
