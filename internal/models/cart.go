package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine is one product inside a cart. Name, price and image are copied
// from the product at the time it is added, so a later catalog edit never
// changes what the customer already put in the cart.
type CartLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageURL  string          `json:"image_url,omitempty"`
}

// Cart keeps its lines in insertion order. A product id appears at most once;
// adding it again merges into the existing line.
type Cart struct {
	UserID uuid.UUID  `json:"user_id"`
	Lines  []CartLine `json:"lines"`
}

func NewCart(userID uuid.UUID) *Cart {
	return &Cart{UserID: userID, Lines: []CartLine{}}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// LineIndex returns the position of the line holding productID, or -1.
func (c *Cart) LineIndex(productID int64) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}

	return -1
}

type AddItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity"   validate:"omitempty,min=1"`
}

type UpdateQuantityRequest struct {
	ProductID int64 `json:"product_id" validate:"required"`
	Quantity  int   `json:"quantity"`
}
