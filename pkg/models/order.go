package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderConfirmed OrderStatus = "Confirmed"
	OrderShipped   OrderStatus = "Shipped"
	OrderDelivered OrderStatus = "Delivered"
	OrderReturned  OrderStatus = "Returned"
	OrderCancelled OrderStatus = "Cancelled"
)

// orderTransitions lists the statuses a shop owner may move an order to.
// Cancelled is reachable only through the buyer's cancel operation, and
// Returned means the delivery failed, so it cannot follow Delivered.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderShipped, OrderDelivered, OrderReturned},
	OrderConfirmed: {OrderShipped, OrderDelivered, OrderReturned},
	OrderShipped:   {OrderDelivered, OrderReturned},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderReturned, OrderCancelled:
		return true
	}
	return false
}

// Terminal statuses never change again.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderReturned || s == OrderCancelled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"

	DeliveryPending   = "pending"
	DeliveryShipped   = "shipped"
	DeliveryDelivered = "delivered"
	DeliveryReturned  = "returned"
)

// OrderLine captures the unit price at checkout so later price edits never
// change historical totals.
type OrderLine struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Name      string             `bson:"name" json:"name"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Variant   *VariantRef        `bson:"variant,omitempty" json:"variant,omitempty"`
	Price     float64            `bson:"price" json:"price"`
}

type Order struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BuyerID          primitive.ObjectID `bson:"buyer_id" json:"buyer_id"`
	ShopID           primitive.ObjectID `bson:"shop_id" json:"shop_id"`
	Lines            []OrderLine        `bson:"products" json:"products"`
	Total            float64            `bson:"total" json:"total"`
	Status           OrderStatus        `bson:"status" json:"status"`
	PaymentStatus    string             `bson:"payment_status" json:"payment_status"`
	DeliveryStatus   string             `bson:"delivery_status" json:"delivery_status"`
	PaymentConfirmed bool               `bson:"payment_confirmed" json:"payment_confirmed"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

func (o *Order) Contains(productID primitive.ObjectID) bool {
	for _, l := range o.Lines {
		if l.ProductID == productID {
			return true
		}
	}
	return false
}

// StatusPatch is the set of fields written together with a status change.
type StatusPatch struct {
	Status           OrderStatus
	DeliveryStatus   string
	PaymentStatus    string
	PaymentConfirmed bool
	UpdatedAt        time.Time
}

// PatchFor derives the auxiliary delivery flag that accompanies a status.
func PatchFor(status OrderStatus, now time.Time) StatusPatch {
	p := StatusPatch{Status: status, UpdatedAt: now}
	switch status {
	case OrderShipped:
		p.DeliveryStatus = DeliveryShipped
	case OrderDelivered:
		p.DeliveryStatus = DeliveryDelivered
	case OrderReturned:
		p.DeliveryStatus = DeliveryReturned
	}
	return p
}

func (o *Order) Apply(p StatusPatch) {
	o.Status = p.Status
	if p.DeliveryStatus != "" {
		o.DeliveryStatus = p.DeliveryStatus
	}
	if p.PaymentStatus != "" {
		o.PaymentStatus = p.PaymentStatus
	}
	if p.PaymentConfirmed {
		o.PaymentConfirmed = true
	}
	o.UpdatedAt = p.UpdatedAt
}

// OrderWithRisk is the shop-facing view of an order.
type OrderWithRisk struct {
	*Order
	BuyerFailedDeliveryRate float64 `json:"buyer_failed_delivery_rate"`
}
