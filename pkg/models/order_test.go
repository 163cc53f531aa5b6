package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderPending, OrderConfirmed, true},
		{OrderPending, OrderDelivered, true},
		{OrderConfirmed, OrderShipped, true},
		{OrderShipped, OrderDelivered, true},
		{OrderShipped, OrderReturned, true},
		{OrderDelivered, OrderReturned, false},
		{OrderShipped, OrderPending, false},
		{OrderDelivered, OrderShipped, false},
		{OrderPending, OrderCancelled, false},
		{OrderReturned, OrderDelivered, false},
		{OrderCancelled, OrderConfirmed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, OrderReturned.Terminal())
	assert.True(t, OrderCancelled.Terminal())
	assert.True(t, OrderDelivered.Terminal())
	assert.False(t, OrderShipped.Terminal())
	assert.False(t, OrderStatus("Processing").Valid())
}

func TestOrder_Apply(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	o := &Order{Status: OrderPending, PaymentStatus: PaymentPending, DeliveryStatus: DeliveryPending}

	o.Apply(PatchFor(OrderShipped, now))
	assert.Equal(t, OrderShipped, o.Status)
	assert.Equal(t, DeliveryShipped, o.DeliveryStatus)
	assert.Equal(t, PaymentPending, o.PaymentStatus)

	p := PatchFor(OrderDelivered, now.Add(time.Hour))
	p.PaymentStatus = PaymentPaid
	p.PaymentConfirmed = true
	o.Apply(p)
	assert.Equal(t, DeliveryDelivered, o.DeliveryStatus)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.True(t, o.PaymentConfirmed)
	assert.Equal(t, now.Add(time.Hour), o.UpdatedAt)
}

func TestMoney(t *testing.T) {
	total := LineTotal(19.99, 3).Add(LineTotal(0.1, 2))
	assert.Equal(t, 60.17, Amount(total))
	assert.Equal(t, 54.15, Amount(ApplyDiscount(total, 10)))
	assert.Equal(t, 0.0, Amount(ApplyDiscount(total, 100)))

	assert.Equal(t, 0.0, Percentage(3, 0))
	assert.Equal(t, 33.33, Percentage(1, 3))
	assert.Equal(t, 50.0, Percentage(2, 4))
}
