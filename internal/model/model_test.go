package model

import (
    "testing"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
)

func TestEventSellable(t *testing.T) {
    price := decimal.NewNullDecimal(decimal.RequireFromString("25.00"))
    cases := []struct {
        name string
        ev   Event
        want bool
    }{
        {"priced with tickets", Event{HasTickets: true, Price: price}, true},
        {"no tickets", Event{HasTickets: false, Price: price}, false},
        {"null price", Event{HasTickets: true}, false},
        {"zero price", Event{HasTickets: true, Price: decimal.NewNullDecimal(decimal.Zero)}, false},
        {"negative price", Event{HasTickets: true, Price: decimal.NewNullDecimal(decimal.NewFromInt(-1))}, false},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            assert.Equal(t, tc.want, tc.ev.Sellable())
        })
    }
}

func TestPaymentStatusFor(t *testing.T) {
    assert.Equal(t, PaymentCompleted, PaymentStatusFor(TicketPaid))
    assert.Equal(t, PaymentFailed, PaymentStatusFor(TicketCancelled))
    assert.Equal(t, PaymentPending, PaymentStatusFor(TicketPending))
}

func TestTerminal(t *testing.T) {
    assert.False(t, TicketPending.Terminal())
    assert.True(t, TicketPaid.Terminal())
    assert.True(t, TicketCancelled.Terminal())
}

func TestCategoryValid(t *testing.T) {
    assert.True(t, CategoryTech.Valid())
    assert.False(t, Category("MOVIES").Valid())
}
