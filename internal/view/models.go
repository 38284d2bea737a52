package view

import (
	"finitefield.org/storefront/internal/cart"
	"finitefield.org/storefront/internal/format"
)

// EmptyDrawerMessage is shown in the drawer when the cart has no items.
const EmptyDrawerMessage = "Your cart is empty."

// DrawerView aggregates the data of the slide-out cart drawer.
type DrawerView struct {
	Lines        []DrawerLine
	Count        int
	Total        string
	TotalAmount  float64
	Empty        bool
	EmptyMessage string
	CSRFToken    string
	OOB          bool
}

// DrawerLine is one row of the drawer with its quantity stepper.
type DrawerLine struct {
	ID        string
	Name      string
	Image     string
	UnitPrice string
	Quantity  int
	Decrement int
	Increment int
}

// CartPageView aggregates the data of the full cart page table.
type CartPageView struct {
	Rows        []CartRow
	Count       int
	Subtotal    string
	Total       string
	TotalAmount float64
	Empty       bool
	CSRFToken   string
	OOB         bool
}

// CartRow represents a line item in the cart table.
type CartRow struct {
	ID        string
	Name      string
	Image     string
	UnitPrice string
	Quantity  int
	MinQty    int
	LineTotal string
}

// PaymentView is the read-only order summary shown next to the payment form.
type PaymentView struct {
	Lines       []PaymentLine
	Total       string
	TotalAmount float64
	Currency    string
	CanSubmit   bool
	OOB         bool
}

type PaymentLine struct {
	ID        string
	Label     string
	LineTotal string
}

// BuildDrawer projects snap into the drawer.
func BuildDrawer(snap cart.Snapshot, currency string) DrawerView {
	v := DrawerView{
		Count:        snap.Count(),
		Total:        format.Money(snap.Total, currency),
		TotalAmount:  snap.Total,
		Empty:        snap.Empty(),
		EmptyMessage: EmptyDrawerMessage,
		Lines:        make([]DrawerLine, 0, len(snap.Items)),
	}
	for _, it := range snap.Items {
		v.Lines = append(v.Lines, DrawerLine{
			ID:        it.ID,
			Name:      it.Name,
			Image:     it.Image,
			UnitPrice: format.Money(it.Price, currency),
			Quantity:  it.Quantity,
			Decrement: -1,
			Increment: 1,
		})
	}
	return v
}

// BuildCartPage projects snap into the cart table. Prices are not adjusted, so
// subtotal and total carry the same amount.
func BuildCartPage(snap cart.Snapshot, currency string) CartPageView {
	total := format.Money(snap.Total, currency)
	v := CartPageView{
		Count:       snap.Count(),
		Subtotal:    total,
		Total:       total,
		TotalAmount: snap.Total,
		Empty:       snap.Empty(),
		Rows:        make([]CartRow, 0, len(snap.Items)),
	}
	for _, it := range snap.Items {
		v.Rows = append(v.Rows, CartRow{
			ID:        it.ID,
			Name:      it.Name,
			Image:     it.Image,
			UnitPrice: format.Money(it.Price, currency),
			Quantity:  it.Quantity,
			MinQty:    1,
			LineTotal: format.Money(it.LineTotal(), currency),
		})
	}
	return v
}

// BuildPayment projects snap into the payment summary.
func BuildPayment(snap cart.Snapshot, currency string) PaymentView {
	v := PaymentView{
		Total:       format.Money(snap.Total, currency),
		TotalAmount: snap.Total,
		Currency:    currency,
		CanSubmit:   !snap.Empty(),
		Lines:       make([]PaymentLine, 0, len(snap.Items)),
	}
	for _, it := range snap.Items {
		v.Lines = append(v.Lines, PaymentLine{
			ID:        it.ID,
			Label:     format.Quantity(it.Name, it.Quantity),
			LineTotal: format.Money(it.LineTotal(), currency),
		})
	}
	return v
}
