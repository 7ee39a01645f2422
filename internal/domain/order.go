package domain

import "time"

// OrderStatus описывает жизненный цикл заказа после создания.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, ожидает подтверждения оплаты.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusConfirmed — оплата подтверждена, заказ принят в работу.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusProcessing — заказ комплектуется.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusShipping — заказ передан в доставку.
	OrderStatusShipping OrderStatus = "shipping"
	// OrderStatusDelivered — заказ доставлен покупателю.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён до исполнения.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusRefunded — средства возвращены покупателю.
	OrderStatusRefunded OrderStatus = "refunded"
	// OrderStatusReturned — товар возвращён после доставки.
	OrderStatusReturned OrderStatus = "returned"
)

// OrderPaymentStatus — агрегированный статус оплаты заказа.
type OrderPaymentStatus string

const (
	OrderPaymentPending   OrderPaymentStatus = "pending"
	OrderPaymentConfirmed OrderPaymentStatus = "confirmed"
	OrderPaymentPaid      OrderPaymentStatus = "paid"
	OrderPaymentFailed    OrderPaymentStatus = "failed"
	OrderPaymentRefunded  OrderPaymentStatus = "refunded"
	OrderPaymentCancelled OrderPaymentStatus = "cancelled"
)

// OrderItem представляет одну позицию заказа. После создания не мутируется.
type OrderItem struct {
	ID            string
	OrderID       string
	ProductID     string
	VariantID     string
	Qty           int32
	PriceMinor    int64
	SubtotalMinor int64 // PriceMinor * Qty, фиксируется при создании.
	CreatedAt     time.Time
}

// Order — заказ с неизменяемым денежным снапшотом и снапшотами адресов.
type Order struct {
	ID              string
	Number          string
	Owner           Owner
	CheckoutID      string
	Status          OrderStatus
	PaymentStatus   OrderPaymentStatus
	SubtotalMinor   int64
	TaxMinor        int64
	ShippingMinor   int64
	DiscountMinor   int64
	TotalMinor      int64
	Currency        string
	ShippingAddress Address
	BillingAddress  Address
	ShippingMethod  string
	Items           []OrderItem
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if err := o.Owner.Validate(); err != nil {
		errs = append(errs, err)
	}
	if o.Number == "" {
		errs = append(errs, ErrValidation)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	for _, amount := range []int64{o.SubtotalMinor, o.TaxMinor, o.ShippingMinor, o.DiscountMinor, o.TotalMinor} {
		if amount < 0 {
			errs = append(errs, ErrAmountNegative)
			break
		}
	}

	// Сверяем subtotal с суммой позиций и total с формулой subtotal+tax+shipping-discount.
	var calc int64
	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += int64(item.Qty) * item.PriceMinor
	}
	if calc != o.SubtotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}
	if o.SubtotalMinor+o.TaxMinor+o.ShippingMinor-o.DiscountMinor != o.TotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
