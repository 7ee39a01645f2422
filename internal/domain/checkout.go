package domain

import "time"

// CheckoutStatus описывает жизненный цикл checkout-сессии.
// Переходы монотонны: active → locked → completed — единственный прямой путь,
// active → abandoned/expired — терминальные боковые выходы.
type CheckoutStatus string

const (
	// CheckoutStatusActive — сессия открыта, позиции и адреса ещё редактируются.
	CheckoutStatusActive CheckoutStatus = "active"
	// CheckoutStatusLocked — сессия захвачена сборкой заказа; повторное завершение запрещено.
	CheckoutStatusLocked CheckoutStatus = "locked"
	// CheckoutStatusCompleted — из сессии создан заказ.
	CheckoutStatusCompleted CheckoutStatus = "completed"
	// CheckoutStatusAbandoned — покупатель бросил сессию.
	CheckoutStatusAbandoned CheckoutStatus = "abandoned"
	// CheckoutStatusExpired — истёк срок жизни сессии.
	CheckoutStatusExpired CheckoutStatus = "expired"
)

// checkoutTransitions перечисляет допустимые переходы статусов.
var checkoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusActive: {CheckoutStatusLocked, CheckoutStatusAbandoned, CheckoutStatusExpired},
	CheckoutStatusLocked: {CheckoutStatusCompleted, CheckoutStatusActive},
}

// CanTransition проверяет, допустим ли переход между статусами.
// Обратный переход locked → active разрешён только для админской разблокировки
// застрявшей сессии.
func (s CheckoutStatus) CanTransition(to CheckoutStatus) bool {
	for _, allowed := range checkoutTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, завершён ли жизненный цикл сессии.
func (s CheckoutStatus) IsTerminal() bool {
	switch s {
	case CheckoutStatusCompleted, CheckoutStatusAbandoned, CheckoutStatusExpired:
		return true
	default:
		return false
	}
}

// Address — снапшот адреса доставки/оплаты. Копируется в заказ,
// а не хранится ссылкой, чтобы заказ не менялся при правке профиля.
type Address struct {
	ID         string
	Recipient  string
	Line1      string
	Line2      string
	City       string
	Region     string
	PostalCode string
	Country    string
}

// CheckoutSession — незавершённое состояние перехода корзины в заказ.
type CheckoutSession struct {
	ID              string
	Owner           Owner
	CartID          string
	CartItemIDs     []string
	ShippingAddress Address
	BillingAddress  Address
	ShippingMethod  string
	PaymentMethod   string
	Status          CheckoutStatus
	Version         int64
	ExpiresAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidateForCompletion проверяет предусловия сборки заказа (§ Assembler):
// активная или уже захваченная сессия, непустой список позиций, адреса и способ доставки.
func (c *CheckoutSession) ValidateForCompletion() []error {
	var errs []error

	if err := c.Owner.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Status != CheckoutStatusActive && c.Status != CheckoutStatusLocked {
		errs = append(errs, ErrInvalidState)
	}
	if len(c.CartItemIDs) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if c.ShippingAddress.ID == "" || c.BillingAddress.ID == "" {
		errs = append(errs, ErrAddressRequired)
	}
	if c.ShippingMethod == "" {
		errs = append(errs, ErrValidation)
	}

	return errs
}
