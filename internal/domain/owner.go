package domain

// OwnerType различает субъектов, от имени которых выполняются операции ядра.
type OwnerType string

const (
	// OwnerTypeUser — аутентифицированный пользователь.
	OwnerTypeUser OwnerType = "user"
	// OwnerTypeGuest — гостевая сессия без аккаунта.
	OwnerTypeGuest OwnerType = "guest_session"
	// OwnerTypeAdmin — администратор платформы.
	OwnerTypeAdmin OwnerType = "admin"
	// OwnerTypeAPIToken — машинный доступ по API-токену.
	OwnerTypeAPIToken OwnerType = "api_token"
	// OwnerTypeSystem — внутренние автоматические процессы (автоподтверждение, воркеры).
	OwnerTypeSystem OwnerType = "system"
)

// Owner — размеченное объединение "владелец": ровно один идентификатор
// строго одного типа. Заменяет пару nullable-полей user/sessionId.
type Owner struct {
	Type OwnerType
	ID   string
}

// UserOwner создаёт владельца-пользователя.
func UserOwner(userID string) Owner {
	return Owner{Type: OwnerTypeUser, ID: userID}
}

// GuestOwner создаёт владельца-гостя по идентификатору сессии.
func GuestOwner(sessionID string) Owner {
	return Owner{Type: OwnerTypeGuest, ID: sessionID}
}

// SystemOwner — актор для автоматических операций.
func SystemOwner() Owner {
	return Owner{Type: OwnerTypeSystem, ID: "system"}
}

// Validate проверяет, что владелец заполнен корректно.
func (o Owner) Validate() error {
	if o.ID == "" {
		return ErrOwnerRequired
	}
	switch o.Type {
	case OwnerTypeUser, OwnerTypeGuest, OwnerTypeAdmin, OwnerTypeAPIToken, OwnerTypeSystem:
		return nil
	default:
		return ErrOwnerAmbiguous
	}
}

// IsRegistered сообщает, принадлежит ли операция аутентифицированному пользователю.
// Используется условиями правил автоподтверждения (registered-vs-guest).
func (o Owner) IsRegistered() bool {
	return o.Type == OwnerTypeUser
}

// Equals сравнивает владельцев по типу и идентификатору.
func (o Owner) Equals(other Owner) bool {
	return o.Type == other.Type && o.ID == other.ID
}
