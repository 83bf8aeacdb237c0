package models

// TraderState — торговое состояние пользователя: кредиты и включённый бот.
// UserID совпадает с telegram chat ID, как и в остальной системе.
type TraderState struct {
	UserID             int64
	Credits            int
	BotEnabled         bool
	SelectedTimeframes []string
}

// APIKeys — биржевые ключи пользователя.
type APIKeys struct {
	UserID    int64
	APIKey    string
	SecretKey string
}
