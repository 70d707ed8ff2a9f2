package auth

// User - учетная запись, от имени которой выдан токен.
// Учетные записи ведет внешний сервис, симуляция видит только поля токена.
type User struct {
	ID       uint64 // Неизменяемый идентификатор, ключ сохраненной позиции
	Username string
	IsAdmin  bool
}
