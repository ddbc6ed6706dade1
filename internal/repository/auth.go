// auth.go — запросы к таблице auth: проверка учётных данных провайдера.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// AuthRepository — read-only доступ к учётным записям провайдеров данных.
// Реализует middleware.CredentialStore.
type AuthRepository struct {
	db DBTX
}

// NewAuthRepository создаёт репозиторий учётных записей.
func NewAuthRepository(db DBTX) *AuthRepository {
	return &AuthRepository{db: db}
}

// AuthenticateBasic возвращает id пользователя по имени и sha256-хэшу пароля.
// ok=false — пара логин/хэш не найдена.
func (r *AuthRepository) AuthenticateBasic(ctx context.Context, username, passwordSHA256 string) (int64, bool, error) {
	const query = `SELECT id FROM auth WHERE username = $1 AND password_sha256 = $2`

	var id int64
	err := r.db.QueryRow(ctx, query, username, passwordSHA256).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("ошибка проверки учётных данных: %w", err)
	}
	return id, true, nil
}

// LookupUsername возвращает id пользователя по имени (Bearer-аутентификация).
// ok=false — пользователь не зарегистрирован.
func (r *AuthRepository) LookupUsername(ctx context.Context, username string) (int64, bool, error) {
	const query = `SELECT id FROM auth WHERE username = $1`

	var id int64
	err := r.db.QueryRow(ctx, query, username).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("ошибка поиска пользователя: %w", err)
	}
	return id, true, nil
}
