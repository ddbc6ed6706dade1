// auth.go — middleware аутентификации Registration Gateway.
// Основная схема — HTTP Basic: имя и sha256-хэш пароля проверяются
// в Identity/Policy Store (таблица auth, read-only). Дополнительно,
// при заданном RG_JWKS_URL, принимаются Bearer JWT (RS256, валидация
// подписи через JWKS с фоновым обновлением ключей); claim
// preferred_username отображается на ту же таблицу auth.
//
// Отказ аутентификации прерывает весь запрос до обработки payload —
// это свойство вызывающего, а не Items.
package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/arturkryukov/stacreg/internal/api/errors"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// ContextKeyUserID — id аутентифицированного пользователя в контексте запроса.
const ContextKeyUserID contextKey = "user_id"

// CredentialStore — проверка учётных данных в Identity/Policy Store.
// Реализуется repository.AuthRepository; в тестах подменяется фейком.
type CredentialStore interface {
	// AuthenticateBasic возвращает id пользователя по имени и sha256-хэшу
	// пароля. ok=false — пара не найдена.
	AuthenticateBasic(ctx context.Context, username, passwordSHA256 string) (userID int64, ok bool, err error)
	// LookupUsername возвращает id пользователя по имени (Bearer-схема).
	LookupUsername(ctx context.Context, username string) (userID int64, ok bool, err error)
}

// Auth — middleware аутентификации.
type Auth struct {
	store     CredentialStore
	jwks      keyfunc.Keyfunc
	jwtIssuer string
	jwtLeeway time.Duration
	logger    *slog.Logger
}

// NewAuth создаёт middleware аутентификации с поддержкой HTTP Basic.
func NewAuth(store CredentialStore, logger *slog.Logger) *Auth {
	return &Auth{
		store:  store,
		logger: logger.With(slog.String("component", "auth")),
	}
}

// EnableBearer включает Bearer-аутентификацию через JWKS endpoint.
// jwksURL — URL JWKS endpoint; caCertPath — опциональный CA-сертификат;
// issuer — ожидаемый issuer JWT (пусто — не проверяется);
// refreshInterval — интервал фонового обновления ключей;
// leeway — допустимое отклонение времени при проверке JWT.
func (a *Auth) EnableBearer(jwksURL, caCertPath, issuer string, refreshInterval, leeway time.Duration) error {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	if caCertPath != "" {
		var err error
		httpClient, err = httpClientWithCA(caCertPath, 10*time.Second)
		if err != nil {
			return fmt.Errorf("загрузка CA-сертификата %s: %w", caCertPath, err)
		}
		a.logger.Info("CA-сертификат для JWKS добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	// JWKS Storage с фоновым обновлением.
	// NoErrorReturnFirstHTTPReq — стартуем даже если IdP ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           refreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			a.logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return fmt.Errorf("создание keyfunc: %w", err)
	}

	a.jwks = k
	a.jwtIssuer = issuer
	a.jwtLeeway = leeway
	return nil
}

// httpClientWithCA создаёт HTTP-клиент с кастомным CA-сертификатом.
func httpClientWithCA(caCertPath string, timeout time.Duration) (*http.Client, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs: caCertPool,
			},
		},
	}, nil
}

// tokenClaims — claims Bearer-токена, используемые gateway.
type tokenClaims struct {
	jwt.RegisteredClaims
	// PreferredUsername — имя пользователя, отображаемое на таблицу auth.
	PreferredUsername string `json:"preferred_username"`
}

// Middleware возвращает HTTP middleware аутентификации.
// Определяет id пользователя и помещает его в контекст запроса.
func (a *Auth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Not authenticated")
				return
			}

			var (
				userID int64
				ok     bool
			)
			switch {
			case strings.HasPrefix(strings.ToLower(authHeader), "basic "):
				userID, ok = a.authenticateBasic(w, r)
			case strings.HasPrefix(strings.ToLower(authHeader), "bearer "):
				userID, ok = a.authenticateBearer(w, r, authHeader)
			default:
				apierrors.Unauthorized(w, "Unsupported authorization scheme")
				return
			}
			if !ok {
				// Ответ уже записан
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticateBasic проверяет пару логин/пароль в Identity/Policy Store.
// Пароль хранится и сравнивается как sha256 в hex.
func (a *Auth) authenticateBasic(w http.ResponseWriter, r *http.Request) (int64, bool) {
	username, password, ok := r.BasicAuth()
	if !ok {
		apierrors.Unauthorized(w, "Incorrect username or password")
		return 0, false
	}

	sum := sha256.Sum256([]byte(password))
	userID, found, err := a.store.AuthenticateBasic(r.Context(), username, hex.EncodeToString(sum[:]))
	if err != nil {
		a.logger.Error("Ошибка проверки учётных данных",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		apierrors.Unauthorized(w, "Incorrect username or password")
		return 0, false
	}
	if !found {
		apierrors.Unauthorized(w, "Incorrect username or password")
		return 0, false
	}

	return userID, true
}

// authenticateBearer валидирует JWT через JWKS и отображает
// preferred_username (или sub) на таблицу auth.
func (a *Auth) authenticateBearer(w http.ResponseWriter, r *http.Request, authHeader string) (int64, bool) {
	if a.jwks == nil {
		apierrors.Unauthorized(w, "Bearer authentication is not enabled")
		return 0, false
	}

	tokenString := strings.TrimSpace(authHeader[len("Bearer "):])
	if tokenString == "" {
		apierrors.Unauthorized(w, "Not authenticated")
		return 0, false
	}

	rawClaims := &tokenClaims{}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.jwtLeeway),
	}
	if a.jwtIssuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(a.jwtIssuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, rawClaims, a.jwks.KeyfuncCtx(r.Context()), parserOpts...)
	if err != nil || !token.Valid {
		a.logger.Debug("JWT валидация не пройдена",
			slog.String("remote_addr", r.RemoteAddr),
		)
		apierrors.Unauthorized(w, "Invalid or expired token")
		return 0, false
	}

	username := rawClaims.PreferredUsername
	if username == "" {
		username = rawClaims.Subject
	}
	if username == "" {
		apierrors.Unauthorized(w, "Token carries no subject")
		return 0, false
	}

	userID, found, err := a.store.LookupUsername(r.Context(), username)
	if err != nil {
		a.logger.Error("Ошибка поиска пользователя по токену",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		apierrors.Unauthorized(w, "Incorrect username or password")
		return 0, false
	}
	if !found {
		apierrors.Unauthorized(w, "User is not registered as a data provider")
		return 0, false
	}

	return userID, true
}

// UserIDFromContext возвращает id пользователя из контекста запроса.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ContextKeyUserID).(int64)
	return id, ok
}
