package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/stackgenie/stackgenie-backend/internal/data/repos"
	types "github.com/stackgenie/stackgenie-backend/internal/domain"
	"github.com/stackgenie/stackgenie-backend/internal/platform/apierr"
	"github.com/stackgenie/stackgenie-backend/internal/platform/ctxutil"
	"github.com/stackgenie/stackgenie-backend/internal/platform/dbctx"
	"github.com/stackgenie/stackgenie-backend/internal/platform/logger"
)

const (
	minPasswordLength = 6
	resetTokenTTL     = 30 * time.Minute
)

type JWTClaims struct {
	jwt.RegisteredClaims
}

type AuthService interface {
	RegisterUser(ctx context.Context, name, email, password string) (*types.User, error)
	LoginUser(ctx context.Context, email, password string) (string, string, error)
	RefreshUser(ctx context.Context, refreshToken string) (string, string, error)
	LogoutUser(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetMe(ctx context.Context) (*types.User, error)
	UpdateName(ctx context.Context, name string) (*types.User, error)
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error
	// ForgotPassword returns the raw reset token. Only its hash is stored.
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

var errUnauthorized = apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("unauthorized"))

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (as *authService) RegisterUser(ctx context.Context, name, email, password string) (*types.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return nil, apierr.BadRequest("invalid_name", fmt.Errorf("name is required"))
	}
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, apierr.BadRequest("invalid_email", fmt.Errorf("a valid email is required"))
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &types.User{ID: uuid.New(), Name: name, Email: email, Password: string(hashed)}
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		exists, err := as.userRepo.EmailExists(inner, email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if exists {
			return apierr.Conflict("email_taken", fmt.Errorf("email already registered"))
		}
		if _, err := as.userRepo.Create(inner, []*types.User{user}); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	as.log.Info("User registered", "user_id", user.ID)
	return user, nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", "", apierr.BadRequest("invalid_request", fmt.Errorf("email and password are required"))
	}
	invalid := apierr.New(http.StatusUnauthorized, "invalid_credentials", fmt.Errorf("invalid email or password"))

	users, err := as.userRepo.GetByEmails(dbctx.Context{Ctx: ctx}, []string{email})
	if err != nil {
		return "", "", fmt.Errorf("fetch user by email: %w", err)
	}
	if len(users) == 0 {
		return "", "", invalid
	}
	user := users[0]
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", "", invalid
	}

	var accessToken, refreshToken string
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := as.pruneExpired(inner, user.ID); err != nil {
			return err
		}
		at, rt, err := as.issueTokens(inner, user)
		if err != nil {
			return err
		}
		accessToken, refreshToken = at, rt
		return nil
	})
	if err != nil {
		as.log.Warn("Login transaction failed", "user_id", user.ID, "error", err)
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (as *authService) pruneExpired(dbc dbctx.Context, userID uuid.UUID) error {
	tokens, err := as.userTokenRepo.GetByUserIDs(dbc, []uuid.UUID{userID})
	if err != nil {
		return fmt.Errorf("fetch user tokens: %w", err)
	}
	var expired []uuid.UUID
	now := time.Now()
	for _, t := range tokens {
		if t != nil && t.ExpiresAt.Before(now) {
			expired = append(expired, t.ID)
		}
	}
	if err := as.userTokenRepo.FullDeleteByIDs(dbc, expired); err != nil {
		return fmt.Errorf("delete expired tokens: %w", err)
	}
	return nil
}

func (as *authService) issueTokens(dbc dbctx.Context, user *types.User) (string, string, error) {
	accessToken, err := as.generateAccessToken(user)
	if err != nil {
		return "", "", fmt.Errorf("generate access token: %w", err)
	}
	refreshToken := uuid.New().String()
	ut := &types.UserToken{
		ID:           uuid.New(),
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(as.refreshTTL),
	}
	if _, err := as.userTokenRepo.Create(dbc, []*types.UserToken{ut}); err != nil {
		return "", "", fmt.Errorf("create user token: %w", err)
	}
	return accessToken, refreshToken, nil
}

func (as *authService) RefreshUser(ctx context.Context, refreshToken string) (string, string, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		if rd := ctxutil.GetRequestData(ctx); rd != nil {
			refreshToken = rd.RefreshToken
		}
	}
	if refreshToken == "" {
		return "", "", apierr.BadRequest("missing_refresh_token", fmt.Errorf("refresh token is required"))
	}
	rejected := apierr.New(http.StatusUnauthorized, "refresh_failed", fmt.Errorf("refresh token invalid or expired"))

	var accessToken, newRefresh string
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		found, err := as.userTokenRepo.GetByRefreshTokens(inner, []string{refreshToken})
		if err != nil {
			return fmt.Errorf("fetch refresh token: %w", err)
		}
		if len(found) == 0 || found[0] == nil {
			return rejected
		}
		existing := found[0]
		if existing.ExpiresAt.Before(time.Now()) {
			if err := as.userTokenRepo.FullDeleteByIDs(inner, []uuid.UUID{existing.ID}); err != nil {
				return fmt.Errorf("delete expired refresh token: %w", err)
			}
			return rejected
		}
		users, err := as.userRepo.GetByIDs(inner, []uuid.UUID{existing.UserID})
		if err != nil {
			return fmt.Errorf("load user for refresh: %w", err)
		}
		if len(users) == 0 {
			return rejected
		}
		if err := as.userTokenRepo.FullDeleteByIDs(inner, []uuid.UUID{existing.ID}); err != nil {
			return fmt.Errorf("remove old refresh token: %w", err)
		}
		at, rt, err := as.issueTokens(inner, users[0])
		if err != nil {
			return err
		}
		accessToken, newRefresh = at, rt
		return nil
	})
	if err != nil {
		// Expired-token cleanup must survive the rejection.
		if errors.Is(err, rejected) {
			as.dropExpired(ctx, refreshToken)
		}
		return "", "", err
	}
	return accessToken, newRefresh, nil
}

func (as *authService) dropExpired(ctx context.Context, refreshToken string) {
	dbc := dbctx.Context{Ctx: ctx}
	found, err := as.userTokenRepo.GetByRefreshTokens(dbc, []string{refreshToken})
	if err != nil || len(found) == 0 {
		return
	}
	if found[0].ExpiresAt.Before(time.Now()) {
		_ = as.userTokenRepo.FullDeleteByIDs(dbc, []uuid.UUID{found[0].ID})
	}
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.TokenString == "" {
		return errUnauthorized
	}
	dbc := dbctx.Context{Ctx: ctx}
	found, err := as.userTokenRepo.GetByAccessTokens(dbc, []string{rd.TokenString})
	if err != nil {
		return fmt.Errorf("fetch user token: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(found))
	for _, t := range found {
		ids = append(ids, t.ID)
	}
	if err := as.userTokenRepo.FullDeleteByIDs(dbc, ids); err != nil {
		return fmt.Errorf("delete user token: %w", err)
	}
	return nil
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

// SetContextFromToken verifies tokenString and attaches the caller to ctx. A
// token that verifies but has been logged out is rejected.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, errUnauthorized
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, fmt.Errorf("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", err)
	}
	found, err := as.userTokenRepo.GetByAccessTokens(dbctx.Context{Ctx: ctx}, []string{tokenString})
	if err != nil {
		return ctx, fmt.Errorf("fetch user token: %w", err)
	}
	if len(found) == 0 {
		return ctx, fmt.Errorf("session has ended")
	}
	rd := &ctxutil.RequestData{
		TokenString:  tokenString,
		RefreshToken: found[0].RefreshToken,
		UserID:       userID,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

func (as *authService) GetMe(ctx context.Context) (*types.User, error) {
	userID := ctxutil.UserID(ctx)
	if userID == uuid.Nil {
		return nil, errUnauthorized
	}
	users, err := as.userRepo.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if len(users) == 0 {
		return nil, apierr.NotFound("user_not_found", fmt.Errorf("user does not exist"))
	}
	return users[0], nil
}

func (as *authService) UpdateName(ctx context.Context, name string) (*types.User, error) {
	userID := ctxutil.UserID(ctx)
	if userID == uuid.Nil {
		return nil, errUnauthorized
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierr.BadRequest("invalid_name", fmt.Errorf("name is required"))
	}
	if err := as.userRepo.UpdateName(dbctx.Context{Ctx: ctx}, userID, name); err != nil {
		return nil, fmt.Errorf("update name: %w", err)
	}
	return as.GetMe(ctx)
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apierr.BadRequest("invalid_password", fmt.Errorf("password must be at least %d characters", minPasswordLength))
	}
	return nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (as *authService) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return apierr.BadRequest("invalid_request", fmt.Errorf("current and new password are required"))
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	user, err := as.GetMe(ctx)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(currentPassword)); err != nil {
		return apierr.New(http.StatusUnauthorized, "invalid_credentials", fmt.Errorf("current password is incorrect"))
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := as.userRepo.UpdatePassword(dbctx.Context{Ctx: ctx}, user.ID, string(hashed)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	as.log.Info("Password changed", "user_id", user.ID)
	return nil
}

func (as *authService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", apierr.BadRequest("invalid_email", fmt.Errorf("email is required"))
	}
	dbc := dbctx.Context{Ctx: ctx}
	users, err := as.userRepo.GetByEmails(dbc, []string{email})
	if err != nil {
		return "", fmt.Errorf("fetch user by email: %w", err)
	}
	if len(users) == 0 {
		return "", apierr.NotFound("user_not_found", fmt.Errorf("no user found with this email"))
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)
	if err := as.userRepo.SetResetToken(dbc, users[0].ID, hashResetToken(token), time.Now().Add(resetTokenTTL)); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	as.log.Info("Password reset requested", "user_id", users[0].ID)
	return token, nil
}

// ResetPassword also ends every session of the user.
func (as *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		return apierr.BadRequest("invalid_request", fmt.Errorf("password and token are required"))
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	var userID uuid.UUID
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		user, err := as.userRepo.GetByResetToken(inner, hashResetToken(token), time.Now())
		if err != nil {
			return fmt.Errorf("fetch reset token: %w", err)
		}
		if user == nil {
			return apierr.BadRequest("invalid_reset_token", fmt.Errorf("invalid or expired reset token"))
		}
		if err := as.userRepo.UpdatePassword(inner, user.ID, string(hashed)); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if err := as.userTokenRepo.FullDeleteByUserIDs(inner, []uuid.UUID{user.ID}); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
		userID = user.ID
		return nil
	})
	if err != nil {
		return err
	}
	as.log.Info("Password reset", "user_id", userID)
	return nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
