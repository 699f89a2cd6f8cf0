// Package auth はアカウント登録・ログイン・ベアラートークンによるリクエスト認証を提供する。
//
// 各操作は想定内の失敗をerrorではなくmodel.AuthOutcomeとして返す。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/passgate/internal/credential"
	"github.com/hitoshi/passgate/internal/metrics"
	"github.com/hitoshi/passgate/internal/model"
	"github.com/hitoshi/passgate/internal/repository"
	"github.com/hitoshi/passgate/internal/security"
	"github.com/hitoshi/passgate/internal/token"
)

// ErrAccountGone はトークンのsubjectに対応するアカウントが存在しない場合に返される。
var ErrAccountGone = errors.New("token subject no longer exists")

const badCredentialsDetail = "Invalid email or password"

// dummyPassword は存在しないアカウントへのログイン時に照合させるハッシュの元になる値。
const dummyPassword = "passgate-timing-equalizer"

// fallbackDummyHash はダミーハッシュを生成できなかった場合に使うcost 10のbcryptハッシュ。
const fallbackDummyHash = "$2a$10$k1wbIrmNyFAPwPVPSVa/zecw2BCEnBwVS2GbrmgzxFUOqW9dk4TCW"

// TokenIssuer はトークンの発行を行う。
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// TokenVerifier はトークンの検証を行う。
type TokenVerifier interface {
	ExtractSubject(tokenString string) (string, error)
	VerifyFor(tokenString, subject string) error
}

// TokenService はTokenIssuerとTokenVerifierの両方を満たす。
type TokenService interface {
	TokenIssuer
	TokenVerifier
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	accounts  repository.AccountRepository
	hasher    security.PasswordHasher
	tokens    TokenService
	sanitizer security.TextSanitizer
	metrics   metrics.Recorder
	now       func() time.Time

	dummyHash string
}

// NewService はServiceを生成する。
// sanitizerがnilの場合はStrictPolicyのサニタイザー、recorderがnilの場合は何も記録しないRecorderを使う。
func NewService(
	accounts repository.AccountRepository,
	hasher security.PasswordHasher,
	tokens TokenService,
	sanitizer security.TextSanitizer,
	recorder metrics.Recorder,
) *Service {
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{
		accounts:  accounts,
		hasher:    hasher,
		tokens:    tokens,
		sanitizer: sanitizer,
		metrics:   recorder,
		now:       time.Now,
		dummyHash: prepareDummyHash(hasher),
	}
}

// prepareDummyHash は未登録アカウントのログイン時に照合させるハッシュを生成する。
// 生成に失敗しても照合を省略しないよう、固定のbcryptハッシュを返す。
func prepareDummyHash(hasher security.PasswordHasher) string {
	hash, err := hasher.Hash(dummyPassword)
	if err != nil || hash == "" {
		slog.Warn("failed to prepare dummy hash; using built-in hash", slog.Any("error", err))
		return fallbackDummyHash
	}
	return hash
}

// Register は入力を検証してアカウントを作成する。トークンは発行しない。
func (s *Service) Register(ctx context.Context, in credential.RegistrationInput) model.AuthOutcome {
	in.FirstName = s.sanitizer.Sanitize(in.FirstName)
	in.LastName = s.sanitizer.Sanitize(in.LastName)

	if verr := credential.Validate(in, s.now()); verr != nil {
		s.metrics.RecordRegistration(metrics.OutcomeInvalidInput)
		return model.InvalidInput(verr.Field, verr.Reason)
	}

	exists, err := s.accounts.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return s.registrationStoreFailure(err)
	}
	if exists {
		s.metrics.RecordRegistration(metrics.OutcomeConflict)
		return model.Failed(model.ReasonConflict, "email already exists")
	}

	start := time.Now()
	hash, err := s.hasher.Hash(in.Password)
	s.metrics.RecordPasswordHash(time.Since(start))
	if errors.Is(err, security.ErrPasswordTooLong) {
		s.metrics.RecordRegistration(metrics.OutcomeInvalidInput)
		return model.InvalidInput(credential.FieldPassword, "Password must be at most 72 bytes")
	}
	if err != nil {
		s.metrics.RecordRegistration(metrics.OutcomeInternal)
		slog.Error("failed to hash password", slog.String("error", err.Error()))
		return model.Failed(model.ReasonInternal, "failed to hash password")
	}

	account := &model.Account{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNumber:  in.PhoneNumber,
		BirthDate:    in.BirthDate,
	}

	if err := s.accounts.Save(ctx, account); err != nil {
		// 存在確認と保存の間に同じメールアドレスが登録された場合
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.metrics.RecordRegistration(metrics.OutcomeConflict)
			return model.Failed(model.ReasonConflict, "email already exists")
		}
		return s.registrationStoreFailure(err)
	}

	s.metrics.RecordRegistration(metrics.OutcomeSuccess)
	slog.Info("account registered",
		slog.String("account_id", account.ID),
		slog.String("email", account.Email),
	)
	return model.AuthOutcome{Subject: account.Email, Account: account}
}

func (s *Service) registrationStoreFailure(err error) model.AuthOutcome {
	s.metrics.RecordRegistration(metrics.OutcomeStoreUnavailable)
	slog.Error("account store failed during registration", slog.String("error", err.Error()))
	return model.Failed(model.ReasonStoreUnavailable, "account store unavailable")
}

// Login は認証情報を照合し、成功時に新しいトークンを発行する。
// 未登録とパスワード不一致は区別せずBadCredentialsを返す。
func (s *Service) Login(ctx context.Context, email, password string) model.AuthOutcome {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		s.metrics.RecordLogin(metrics.OutcomeStoreUnavailable)
		slog.Error("account store failed during login", slog.String("error", err.Error()))
		return model.Failed(model.ReasonStoreUnavailable, "account store unavailable")
	}

	if account == nil {
		// 応答時間からアカウントの有無を推測されないよう、存在しない場合も照合を行う
		s.hasher.Verify(password, s.dummyHash)
		return s.loginRejected(email)
	}
	if !s.hasher.Verify(password, account.PasswordHash) {
		return s.loginRejected(email)
	}

	tok, err := s.tokens.Issue(account.Email)
	if err != nil {
		s.metrics.RecordLogin(metrics.OutcomeInternal)
		slog.Error("failed to issue token", slog.String("error", err.Error()))
		return model.Failed(model.ReasonInternal, "failed to issue token")
	}

	s.metrics.RecordLogin(metrics.OutcomeSuccess)
	slog.Info("login succeeded", slog.String("account_id", account.ID))
	return model.AuthOutcome{Subject: account.Email, Token: tok, Account: account}
}

func (s *Service) loginRejected(email string) model.AuthOutcome {
	s.metrics.RecordLogin(metrics.OutcomeBadCredentials)
	slog.Warn("login rejected", slog.String("email", email))
	return model.Failed(model.ReasonBadCredentials, badCredentialsDetail)
}

// ResolveProfile はsubjectのアカウントを取得する。
func (s *Service) ResolveProfile(ctx context.Context, email string) model.AuthOutcome {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		slog.Error("account store failed during profile lookup", slog.String("error", err.Error()))
		return model.Failed(model.ReasonStoreUnavailable, "account store unavailable")
	}
	if account == nil {
		return model.Failed(model.ReasonNotFound, "User not found")
	}
	return model.AuthOutcome{Subject: account.Email, Account: account}
}

// Authenticate はベアラートークンを検証し、認証済みのsubjectを返す。
//
// 署名だけを確認してsubjectを取り出し、アカウントの存在を確認してから
// 有効期限を含む完全な検証を行う。
// 返すエラーはtoken.ErrInvalid, token.ErrExpired, ErrAccountGone, またはストアのエラー。
func (s *Service) Authenticate(ctx context.Context, tokenString string) (string, error) {
	subject, err := s.tokens.ExtractSubject(tokenString)
	if err != nil {
		s.metrics.RecordTokenVerification(metrics.TokenInvalid)
		return "", err
	}

	account, err := s.accounts.FindByEmail(ctx, subject)
	if err != nil {
		s.metrics.RecordTokenVerification(metrics.TokenStoreError)
		return "", fmt.Errorf("failed to look up token subject: %w", err)
	}
	if account == nil {
		s.metrics.RecordTokenVerification(metrics.TokenAccountGone)
		return "", ErrAccountGone
	}

	if err := s.tokens.VerifyFor(tokenString, account.Email); err != nil {
		if errors.Is(err, token.ErrExpired) {
			s.metrics.RecordTokenVerification(metrics.TokenExpired)
		} else {
			s.metrics.RecordTokenVerification(metrics.TokenInvalid)
		}
		return "", err
	}

	s.metrics.RecordTokenVerification(metrics.TokenValid)
	return account.Email, nil
}

// CountAccounts は登録済みアカウント数を返す。
func (s *Service) CountAccounts(ctx context.Context) (int, error) {
	count, err := s.accounts.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// EmailExists はメールアドレスが登録済みかを返す。
func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	exists, err := s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}

// compile-time interface check
var _ TokenService = (*token.Service)(nil)
