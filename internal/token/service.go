// Package token はベアラートークン（HS256署名のJWT）の発行と検証を提供する。
//
// トークンはサーバー側に保存しないステートレスな資格情報で、
// 署名鍵を持つプロセスであればどこでも検証できる。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalid は構造不正・署名不一致・subject欠落などで検証できないトークンを表す。
	ErrInvalid = errors.New("token is invalid")
	// ErrExpired は形式と署名は正しいが有効期限を過ぎたトークンを表す。
	ErrExpired = errors.New("token has expired")
	// ErrSubjectMismatch はトークンのsubjectが期待値と異なる場合に返される。
	ErrSubjectMismatch = errors.New("token subject mismatch")
)

// Service はトークンの発行と検証を行う。
// 署名鍵とTTLは生成時に固定され、以後変更されない。
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option はServiceの生成オプション。
type Option func(*Service)

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService はServiceを生成する。
// secretが空の場合はエラーを返す。
func NewService(secret []byte, ttl time.Duration, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("token signing secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive: %s", ttl)
	}

	s := &Service{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL はトークンの有効期間を返す。
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue はsubjectに紐づくトークンを発行する。
// 発行ごとにランダムなjtiを含めるため、同一subjectでも毎回異なるトークンになる。
func (s *Service) Issue(subject string) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("token subject is required")
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify は署名・有効期限・subjectを検証し、subjectを返す。
// 期限切れの場合はErrExpired、それ以外の不正はErrInvalidを返す。
func (s *Service) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		// 署名が正しく期限だけが切れている場合のみErrExpiredとする
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return "", ErrExpired
		}
		return "", ErrInvalid
	}

	if claims.Subject == "" {
		return "", ErrInvalid
	}
	return claims.Subject, nil
}

// VerifyFor はVerifyに加えてsubjectが期待値と一致することを検証する。
func (s *Service) VerifyFor(tokenString, subject string) error {
	got, err := s.Verify(tokenString)
	if err != nil {
		return err
	}
	if got != subject {
		return ErrSubjectMismatch
	}
	return nil
}

// ExtractSubject は署名のみを検証してsubjectを取り出す。
// 有効期限などの時刻に関するクレームは検証しない。
func (s *Service) ExtractSubject(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalid
	}
	return claims.Subject, nil
}

func (s *Service) keyFunc(*jwt.Token) (any, error) {
	return s.secret, nil
}
