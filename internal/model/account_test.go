package model

import (
	"testing"
	"time"
)

func TestAccount_FullName(t *testing.T) {
	a := &Account{FirstName: "Alice", LastName: "Lee"}
	if got := a.FullName(); got != "Alice Lee" {
		t.Errorf("FullName() = %q, want %q", got, "Alice Lee")
	}
}

func TestAccount_IsAdult(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		birthDate time.Time
		want      bool
	}{
		{"ゼロ値は未成年扱い", time.Time{}, false},
		{"18年以上前", time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"ちょうど18年前は未成年", time.Date(2008, 10, 17, 12, 0, 0, 0, time.UTC), false},
		{"18年前の前日", time.Date(2008, 10, 16, 0, 0, 0, 0, time.UTC), true},
		{"10年前", time.Date(2016, 5, 1, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Account{BirthDate: tt.birthDate}
			if got := a.IsAdult(now); got != tt.want {
				t.Errorf("IsAdult() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthOutcome_Succeeded(t *testing.T) {
	ok := AuthOutcome{Subject: "alice@example.com", Token: "tok"}
	if !ok.Succeeded() {
		t.Error("expected success outcome")
	}

	failed := Failed(ReasonBadCredentials, "Invalid email or password")
	if failed.Succeeded() {
		t.Error("expected failed outcome")
	}
	if failed.Failure.Reason != ReasonBadCredentials {
		t.Errorf("Reason = %q, want %q", failed.Failure.Reason, ReasonBadCredentials)
	}
}

func TestAuthFailure_Error_IncludesField(t *testing.T) {
	out := InvalidInput("phoneNumber", "Phone number must be 10 digits")
	got := out.Failure.Error()
	want := "invalid_input: phoneNumber: Phone number must be 10 digits"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
