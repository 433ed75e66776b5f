package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/btsguard/internal/errors"
)

func TestCertificate_Usable(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	grace := now.Add(time.Hour)
	past := now.Add(-time.Minute)
	successor := uuid.New()

	tests := []struct {
		name string
		cert Certificate
		want bool
	}{
		{"active", Certificate{Status: StatusActive, NotAfter: now.AddDate(1, 0, 0)}, true},
		{"active but expired", Certificate{Status: StatusActive, NotAfter: past}, false},
		{
			"superseded inside grace",
			Certificate{Status: StatusSuperseded, NotAfter: now.AddDate(1, 0, 0), GraceUntil: &grace, SupersededBy: &successor},
			true,
		},
		{
			"superseded after grace",
			Certificate{Status: StatusSuperseded, NotAfter: now.AddDate(1, 0, 0), GraceUntil: &past},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cert.Usable(now))
		})
	}
}

func TestCertificate_ObservedStatus(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	grace := now.Add(time.Hour)

	superseded := Certificate{Status: StatusSuperseded, GraceUntil: &grace}
	assert.Equal(t, StatusSuperseded, superseded.ObservedStatus(now))
	assert.Equal(t, StatusExpiredGrace, superseded.ObservedStatus(grace))
	assert.Equal(t, StatusActive, (&Certificate{Status: StatusActive}).ObservedStatus(grace))
}

func TestSubject_Key(t *testing.T) {
	assert.Equal(t, "yatebts.local", Subject{CommonName: "YateBTS.local"}.Key())
}

func TestCryptoError(t *testing.T) {
	inUse := &CryptoError{Op: "rotate", Reason: ReasonInUse}
	assert.ErrorIs(t, inUse, apperrors.ErrBusy)
	assert.Equal(t, "crypto rotate failed (in-use)", inUse.Error())

	invalid := &CryptoError{Op: "generate", Reason: ReasonInvalidValidity}
	assert.ErrorIs(t, invalid, apperrors.ErrInvalidInput)
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3}
	Zero(b)
	assert.Equal(t, []byte{0, 0, 0}, b)
	Zero(nil)
}
