package domain

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate Candidate
		want      string
	}{
		{name: "id wins over phone", candidate: Candidate{ID: IDPtr(42), Phone: "+1 555"}, want: "id:42"},
		{name: "phone only", candidate: Candidate{Phone: "+1 (555) 010-2030"}, want: "phone:+15550102030"},
		{name: "nothing", candidate: Candidate{FirstName: "Ann"}, want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.candidate.Key())
		})
	}
}

func TestCandidateDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Ann Lee", Candidate{FirstName: "Ann", LastName: "Lee"}.DisplayName())
	assert.Equal(t, "@ann", Candidate{Username: "ann"}.DisplayName())
	assert.Equal(t, "User", Candidate{}.DisplayName())
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "+85291234567", NormalizePhone(" +852 9123-4567 "))
	assert.Equal(t, "85291234567", NormalizePhone("852+9123 4567"))
	assert.Equal(t, "", NormalizePhone("   "))
}

func TestIsValidCandidateStatus(t *testing.T) {
	t.Parallel()

	for _, s := range []CandidateStatus{CandidatePending, CandidateInvited, CandidateFailed, CandidateSkipped} {
		assert.True(t, IsValidCandidateStatus(s), s)
	}
	assert.False(t, IsValidCandidateStatus("unknown"))
}

func TestInvitedRecord(t *testing.T) {
	t.Parallel()

	t.Run("key matches candidate key", func(t *testing.T) {
		t.Parallel()
		rec := InvitedRecord{ID: IDPtr(7)}
		assert.Equal(t, Candidate{ID: IDPtr(7), Phone: "+1"}.Key(), rec.Key())

		byPhone := InvitedRecord{Phone: "+1 555 0100"}
		assert.Equal(t, Candidate{Phone: "+15550100"}.Key(), byPhone.Key())
	})

	t.Run("empty group applies to every target", func(t *testing.T) {
		t.Parallel()
		assert.True(t, InvitedRecord{ID: IDPtr(1)}.AppliesTo("@anything"))
	})

	t.Run("group reference spellings are equivalent", func(t *testing.T) {
		t.Parallel()
		rec := InvitedRecord{ID: IDPtr(1), GroupID: "https://t.me/GoLang/"}
		assert.True(t, rec.AppliesTo("@golang"))
		assert.True(t, rec.AppliesTo("golang"))
		assert.False(t, rec.AppliesTo("@rust"))
	})
}

func TestDelayRange(t *testing.T) {
	t.Parallel()

	t.Run("validate", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, DelayRange{Min: 1, Max: 3}.Validate())
		require.NoError(t, DefaultDelayRange().Validate())

		err := DelayRange{Min: 5, Max: 1}.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrValidation))

		err = DelayRange{Min: -1, Max: 1}.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "delayRange.min")
	})

	t.Run("draw stays in bounds", func(t *testing.T) {
		t.Parallel()
		r := rand.New(rand.NewPCG(1, 2))
		d := DelayRange{Min: 2, Max: 4}
		seen := map[time.Duration]bool{}
		for i := 0; i < 200; i++ {
			got := d.Draw(r)
			assert.GreaterOrEqual(t, got, 2*time.Second)
			assert.LessOrEqual(t, got, 4*time.Second)
			seen[got] = true
		}
		assert.Len(t, seen, 3)
	})

	t.Run("degenerate range", func(t *testing.T) {
		t.Parallel()
		r := rand.New(rand.NewPCG(1, 2))
		assert.Equal(t, 60*time.Second, DefaultDelayRange().Draw(r))
		assert.True(t, DelayRange{}.IsZero())
	})
}

func TestGuidance(t *testing.T) {
	t.Parallel()

	err := WithGuidance(ErrInvalidCode, "Invalid code")
	assert.True(t, errors.Is(err, ErrInvalidCode))
	assert.Equal(t, "Invalid code", Guidance(errors.Wrap(err, "connect")))
	assert.Equal(t, "", Guidance(ErrUnexpected))
	assert.Equal(t, "", Guidance(nil))
}

func TestAuthOutcome(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "authorized", Authorized().Outcome.String())
	assert.Equal(t, "code_required", CodeRequired().Outcome.String())
	res := AuthFailedWith(ErrInvalidCode)
	assert.Equal(t, AuthFailed, res.Outcome)
	assert.ErrorIs(t, res.Reason, ErrInvalidCode)
}
