package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("reason is required"), KindValidation},
		{"not found", NotFound("proposal %s not found", "x"), KindNotFound},
		{"authorization", Authorization("representative only"), KindAuthorization},
		{"conflict", Conflict("duplicate tag"), KindConflict},
		{"storage", Storage("failed to insert", errors.New("disk full")), KindStorage},
		{"wrapped", fmt.Errorf("resolve: %w", NotFound("gone")), KindNotFound},
		{"plain", errors.New("boom"), KindUnknown},
		{"nil", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestStorageKeepsExistingKind(t *testing.T) {
	inner := Conflict("an expulsion vote is already open")
	err := Storage("failed to create proposal", fmt.Errorf("tx: %w", inner))

	assert.True(t, Is(err, KindConflict))
	assert.Nil(t, Storage("failed", nil))
}

func TestErrorMessage(t *testing.T) {
	err := Storage("failed to begin transaction", errors.New("database is locked"))
	assert.Equal(t, "failed to begin transaction: database is locked", err.Error())
	assert.Equal(t, "not_found", KindNotFound.String())
}
