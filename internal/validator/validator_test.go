package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"asyncevent/internal/validator"
)

type store interface{ Len() int }

func TestValidate(t *testing.T) {
	t.Parallel()

	var nilLogger *zap.Logger
	var nilStore store
	var nilMap map[string]int
	var nilFunc func()

	tests := []struct {
		name    string
		deps    []any
		wantErr bool
	}{
		{name: "no deps", deps: nil},
		{name: "all present", deps: []any{zap.NewNop(), 1, "x", map[string]int{}, func() {}}},
		{name: "untyped nil", deps: []any{zap.NewNop(), nil}, wantErr: true},
		{name: "nil pointer", deps: []any{nilLogger}, wantErr: true},
		{name: "nil interface", deps: []any{nilStore}, wantErr: true},
		{name: "nil map", deps: []any{nilMap}, wantErr: true},
		{name: "nil func", deps: []any{nilFunc}, wantErr: true},
		{name: "zero int", deps: []any{0}, wantErr: true},
		{name: "empty string", deps: []any{""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validator.Validate("component", tt.deps...)
			if tt.wantErr {
				assert.ErrorContains(t, err, "component")
				return
			}
			assert.NoError(t, err)
		})
	}
}
