package repository_test

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/annostudio/annostudio/pkg/repository"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	errNotFound  = errors.New("thing not found")
	errDuplicate = errors.New("thing already exists")
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil passes through", nil, nil},
		{"no rows maps to not found", sql.ErrNoRows, errNotFound},
		{"wrapped no rows maps to not found", errors.Join(errors.New("query one"), sql.ErrNoRows), errNotFound},
		{"unique violation maps to duplicate", &pgconn.PgError{Code: "23505"}, errDuplicate},
		{"other pg error passes through", &pgconn.PgError{Code: "23503"}, &pgconn.PgError{Code: "23503"}},
		{"unknown error passes through", errors.New("boom"), errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := repository.MapError(tt.err, errNotFound, errDuplicate)

			if tt.want == nil {
				if got != nil {
					t.Errorf("MapError() = %v, want nil", got)
				}
				return
			}

			if got == nil || got.Error() != tt.want.Error() {
				t.Errorf("MapError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMapErrorPreservesSentinelIdentity(t *testing.T) {
	got := repository.MapError(sql.ErrNoRows, errNotFound, errDuplicate)
	if !errors.Is(got, errNotFound) {
		t.Errorf("MapError() = %v, want errNotFound identity", got)
	}
}
