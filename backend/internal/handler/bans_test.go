package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/itchan-dev/accounts/shared/domain"
	"github.com/itchan-dev/accounts/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBanAccount(t *testing.T) {
	admin := &domain.Principal{Id: uuid.New(), Username: "admin", Admin: true}
	target := uuid.New()
	path := "/v1/admin/accounts/" + target.String() + "/ban"

	t.Run("banned by the signed-in admin", func(t *testing.T) {
		_, router := setupTestRouter(mocks{bans: &MockBans{
			BanFunc: func(id domain.AccountId, reason string, by *domain.AccountId) error {
				assert.Equal(t, target, id)
				assert.Equal(t, "spam", reason)
				require.NotNil(t, by)
				assert.Equal(t, admin.Id, *by)
				return nil
			},
		}})
		req := withPrincipal(createRequest(t, http.MethodPost, path, []byte(`{"reason":"spam"}`)), admin)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Account banned", rr.Body.String())
	})

	t.Run("reason required", func(t *testing.T) {
		_, router := setupTestRouter(mocks{})
		req := withPrincipal(createRequest(t, http.MethodPost, path, []byte(`{}`)), admin)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, router := setupTestRouter(mocks{})
		req := withPrincipal(createRequest(t, http.MethodPost, "/v1/admin/accounts/42/ban", []byte(`{"reason":"spam"}`)), admin)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"self ban", &errors.ErrorWithStatusCode{Message: "Cannot ban yourself", StatusCode: http.StatusBadRequest}, http.StatusBadRequest},
		{"unknown account", errors.NotFound("Account not found"), http.StatusNotFound},
		{"storage failure", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router := setupTestRouter(mocks{bans: &MockBans{
				BanFunc: func(domain.AccountId, string, *domain.AccountId) error { return tt.err },
			}})
			req := withPrincipal(createRequest(t, http.MethodPost, path, []byte(`{"reason":"spam"}`)), admin)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tt.code, rr.Code)
		})
	}
}

func TestUnbanAccount(t *testing.T) {
	target := uuid.New()
	path := "/v1/admin/accounts/" + target.String() + "/ban"

	t.Run("unbanned", func(t *testing.T) {
		called := false
		_, router := setupTestRouter(mocks{bans: &MockBans{
			UnbanFunc: func(id domain.AccountId) error {
				called = true
				assert.Equal(t, target, id)
				return nil
			},
		}})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, createRequest(t, http.MethodDelete, path, nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, called)
	})

	t.Run("not banned", func(t *testing.T) {
		_, router := setupTestRouter(mocks{bans: &MockBans{
			UnbanFunc: func(domain.AccountId) error { return errors.NotFound("Account is not banned") },
		}})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, createRequest(t, http.MethodDelete, path, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
