/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apierror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/withhook/hooksync/internal/apierror"
)

func TestNewAPIError(t *testing.T) {
	apiErr := apierror.NewAPIError(apierror.ErrInternalServer, "Something went wrong", "details")

	assert.Equal(t, apierror.ErrInternalServer, apiErr.Code)
	assert.Equal(t, "Something went wrong", apiErr.Message)
	assert.Equal(t, "details", apiErr.Details)
	assert.Equal(t, "INTERNAL_SERVER_ERROR: Something went wrong", apiErr.Error())
}

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		code   apierror.ErrorCode
	}{
		{http.StatusNotFound, apierror.ErrNotFound},
		{http.StatusConflict, apierror.ErrConflict},
		{http.StatusUnprocessableEntity, apierror.ErrInvalidInput},
		{http.StatusUnauthorized, apierror.ErrUnauthorized},
		{http.StatusForbidden, apierror.ErrUnauthorized},
		{http.StatusTooManyRequests, apierror.ErrRateLimited},
		{http.StatusServiceUnavailable, apierror.ErrUnavailable},
		{http.StatusGatewayTimeout, apierror.ErrUnavailable},
		{http.StatusBadRequest, apierror.ErrBadRequest},
		{http.StatusInternalServerError, apierror.ErrInternalServer},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			apiErr := apierror.FromHTTPStatus(tt.status, "", nil)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, http.StatusText(tt.status), apiErr.Message)
		})
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("update meaning: %w", apierror.NewAPIError(apierror.ErrNotFound, "meaning not found", nil))
	assert.Equal(t, apierror.ErrNotFound, apierror.CodeOf(wrapped))
	assert.Equal(t, apierror.ErrInternalServer, apierror.CodeOf(errors.New("boom")))
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"not found", apierror.NewAPIError(apierror.ErrNotFound, "missing", nil), http.StatusNotFound},
		{"conflict", apierror.NewAPIError(apierror.ErrConflict, "dup", nil), http.StatusConflict},
		{"invalid input", apierror.NewAPIError(apierror.ErrInvalidInput, "bad", nil), http.StatusBadRequest},
		{"unavailable", apierror.NewAPIError(apierror.ErrUnavailable, "down", nil), http.StatusServiceUnavailable},
		{"wrapped", fmt.Errorf("ctx: %w", apierror.NewAPIError(apierror.ErrRateLimited, "slow down", nil)), http.StatusTooManyRequests},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, apierror.MapErrorToHTTPStatus(tt.err))
		})
	}
}
