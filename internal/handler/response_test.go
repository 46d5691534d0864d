package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"edumate-go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) envelope {
	t.Helper()
	var body envelope
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestRespondOKEnvelope(t *testing.T) {
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	respondOK(c, gin.H{"id": "a1"})

	assert.Equal(t, http.StatusOK, recorder.Code)
	body := decodeEnvelope(t, recorder)
	assert.True(t, body.Success)
	assert.JSONEq(t, `{"id":"a1"}`, string(body.Data))
}

func TestRespondServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", service.NewValidationError("参数错误"), http.StatusBadRequest},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"not found", gorm.ErrRecordNotFound, http.StatusNotFound},
		{"wrapped not found", errors.Join(errors.New("query"), gorm.ErrRecordNotFound), http.StatusNotFound},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(recorder)

			respondServiceError(c, tc.err)

			assert.Equal(t, tc.wantStatus, recorder.Code)
			body := decodeEnvelope(t, recorder)
			assert.False(t, body.Success)
			assert.Equal(t, tc.wantStatus, body.Status)
			assert.NotEmpty(t, body.Error)
		})
	}
}
