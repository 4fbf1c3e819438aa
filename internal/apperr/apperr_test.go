package apperr

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondMapsCodeToStatus(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeNotAuthenticated, http.StatusUnauthorized},
		{CodeForbidden, http.StatusForbidden},
		{CodeClipNotFound, http.StatusNotFound},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeInternal, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		Respond(c, New(tc.code, "boom"))
		if w.Code != tc.want {
			t.Errorf("%s: got status %d, want %d", tc.code, w.Code, tc.want)
		}

		var body map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid json body: %v", err)
		}
		if body["success"] != false {
			t.Errorf("expected success=false in body")
		}
	}
}

func TestRespondWrapsNonAppError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Respond(c, http.ErrBodyNotAllowed)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected generic error to map to 500, got %d", w.Code)
	}
}

func TestSuccessEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Success(c, gin.H{"isOpen": true})

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	if body["success"] != true {
		t.Error("expected success=true")
	}
	if _, ok := body["state"]; !ok {
		t.Error("expected state key in success envelope")
	}
}

func TestInvalidWithDetails(t *testing.T) {
	err := Invalid("bad request", FieldIssue{Field: "url", Message: "too long"})
	if err.Code != CodeInvalidInput {
		t.Errorf("expected INVALID_INPUT code, got %s", err.Code)
	}
	if len(err.Details) != 1 || err.Details[0].Field != "url" {
		t.Errorf("expected one detail for field url, got %+v", err.Details)
	}
}
