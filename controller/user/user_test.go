package user

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmate/controller"
	"taskmate/middleware"
	"taskmate/services"
	"taskmate/session"
	"taskmate/store/memstore"
)

var secret = []byte("test-secret")

func TestProfileRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := memstore.New()
	env := &controller.Env{
		Users: services.NewUserService(st.Users(), zerolog.Nop(), time.Second),
		Auth:  middleware.AccessTokenMiddleware(middleware.JWTVerifier{Secret: secret}, st.Users(), zerolog.Nop()),
		Log:   zerolog.Nop(),
	}
	r := gin.New()
	UserController(r, env)

	tok, err := services.CreateAccessToken(secret, session.Session{UID: "erin", Email: "erin@example.com", DisplayName: "Erin"}, time.Hour)
	require.NoError(t, err)
	call := func(method, body string) (int, map[string]interface{}) {
		req := httptest.NewRequest(method, "/users/me", bytes.NewBufferString(body))
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		var out map[string]interface{}
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		return w.Code, out
	}

	code, out := call(http.MethodGet, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, out["registered"])
	assert.Equal(t, "erin@example.com", out["email"])

	code, out = call(http.MethodPut, `{"displayName":"Erin K."}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["registered"])
	assert.Equal(t, "Erin K.", out["displayName"])

	code, out = call(http.MethodGet, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, out["registered"])
	assert.Equal(t, "Erin K.", out["displayName"])

	code, _ = call(http.MethodPut, `{"displayName":" "}`)
	assert.Equal(t, http.StatusBadRequest, code)
}
