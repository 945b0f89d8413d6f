package assignment

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmate/controller"
	"taskmate/middleware"
	"taskmate/model"
	"taskmate/services"
	"taskmate/session"
	"taskmate/store/memstore"
)

var (
	secret = []byte("test-secret")
	alice  = session.Session{UID: "alice", Email: "alice@example.com", DisplayName: "Alice"}
	bob    = session.Session{UID: "bob", Email: "bob@example.com", DisplayName: "Bob"}
	carol  = session.Session{UID: "carol", Email: "carol@example.com", DisplayName: "Carol"}
)

type harness struct {
	t      *testing.T
	st     *memstore.Store
	router *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := memstore.New()
	for _, s := range []session.Session{alice, bob, carol} {
		st.PutUser(s.Profile())
	}
	env := &controller.Env{
		Service:        services.NewAssignmentService(st, st.Users(), zerolog.Nop()),
		Assignments:    st,
		Auth:           middleware.AccessTokenMiddleware(middleware.JWTVerifier{Secret: secret}, st.Users(), zerolog.Nop()),
		Log:            zerolog.Nop(),
		Location:       time.UTC,
		NoticeDuration: time.Second,
		Now:            func() time.Time { return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC) },
	}
	r := gin.New()
	AssignmentController(r, env)
	return &harness{t: t, st: st, router: r}
}

func token(t *testing.T, s session.Session) string {
	t.Helper()
	tok, err := services.CreateAccessToken(secret, s, time.Hour)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(method, path string, as *session.Session, body interface{}) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+token(h.t, *as))
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

type createResponse struct {
	Assignment struct {
		ID            string   `json:"id"`
		Title         string   `json:"title"`
		Collaborators []string `json:"collaborators"`
	} `json:"assignment"`
	Receipt services.Receipt `json:"receipt"`
}

func (h *harness) create(as session.Session, title string) string {
	h.t.Helper()
	w := h.do(http.MethodPost, "/assignments", &as, gin.H{"title": title})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	var resp createResponse
	require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Assignment.ID
}

func TestCreate(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/assignments", &alice, gin.H{"title": "Essay"})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp createResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Essay", resp.Assignment.Title)
	assert.Equal(t, []string{"alice"}, resp.Assignment.Collaborators)
	assert.Equal(t, services.MutationCreate, resp.Receipt.Kind)
	assert.Len(t, h.st.Snapshot(), 1)
}

func TestCreate_EmptyBodyUsesDefaultTitle(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodPost, "/assignments", &alice, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, services.DefaultTitle, h.st.Snapshot()[0].Title)
}

func TestCreate_Confirmed(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodPost, "/assignments?confirm=true", &alice, gin.H{"title": "Confirmed"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Confirmed", h.st.Snapshot()[0].Title)
}

func TestRequiresToken(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/assignments", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListAndGet(t *testing.T) {
	h := newHarness(t)
	id := h.create(alice, "Essay")
	h.create(bob, "Not shared")

	w := h.do(http.MethodGet, "/assignments", &alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Assignments []struct {
			ID            string `json:"id"`
			ReminderLabel string `json:"reminderLabel"`
		} `json:"assignments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Assignments, 1)
	assert.Equal(t, id, list.Assignments[0].ID)
	assert.Equal(t, "No reminder set", list.Assignments[0].ReminderLabel)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/assignments/"+id, &alice, nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/assignments/"+id, &bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/assignments/missing", &alice, nil).Code)
}

func TestUpdateTitle(t *testing.T) {
	h := newHarness(t)
	id := h.create(alice, "Essay")

	w := h.do(http.MethodPut, "/assignments/"+id+"/title", &alice, gin.H{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPut, "/assignments/"+id+"/title", &alice, gin.H{"title": "Essay v2"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Message string           `json:"message"`
		Receipt services.Receipt `json:"receipt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Title updated", resp.Message)
	stored := h.st.Snapshot()[0]
	assert.Equal(t, "Essay v2", stored.Title)
	assert.Equal(t, resp.Receipt.MutationID, stored.LastModified.Mutation)

	w = h.do(http.MethodPut, "/assignments/"+id+"/title", &bob, gin.H{"title": "hijack"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateContent(t *testing.T) {
	h := newHarness(t)
	id := h.create(alice, "Essay")

	w := h.do(http.MethodPut, "/assignments/"+id+"/content", &alice, gin.H{"content": "x", "textAlign": "justify"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPut, "/assignments/"+id+"/content", &alice, gin.H{
		"content":    "Intro",
		"textAlign":  "center",
		"textFormat": gin.H{"bold": true, "italic": false, "underline": true},
	})
	require.Equal(t, http.StatusOK, w.Code)
	stored := h.st.Snapshot()[0]
	assert.Equal(t, "Intro", stored.Content)
	assert.Equal(t, model.AlignCenter, stored.TextAlign)
	assert.Equal(t, model.TextFormat{Bold: true, Underline: true}, stored.TextFormat)
}

func TestUpdateReminder(t *testing.T) {
	h := newHarness(t)
	id := h.create(alice, "Essay")

	w := h.do(http.MethodPut, "/assignments/"+id+"/reminder", &alice, gin.H{
		"form": gin.H{"year": "2024", "month": "13", "day": "20", "hour": "9", "minute": "x"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	at, ok := h.st.Snapshot()[0].Reminder.Time()
	require.True(t, ok)
	assert.True(t, time.Date(2024, 12, 20, 9, 0, 0, 0, time.UTC).Equal(at))

	exact := time.Date(2024, 7, 1, 8, 30, 0, 0, time.UTC)
	w = h.do(http.MethodPut, "/assignments/"+id+"/reminder", &alice, gin.H{"at": exact})
	require.Equal(t, http.StatusOK, w.Code)
	at, _ = h.st.Snapshot()[0].Reminder.Time()
	assert.True(t, exact.Equal(at))

	w = h.do(http.MethodPut, "/assignments/"+id+"/reminder", &alice, gin.H{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.ReminderAbsent, h.st.Snapshot()[0].Reminder.State)
}

func TestDelete(t *testing.T) {
	h := newHarness(t)
	id := h.create(alice, "Essay")
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/assignments/"+id+"/share", &alice, gin.H{"email": bob.Email}).Code)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodDelete, "/assignments/"+id, &bob, nil).Code)
	assert.Len(t, h.st.Snapshot(), 1)

	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/assignments/"+id+"?confirm=true", &alice, nil).Code)
	assert.Empty(t, h.st.Snapshot())
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/assignments/"+id, &alice, nil).Code)
}

func TestShare(t *testing.T) {
	h := newHarness(t)
	id := h.create(alice, "Essay")
	share := func(as session.Session, email string) int {
		return h.do(http.MethodPost, "/assignments/"+id+"/share", &as, gin.H{"email": email}).Code
	}

	assert.Equal(t, http.StatusBadRequest, share(alice, "   "))
	assert.Equal(t, http.StatusNotFound, share(alice, "nobody@example.com"))
	assert.Equal(t, http.StatusBadRequest, share(alice, alice.Email))
	assert.Equal(t, http.StatusForbidden, share(carol, bob.Email))
	assert.Equal(t, http.StatusOK, share(alice, " "+bob.Email+" "))
	assert.Equal(t, http.StatusConflict, share(alice, bob.Email))
	assert.Equal(t, []string{"alice", "bob"}, h.st.Snapshot()[0].Collaborators)

	w := h.do(http.MethodGet, "/assignments/"+id+"/collaborators", &bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Collaborators []struct {
			UID         string `json:"uid"`
			DisplayName string `json:"displayName"`
		} `json:"collaborators"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Collaborators, 2)
	assert.Equal(t, "Alice", resp.Collaborators[0].DisplayName)
	assert.Equal(t, "Bob", resp.Collaborators[1].DisplayName)
}

func TestPersistenceFailure(t *testing.T) {
	h := newHarness(t)
	id := h.create(alice, "Essay")
	h.st.FailWrites(errors.New("unavailable"))

	w := h.do(http.MethodPut, "/assignments/"+id+"/title", &alice, gin.H{"title": "x"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "unavailable")
	assert.Equal(t, "Essay", h.st.Snapshot()[0].Title)
}

// sse reads server-sent events from a live response.
type sse struct {
	sc *bufio.Scanner
}

func (s *sse) next(t *testing.T) (string, string) {
	t.Helper()
	var name, data string
	for s.sc.Scan() {
		line := s.sc.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		case line == "" && name != "":
			return name, data
		}
	}
	t.Fatalf("stream ended: %v", s.sc.Err())
	return "", ""
}

func (h *harness) stream(t *testing.T, path string, as session.Session) (*sse, context.CancelFunc) {
	t.Helper()
	srv := httptest.NewServer(h.router)
	t.Cleanup(srv.Close)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token(t, as))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return &sse{sc: bufio.NewScanner(resp.Body)}, cancel
}

func TestStreamAssignments(t *testing.T) {
	h := newHarness(t)
	h.create(alice, "First")

	s, cancel := h.stream(t, "/assignments/stream", alice)
	defer cancel()

	name, data := s.next(t)
	assert.Equal(t, "list", name)
	assert.Contains(t, data, "First")

	h.create(alice, "Second")
	name, data = s.next(t)
	assert.Equal(t, "list", name)
	assert.Contains(t, data, "Second")
}

func TestStreamAssignment_NoticeAndClose(t *testing.T) {
	h := newHarness(t)
	id := h.create(alice, "Essay")
	require.Equal(t, http.StatusOK, h.do(http.MethodPost, "/assignments/"+id+"/share", &alice, gin.H{"email": bob.Email}).Code)

	s, cancel := h.stream(t, "/assignments/"+id+"/stream", alice)
	defer cancel()

	name, _ := s.next(t)
	require.Equal(t, "assignment", name)

	require.Equal(t, http.StatusOK, h.do(http.MethodPut, "/assignments/"+id+"/title", &bob, gin.H{"title": "Bob's"}).Code)
	seen := map[string]string{}
	for len(seen) < 2 {
		name, data := s.next(t)
		seen[name] = data
	}
	assert.Contains(t, seen["assignment"], "Bob's")
	assert.Contains(t, seen["remoteEdit"], `"by":"bob"`)

	require.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/assignments/"+id, &alice, nil).Code)
	for {
		name, data := s.next(t)
		if name == "closed" {
			assert.Contains(t, data, id)
			break
		}
	}
}

func TestStreamAssignment_Forbidden(t *testing.T) {
	h := newHarness(t)
	id := h.create(alice, "Essay")
	w := h.do(http.MethodGet, "/assignments/"+id+"/stream", &bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
