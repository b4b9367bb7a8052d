package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zeyuan/appeal-service/internal/apperr"
	"github.com/zeyuan/appeal-service/internal/models"
	"github.com/zeyuan/appeal-service/internal/realtime"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubResolver struct {
	users map[string]*models.User
	err   error
}

func (s stubResolver) CurrentSession(_ context.Context, token string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.users[token], nil
}

func newSessionRouter(resolver SessionResolver) *gin.Engine {
	router := gin.New()
	router.Use(SessionMiddleware(resolver))
	router.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID, "token": CurrentToken(c)})
	})
	return router
}

func TestSessionMiddlewareAcceptsBearerAndQueryToken(t *testing.T) {
	resolver := stubResolver{users: map[string]*models.User{"tok": {ID: "u1", Role: models.RoleClient}}}
	router := newSessionRouter(resolver)

	for _, req := range []*http.Request{
		func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/me", nil)
			r.Header.Set("Authorization", "Bearer tok")
			return r
		}(),
		httptest.NewRequest(http.MethodGet, "/me?token=tok", nil),
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
		}
		var body map[string]string
		if errDecode := json.Unmarshal(w.Body.Bytes(), &body); errDecode != nil {
			t.Fatalf("decode: %v", errDecode)
		}
		if body["id"] != "u1" || body["token"] != "tok" {
			t.Fatalf("unexpected body %v", body)
		}
	}
}

func TestSessionMiddlewareRejects(t *testing.T) {
	cases := []struct {
		name     string
		resolver stubResolver
		header   string
		want     int
		kind     string
	}{
		{name: "missing", resolver: stubResolver{}, want: http.StatusUnauthorized, kind: "unauthorized"},
		{name: "wrong scheme", resolver: stubResolver{}, header: "Basic abc", want: http.StatusUnauthorized, kind: "unauthorized"},
		{name: "unknown token", resolver: stubResolver{}, header: "Bearer nope", want: http.StatusUnauthorized, kind: "unauthorized"},
		{name: "backend failure", resolver: stubResolver{err: apperr.Persistence("check session failed", errors.New("down"))}, header: "Bearer x", want: http.StatusInternalServerError, kind: "persistence"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newSessionRouter(tc.resolver)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
			var body map[string]string
			if errDecode := json.Unmarshal(w.Body.Bytes(), &body); errDecode != nil {
				t.Fatalf("decode: %v", errDecode)
			}
			if body["kind"] != tc.kind {
				t.Fatalf("kind = %q, want %q", body["kind"], tc.kind)
			}
		})
	}
}

func TestRequireStaff(t *testing.T) {
	resolver := stubResolver{users: map[string]*models.User{
		"client": {ID: "c", Role: models.RoleClient},
		"admin":  {ID: "a", Role: models.RoleAdmin},
	}}
	router := gin.New()
	router.Use(SessionMiddleware(resolver), RequireStaff())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for token, want := range map[string]int{"client": http.StatusForbidden, "admin": http.StatusNoContent} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("%s: status = %d, want %d", token, w.Code, want)
		}
	}
}

func TestRespondErrorMapsKinds(t *testing.T) {
	cases := map[int]error{
		http.StatusBadRequest:          apperr.Validation("bad"),
		http.StatusNotFound:            apperr.NotFound("gone"),
		http.StatusBadGateway:          apperr.Generation("llm", errors.New("x")),
		http.StatusInternalServerError: errors.New("plain"),
	}
	for want, err := range cases {
		router := gin.New()
		router.GET("/e", func(c *gin.Context) { RespondError(c, err) })
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/e", nil))
		if w.Code != want {
			t.Fatalf("%v: status = %d, want %d", err, w.Code, want)
		}
	}

	router := gin.New()
	router.GET("/e", func(c *gin.Context) { RespondError(c, errors.New("secret detail")) })
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/e", nil))
	if strings.Contains(w.Body.String(), "secret detail") {
		t.Fatalf("internal error leaked: %s", w.Body.String())
	}
}

func runStream(t *testing.T, user *models.User, publish []realtime.Event) string {
	t.Helper()
	broker := realtime.NewMemoryBroker()
	handler := NewEventsHandler(broker)
	handler.keepAlive = time.Hour

	router := gin.New()
	router.GET("/events", func(c *gin.Context) {
		c.Set(ContextUserKey, user)
		handler.Stream(c)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for broker.Subscribers() == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		for _, evt := range publish {
			_ = broker.Publish(ctx, evt)
		}
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("content type = %q", ct)
	}
	return w.Body.String()
}

func TestEventsStreamFiltersClientRows(t *testing.T) {
	body := runStream(t, &models.User{ID: "me", Role: models.RoleClient}, []realtime.Event{
		{Collection: realtime.CollectionAppeals, Op: realtime.OpInsert, ID: "mine", UserID: "me"},
		{Collection: realtime.CollectionAppeals, Op: realtime.OpInsert, ID: "theirs", UserID: "other"},
		{Collection: realtime.CollectionKnowledgeBase, Op: realtime.OpInsert, ID: "kb"},
	})
	if !strings.Contains(body, "event:ready") {
		t.Fatalf("missing ready event: %s", body)
	}
	if !strings.Contains(body, `"id":"mine"`) {
		t.Fatalf("own event missing: %s", body)
	}
	if strings.Contains(body, `"id":"theirs"`) || strings.Contains(body, `"id":"kb"`) {
		t.Fatalf("foreign event leaked: %s", body)
	}
}

func TestEventsStreamStaffSeesEverything(t *testing.T) {
	body := runStream(t, &models.User{ID: "admin", Role: models.RoleAdmin}, []realtime.Event{
		{Collection: realtime.CollectionAppeals, Op: realtime.OpUpsert, ID: "a1", UserID: "someone"},
		{Collection: realtime.CollectionKnowledgeBase, Op: realtime.OpDelete, ID: "kb1"},
	})
	if !strings.Contains(body, `"id":"a1"`) || !strings.Contains(body, `"id":"kb1"`) {
		t.Fatalf("staff stream incomplete: %s", body)
	}
}
