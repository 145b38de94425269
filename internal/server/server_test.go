package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/kinfolk/internal/auth"
	"github.com/dukerupert/kinfolk/internal/config"
	"github.com/dukerupert/kinfolk/internal/database"
	"github.com/dukerupert/kinfolk/internal/media"
	"github.com/dukerupert/kinfolk/internal/middleware"
	"github.com/dukerupert/kinfolk/internal/model"
	"github.com/dukerupert/kinfolk/internal/store"
	ws "github.com/dukerupert/kinfolk/internal/websocket"
)

// pngBytes starts with the PNG signature so content sniffing reports image/png.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

type testEnv struct {
	handler http.Handler
	srv     *Server
	token   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	files, err := media.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		SessionTTL:     time.Hour,
		MaxUploadBytes: 1 << 20,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, files, cfg, logger)

	ctx := context.Background()
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	user, err := store.NewUserStore(db).Create(ctx, "ada@example.com", "Ada", hash)
	require.NoError(t, err)
	sess, err := store.NewSessionStore(db).Create(ctx, user.ID, time.Hour)
	require.NoError(t, err)

	return &testEnv{handler: srv.Router(), srv: srv, token: sess.Token}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Authorization", "Bearer "+e.token)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doJSON(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	return e.do(t, method, path, r, "application/json")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func multipartBody(t *testing.T, fields map[string]string, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/people", "/households", "/person/1", "/image/1"} {
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestLoginAndLogout(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"email":"ADA@example.com","password":"wrong password"}`))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest("POST", "/login", strings.NewReader(`{"email":"ADA@example.com","password":"correct horse"}`))
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.NotContains(t, rec.Body.String(), "password")

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	// The cookie authenticates, then logout revokes it.
	req = httptest.NewRequest("GET", "/people", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest("POST", "/logout", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest("GET", "/people", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t)

	var last int
	for i := 0; i <= loginRateLimit; i++ {
		req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"email":"x@example.com","password":"nope"}`))
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestPersonLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, "GET", "/people", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.doJSON(t, "POST", "/person", `{"first_name":"Ada","last_name":"Byron","email":"ada@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.DisplayPerson](t, rec)
	assert.Equal(t, "Ada", created.FirstName)

	rec = env.doJSON(t, "PUT", "/person/"+itoa(created.ID), `{"last_name":"Lovelace"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[model.DisplayPerson](t, rec)
	assert.Equal(t, "Lovelace", updated.LastName)
	assert.Equal(t, "ada@example.com", updated.Email, "unset fields are kept")

	rec = env.doJSON(t, "PUT", "/person/?id="+itoa(created.ID), `{"phone":"555-0100"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "555-0100", decode[model.DisplayPerson](t, rec).Phone)

	rec = env.doJSON(t, "GET", "/person/"+itoa(created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[model.DisplayPerson](t, rec)
	assert.Equal(t, "Lovelace", got.LastName)
	assert.Equal(t, "555-0100", got.Phone)
}

func TestPersonErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		errMsg string
	}{
		{"get missing", "GET", "/person/999", "", http.StatusNotFound, "person with that id does not exist"},
		{"update missing", "PUT", "/person/999", `{"first_name":"X"}`, http.StatusNotFound, "person with that id does not exist"},
		{"legacy update missing", "PUT", "/person/?id=999", `{"first_name":"X"}`, http.StatusNotFound, "person with that id does not exist"},
		{"bad id", "GET", "/person/abc", "", http.StatusBadRequest, "invalid id"},
		{"legacy without id", "PUT", "/person/", `{"first_name":"X"}`, http.StatusBadRequest, "invalid id"},
		{"create without name", "POST", "/person", `{"last_name":"X"}`, http.StatusBadRequest, "first_name is required"},
		{"create bad json", "POST", "/person", `{`, http.StatusBadRequest, "invalid JSON"},
		{"create unknown household", "POST", "/person", `{"first_name":"X","household_id":5}`, http.StatusNotFound, "household with that id does not exist"},
		{"profile images missing", "GET", "/person/999/profile_images", "", http.StatusNotFound, "person with that id does not exist"},
		{"profile image missing", "GET", "/person/999/profile_image", "", http.StatusNotFound, "person with that id does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.doJSON(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.errMsg, decode[map[string]string](t, rec)["error"])
		})
	}

	t.Run("empty patch", func(t *testing.T) {
		rec := env.doJSON(t, "POST", "/person", `{"first_name":"Ada"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		id := decode[model.DisplayPerson](t, rec).ID

		rec = env.doJSON(t, "PUT", "/person/"+itoa(id), `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestProfileImageUploadAndServe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, "POST", "/person", `{"first_name":"Ada"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	person := decode[model.DisplayPerson](t, rec)

	rec = env.doJSON(t, "GET", "/person/"+itoa(person.ID)+"/profile_image", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "person has no profile image", decode[map[string]string](t, rec)["error"])

	body, ct := multipartBody(t, nil, "ada.png", pngBytes)
	rec = env.do(t, "PUT", "/person/"+itoa(person.ID)+"/profile_image", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[model.DisplayPersonProfileImage](t, rec)
	require.NotNil(t, result.ProfileImage)
	require.NotNil(t, result.ProfileImageID)
	assert.Equal(t, result.ProfileImage.ID, *result.ProfileImageID)
	assert.Equal(t, "local", result.ProfileImage.Store)

	// Legacy form replaces the current image and keeps history.
	body, ct = multipartBody(t, nil, "ada2.png", pngBytes)
	rec = env.do(t, "PUT", "/person/profile_image?id="+itoa(person.ID), body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode[model.DisplayPersonProfileImage](t, rec)

	rec = env.doJSON(t, "GET", "/person/"+itoa(person.ID)+"/profile_image", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, second.ProfileImage.ID, decode[model.DisplayImage](t, rec).ID)

	rec = env.doJSON(t, "GET", "/person/"+itoa(person.ID)+"/profile_images", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.DisplayImage](t, rec), 2)

	rec = env.doJSON(t, "GET", "/image/"+itoa(second.ProfileImage.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, rec.Body.Bytes())
}

func TestProfileImageUploadRejects(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, "POST", "/person", `{"first_name":"Ada"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := itoa(decode[model.DisplayPerson](t, rec).ID)

	body, ct := multipartBody(t, nil, "notes.txt", []byte("just some text"))
	rec = env.do(t, "PUT", "/person/"+id+"/profile_image", body, ct)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	body, ct = multipartBody(t, map[string]string{"other": "x"}, "", nil)
	rec = env.do(t, "PUT", "/person/"+id+"/profile_image", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = multipartBody(t, nil, "ada.png", pngBytes)
	rec = env.do(t, "PUT", "/person/999/profile_image", body, ct)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body, ct = multipartBody(t, nil, "big.png", append(pngBytes, bytes.Repeat([]byte{1}, 2<<20)...))
	rec = env.do(t, "PUT", "/person/"+id+"/profile_image", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestHouseholdLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, "POST", "/person", `{"first_name":"Ada"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	leader := decode[model.DisplayPerson](t, rec)

	rec = env.doJSON(t, "POST", "/address", `{"street":"1 Analytical Way","city":"London","country":"UK"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	addr := decode[model.Address](t, rec)

	rec = env.doJSON(t, "GET", "/address/"+itoa(addr.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "London", decode[model.Address](t, rec).City)

	rec = env.doJSON(t, "POST", "/household", `{"leader_id":`+itoa(leader.ID)+`,"address_id":999}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "address with that id does not exist", decode[map[string]string](t, rec)["error"])

	rec = env.doJSON(t, "POST", "/household", `{"leader_id":`+itoa(leader.ID)+`,"address_id":`+itoa(addr.ID)+`}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	household := decode[model.DisplayHousehold](t, rec)
	assert.Empty(t, household.Images)

	body, ct := multipartBody(t, map[string]string{"description": "Summer 1840"}, "summer.png", pngBytes)
	rec = env.do(t, "POST", "/household/"+itoa(household.ID)+"/images", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	withImage := decode[model.DisplayHousehold](t, rec)
	require.Len(t, withImage.Images, 1)
	assert.Equal(t, "Summer 1840", withImage.Images[0].Description)

	rec = env.doJSON(t, "GET", "/household/"+itoa(household.ID)+"/images", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.DisplayImage](t, rec), 1)

	rec = env.doJSON(t, "GET", "/households", "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]model.DisplayHousehold](t, rec)
	require.Len(t, all, 1)
	assert.Len(t, all[0].Images, 1)

	// People can now join the household.
	rec = env.doJSON(t, "PUT", "/person/"+itoa(leader.ID), `{"household_id":`+itoa(household.ID)+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, decode[model.DisplayPerson](t, rec).HouseholdID)
}

func TestHouseholdErrors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, "GET", "/household/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.doJSON(t, "GET", "/household/42/images", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body, ct := multipartBody(t, nil, "x.png", pngBytes)
	rec = env.do(t, "POST", "/household/42/images", body, ct)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "household with that id does not exist", decode[map[string]string](t, rec)["error"])

	rec = env.doJSON(t, "POST", "/household", `{"leader_id":999,"address_id":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "person with that id does not exist", decode[map[string]string](t, rec)["error"])

	rec = env.doJSON(t, "POST", "/household", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doJSON(t, "GET", "/address/7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.doJSON(t, "GET", "/image/7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "image with that id does not exist", decode[map[string]string](t, rec)["error"])
}

func TestHousekeepingStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		env.srv.Housekeeping(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("housekeeping did not stop on cancel")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func nextEvent(t *testing.T, sub *ws.Subscription) ws.Event {
	t.Helper()
	select {
	case data, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		var ev ws.Event
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return ws.Event{}
}

func TestHandlersPublishCommittedChanges(t *testing.T) {
	env := newTestEnv(t)
	sub := env.srv.Hub().Subscribe()
	defer sub.Close()

	rec := env.doJSON(t, "POST", "/person", `{"first_name":"Ada"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	person := decode[model.DisplayPerson](t, rec)

	ev := nextEvent(t, sub)
	assert.Equal(t, "person_created", ev.Type)
	assert.Equal(t, person.ID, ev.ID)
	assert.Zero(t, ev.ImageID)

	rec = env.doJSON(t, "PUT", "/person/"+itoa(person.ID), `{"last_name":"Lovelace"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "person_updated", nextEvent(t, sub).Type)

	body, ct := multipartBody(t, nil, "ada.png", pngBytes)
	rec = env.do(t, "PUT", "/person/"+itoa(person.ID)+"/profile_image", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile := decode[model.DisplayPersonProfileImage](t, rec)
	ev = nextEvent(t, sub)
	assert.Equal(t, "person_profile_image_updated", ev.Type)
	assert.Equal(t, profile.ProfileImage.ID, ev.ImageID)

	rec = env.doJSON(t, "POST", "/address", `{"street":"1 Analytical Way","city":"London"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	addr := decode[model.Address](t, rec)

	rec = env.doJSON(t, "POST", "/household", `{"leader_id":`+itoa(person.ID)+`,"address_id":`+itoa(addr.ID)+`}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	household := decode[model.DisplayHousehold](t, rec)
	ev = nextEvent(t, sub)
	assert.Equal(t, "household_created", ev.Type)
	assert.Equal(t, household.ID, ev.ID)

	for i := 0; i < 2; i++ {
		body, ct = multipartBody(t, nil, "summer.png", pngBytes)
		rec = env.do(t, "POST", "/household/"+itoa(household.ID)+"/images", body, ct)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		withImage := decode[model.DisplayHousehold](t, rec)

		ev = nextEvent(t, sub)
		assert.Equal(t, "household_image_added", ev.Type)
		assert.Equal(t, household.ID, ev.ID)
		assert.Equal(t, withImage.Images[len(withImage.Images)-1].ID, ev.ImageID)
	}
}

func TestFailedChangesPublishNothing(t *testing.T) {
	env := newTestEnv(t)
	sub := env.srv.Hub().Subscribe()
	defer sub.Close()

	rec := env.doJSON(t, "PUT", "/person/999", `{"first_name":"X"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.doJSON(t, "POST", "/household", `{"leader_id":999,"address_id":1}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	select {
	case data := <-sub.C:
		t.Fatalf("unexpected event %s", data)
	default:
	}
}
