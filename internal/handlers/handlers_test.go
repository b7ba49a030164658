package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferntrail/scrapbook/internal/auth"
	"github.com/ferntrail/scrapbook/internal/config"
	"github.com/ferntrail/scrapbook/internal/db"
	"github.com/ferntrail/scrapbook/internal/media"
	"github.com/ferntrail/scrapbook/internal/models"
	"github.com/ferntrail/scrapbook/internal/sharing"
)

// tinyGIF is a valid 1x1 GIF used as the uploaded image in tests.
var tinyGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x4c, 0x01, 0x00, 0x3b,
}

type fixture struct {
	api     *API
	repo    *db.Repository
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.NewMigrator(database.DB, db.MigrationsFS()).Up())

	repo := db.NewRepository(database.DB)
	store, err := media.NewStore(t.TempDir())
	require.NoError(t, err)

	api := New(config.Default(), repo, auth.NewService(repo),
		sharing.NewService(repo), media.NewValidator(0), store)
	return &fixture{api: api, repo: repo, handler: api.Routes()}
}

func (f *fixture) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "not-a-real-hash",
	}
	require.NoError(t, f.repo.CreateUser(u))
	return u
}

// sessionFor opens a session directly in the store and returns its cookie.
func (f *fixture) sessionFor(t *testing.T, u *models.User) *http.Cookie {
	t.Helper()
	token := uuid.New().String()
	expires := time.Now().Add(time.Hour).Unix()
	require.NoError(t, f.repo.CreateSession(token, u.ID, expires))
	return &http.Cookie{Name: auth.SessionCookie, Value: token}
}

func (f *fixture) createScrapbook(t *testing.T, author *models.User, title string, status models.Status) *models.Scrapbook {
	t.Helper()
	s := &models.Scrapbook{
		Title:    title,
		Image:    "cover.gif",
		Status:   status,
		AuthorID: author.ID,
	}
	require.NoError(t, f.repo.CreateScrapbook(s))
	return s
}

func (f *fixture) createPost(t *testing.T, s *models.Scrapbook, author *models.User, title string, status models.Status) *models.Post {
	t.Helper()
	p := &models.Post{
		ScrapbookID: s.ID,
		AuthorID:    author.ID,
		Title:       title,
		Image:       "post.gif",
		Status:      status,
	}
	require.NoError(t, f.repo.CreatePost(p))
	return p
}

func (f *fixture) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func (f *fixture) get(path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	return f.do(httptest.NewRequest(http.MethodGet, path, nil), cookie)
}

func (f *fixture) postForm(path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return f.do(req, cookie)
}

// uploadRequest builds a multipart request with the given text fields and
// a valid tiny image when withImage is set.
func uploadRequest(t *testing.T, method, path string, fields map[string]string, withImage bool) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withImage {
		fw, err := mw.CreateFormFile("image", "photo.gif")
		require.NoError(t, err)
		_, err = fw.Write(tinyGIF)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestPublicGalleryListsOnlyPublicScrapbooks(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	f.createScrapbook(t, alice, "Open Album", models.StatusPublic)
	f.createScrapbook(t, alice, "Hidden Album", models.StatusPrivate)
	f.createScrapbook(t, alice, "Half Done", models.StatusDraft)

	w := f.get("/scrapbooks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	items := body["items"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "open-album", first["slug"])
	assert.Equal(t, float64(1), body["total"])
}

func TestCreateScrapbookRequiresLogin(t *testing.T) {
	f := newFixture(t)
	req := uploadRequest(t, http.MethodPost, "/scrapbooks", map[string]string{"title": "Trip"}, true)
	w := f.do(req, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, auth.LoginURL, w.Header().Get("Location"))
}

func TestCreateScrapbook(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	cookie := f.sessionFor(t, alice)

	req := uploadRequest(t, http.MethodPost, "/scrapbooks", map[string]string{
		"title":       "  Summer Trip  ",
		"description": "two weeks on the coast",
	}, true)
	w := f.do(req, cookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	sb := body["scrapbook"].(map[string]interface{})
	assert.Equal(t, "Summer Trip", sb["title"], "title should be trimmed")
	assert.Equal(t, "summer-trip", sb["slug"])
	assert.Equal(t, float64(models.StatusPrivate), sb["status"], "status should default to private")
}

func TestCreateScrapbookValidation(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	cookie := f.sessionFor(t, alice)

	t.Run("blank title", func(t *testing.T) {
		req := uploadRequest(t, http.MethodPost, "/scrapbooks", map[string]string{"title": "   "}, true)
		w := f.do(req, cookie)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "title")
	})

	t.Run("missing image", func(t *testing.T) {
		req := uploadRequest(t, http.MethodPost, "/scrapbooks", map[string]string{"title": "Trip"}, false)
		w := f.do(req, cookie)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "image")
	})

	t.Run("bad status", func(t *testing.T) {
		req := uploadRequest(t, http.MethodPost, "/scrapbooks",
			map[string]string{"title": "Trip", "status": "7"}, true)
		w := f.do(req, cookie)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

// TestPrivateScrapbookSharingScenario walks the whole sharing flow: a
// private scrapbook is invisible to another user and to anonymous
// visitors until its author shares it.
func TestPrivateScrapbookSharingScenario(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	trip := f.createScrapbook(t, alice, "Trip", models.StatusPrivate)
	f.createPost(t, trip, alice, "Day One", models.StatusPublic)
	f.createPost(t, trip, alice, "Notes", models.StatusDraft)

	bobCookie := f.sessionFor(t, bob)
	detail := "/scrapbooks/" + trip.Slug

	w := f.get(detail, bobCookie)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "You do not have permission to view this scrapbook.")

	w = f.get(detail, nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, auth.LoginURL, w.Header().Get("Location"))

	aliceCookie := f.sessionFor(t, alice)
	w = f.postForm(detail+"/share", url.Values{"user_id": {string(bob.ID)}}, aliceCookie)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.get(detail, bobCookie)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["shared"])
	posts := body["posts"].(map[string]interface{})
	items := posts["items"].([]interface{})
	require.Len(t, items, 1, "grant holders should not see drafts")
	assert.Equal(t, "Day One", items[0].(map[string]interface{})["title"])

	w = f.get("/scrapbooks/shared", bobCookie)
	require.Equal(t, http.StatusOK, w.Code)
	shared := decodeBody(t, w)["items"].([]interface{})
	require.Len(t, shared, 1)
	assert.Equal(t, trip.Slug, shared[0].(map[string]interface{})["slug"])
}

func TestShareDuplicateIsConflict(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	trip := f.createScrapbook(t, alice, "Trip", models.StatusPrivate)
	cookie := f.sessionFor(t, alice)

	form := url.Values{"user_id": {string(bob.ID)}}
	w := f.postForm("/scrapbooks/"+trip.Slug+"/share", form, cookie)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.postForm("/scrapbooks/"+trip.Slug+"/share", form, cookie)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already")
}

func TestShareFormOffersNonDraftPosts(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	f.createUser(t, "bob")
	trip := f.createScrapbook(t, alice, "Trip", models.StatusPrivate)
	f.createPost(t, trip, alice, "Visible", models.StatusPrivate)
	f.createPost(t, trip, alice, "Draft", models.StatusDraft)

	w := f.get("/scrapbooks/"+trip.Slug+"/share", f.sessionFor(t, alice))
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)

	posts := body["posts"].([]interface{})
	require.Len(t, posts, 1, "drafts are not offered for sharing")
	assert.Equal(t, "Visible", posts[0].(map[string]interface{})["title"])

	recipients := body["recipients"].([]interface{})
	require.Len(t, recipients, 1)
	assert.Equal(t, "bob", recipients[0].(map[string]interface{})["username"])
}

func TestScrapbookDetailPostFilters(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	album := f.createScrapbook(t, alice, "Album", models.StatusPublic)
	f.createPost(t, album, alice, "Public Post", models.StatusPublic)
	f.createPost(t, album, alice, "Private Post", models.StatusPrivate)
	f.createPost(t, album, alice, "Draft Post", models.StatusDraft)

	detail := "/scrapbooks/" + album.Slug

	countPosts := func(w *httptest.ResponseRecorder) int {
		body := decodeBody(t, w)
		return len(body["posts"].(map[string]interface{})["items"].([]interface{}))
	}

	w := f.get(detail, f.sessionFor(t, alice))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, countPosts(w), "author sees every post")

	w = f.get(detail, f.sessionFor(t, bob))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, countPosts(w), "strangers see only public posts")

	w = f.get(detail, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, countPosts(w), "anonymous visitors see only public posts")
}

func TestPostDetailVisibility(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	album := f.createScrapbook(t, alice, "Album", models.StatusPublic)
	post := f.createPost(t, album, alice, "Secret", models.StatusPrivate)

	path := fmt.Sprintf("/scrapbooks/%s/posts/%s", album.Slug, post.Slug)

	w := f.get(path, f.sessionFor(t, alice))
	require.Equal(t, http.StatusOK, w.Code)

	w = f.get(path, f.sessionFor(t, bob))
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "You do not have permission to view this post.")

	w = f.get(path, nil)
	require.Equal(t, http.StatusFound, w.Code)
}

func TestCreatePostPermissions(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	carol := f.createUser(t, "carol")
	album := f.createScrapbook(t, alice, "Album", models.StatusPublic)
	require.NoError(t, f.repo.CreateShareGrants(album.ID, bob.ID, alice.ID))

	path := "/scrapbooks/" + album.Slug + "/posts"

	req := uploadRequest(t, http.MethodPost, path, map[string]string{"title": "From Bob"}, true)
	w := f.do(req, f.sessionFor(t, bob))
	require.Equal(t, http.StatusCreated, w.Code, "grant holders can contribute")
	post := decodeBody(t, w)["post"].(map[string]interface{})
	assert.Equal(t, float64(models.StatusDraft), post["status"], "posts default to draft")

	req = uploadRequest(t, http.MethodPost, path, map[string]string{"title": "From Carol"}, true)
	w = f.do(req, f.sessionFor(t, carol))
	require.Equal(t, http.StatusForbidden, w.Code, "strangers cannot contribute")
}

func TestUpdateScrapbookAuthorOnly(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	bob := f.createUser(t, "bob")
	album := f.createScrapbook(t, alice, "Album", models.StatusPublic)

	req := uploadRequest(t, http.MethodPut, "/scrapbooks/"+album.Slug,
		map[string]string{"title": "Hijacked"}, false)
	w := f.do(req, f.sessionFor(t, bob))
	require.Equal(t, http.StatusForbidden, w.Code)

	req = uploadRequest(t, http.MethodPut, "/scrapbooks/"+album.Slug,
		map[string]string{"title": "Renamed", "status": "2"}, false)
	w = f.do(req, f.sessionFor(t, alice))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sb := decodeBody(t, w)["scrapbook"].(map[string]interface{})
	assert.Equal(t, "Renamed", sb["title"])
	assert.Equal(t, album.Slug, sb["slug"], "slug never changes after creation")
}

func TestDeleteScrapbook(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	album := f.createScrapbook(t, alice, "Album", models.StatusPublic)
	cookie := f.sessionFor(t, alice)

	req := httptest.NewRequest(http.MethodDelete, "/scrapbooks/"+album.Slug, nil)
	w := f.do(req, cookie)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.get("/scrapbooks/"+album.Slug, cookie)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLoginFlow(t *testing.T) {
	f := newFixture(t)
	hash, err := auth.HashPassword("opensesame")
	require.NoError(t, err)
	u := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: hash}
	require.NoError(t, f.repo.CreateUser(u))

	w := f.postForm("/accounts/login/", url.Values{
		"username": {"alice"},
		"password": {"opensesame"},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	var session *http.Cookie
	for _, c := range cookies {
		if c.Name == auth.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)

	w = f.get("/scrapbooks/mine", session)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.postForm("/accounts/login/", url.Values{
		"username": {"alice"},
		"password": {"wrong"},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGalleryPagination(t *testing.T) {
	f := newFixture(t)
	alice := f.createUser(t, "alice")
	for i := 0; i < 8; i++ {
		f.createScrapbook(t, alice, fmt.Sprintf("Album %d", i), models.StatusPublic)
	}

	w := f.get("/scrapbooks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["items"].([]interface{}), 6)
	assert.Equal(t, float64(8), body["total"])
	assert.Equal(t, float64(2), body["total_pages"])

	w = f.get("/scrapbooks?page=2", nil)
	body = decodeBody(t, w)
	assert.Len(t, body["items"].([]interface{}), 2)
}
