package handlers_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"boutique/internal/database"
	"boutique/internal/middleware"
	"boutique/internal/models"
	"boutique/internal/repositories"
	"boutique/internal/server"
	"boutique/internal/services"
	"boutique/internal/session"
	"boutique/internal/upload"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test_jwt_secret"

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

type testEnv struct {
	srv       *server.Server
	users     repositories.UserRepository
	products  repositories.ProductRepository
	avatarDir string
}

// setupApp builds the full application on an in-memory SQLite database.
func setupApp(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	avatarDir := filepath.Join(t.TempDir(), "avatars")
	avatars, err := upload.NewDiskStore(avatarDir, server.AvatarURLPrefix)
	require.NoError(t, err)

	users := repositories.NewGORMUserRepository(db)
	products := repositories.NewGORMProductRepository(db)
	srv := server.New(server.Options{
		UserRepo:       users,
		ProductRepo:    products,
		JWTSecret:      testJWTSecret,
		TokenTTL:       time.Hour,
		TokenCookieTTL: 24 * time.Hour,
		SessionTTL:     time.Hour,
		BcryptCost:     bcrypt.MinCost,
		Avatars:        avatars,
		AvatarDir:      avatarDir,
	})
	return &testEnv{srv: srv, users: users, products: products, avatarDir: avatarDir}
}

// browser keeps cookies in a real cookie jar, so paths and expiry are
// honoured the way a user agent would.
type browser struct {
	t   *testing.T
	env *testEnv
	jar *cookiejar.Jar
}

var siteRoot = &url.URL{Scheme: "http", Host: "example.com", Path: "/"}

func (e *testEnv) browser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, env: e, jar: jar}
}

func (b *browser) send(req *http.Request) *http.Response {
	b.t.Helper()
	target := &url.URL{Scheme: siteRoot.Scheme, Host: siteRoot.Host, Path: req.URL.Path}
	for _, ck := range b.jar.Cookies(target) {
		req.AddCookie(ck)
	}
	resp, err := b.env.srv.App.Test(req, -1)
	require.NoError(b.t, err)
	b.jar.SetCookies(target, resp.Cookies())
	return resp
}

// cookie returns the value of a site-wide cookie, or "" when the jar has none.
func (b *browser) cookie(name string) string {
	for _, ck := range b.jar.Cookies(siteRoot) {
		if ck.Name == name {
			return ck.Value
		}
	}
	return ""
}

func (b *browser) setCookie(name, value string) {
	b.jar.SetCookies(siteRoot, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

func (b *browser) get(target string) *http.Response {
	return b.send(httptest.NewRequest(http.MethodGet, target, nil))
}

func (b *browser) form(method, target string, values url.Values) *http.Response {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.send(req)
}

func (b *browser) register(name, username, email, password string) *http.Response {
	return b.form(http.MethodPost, "/users", url.Values{
		"name":     {name},
		"username": {username},
		"email":    {email},
		"password": {password},
	})
}

func (b *browser) login(email, password string) *http.Response {
	return b.form(http.MethodPost, "/users/login", url.Values{
		"email":    {email},
		"password": {password},
	})
}

type pageResponse struct {
	View        string               `json:"view"`
	CurrentUser *models.UserSnapshot `json:"currentUser"`
	Flash       session.Flashes      `json:"flash"`
	Data        json.RawMessage      `json:"data"`
}

func readPage(t *testing.T, resp *http.Response) pageResponse {
	t.Helper()
	defer resp.Body.Close()
	var page pageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	return page
}

func readJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, out), string(body))
}

func assertRedirect(t *testing.T, resp *http.Response, location string) {
	t.Helper()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, location, resp.Header.Get("Location"))
}

func (e *testEnv) userByEmail(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := e.users.GetByEmail(email)
	require.NoError(t, err)
	return user
}

func TestAuthRegisterAndLogin(t *testing.T) {
	env := setupApp(t)

	b := env.browser(t)
	resp := b.register("Jane Doe", "jane", "jane@example.com", "password123")
	assertRedirect(t, resp, "/me")
	assert.NotEmpty(t, b.cookie(middleware.TokenCookie))
	assert.NotEmpty(t, b.cookie(session.CookieName))

	page := readPage(t, b.get("/me"))
	assert.Equal(t, "index", page.View)
	require.NotNil(t, page.CurrentUser)
	assert.Equal(t, "jane", page.CurrentUser.Username)

	// a fresh login issues both credentials for the same user
	fresh := env.browser(t)
	assertRedirect(t, fresh.login("jane@example.com", "password123"), "/me")
	token := fresh.cookie(middleware.TokenCookie)
	require.NotEmpty(t, token)
	require.NotEmpty(t, fresh.cookie(session.CookieName))

	claims, err := env.srv.Auth.ValidateToken(token)
	require.NoError(t, err)
	jane := env.userByEmail(t, "jane@example.com")
	assert.Equal(t, jane.ID, claims.ID)
	assert.Equal(t, models.RoleUser, claims.Role)

	page = readPage(t, fresh.get("/me"))
	require.NotNil(t, page.CurrentUser)
	assert.Equal(t, jane.ID, page.CurrentUser.ID)
	assert.Equal(t, []string{"Logged in successfully"}, page.Flash[session.FlashSuccess])
}

func TestGate_EitherLaneSuffices(t *testing.T) {
	env := setupApp(t)
	b := env.browser(t)
	assertRedirect(t, b.register("Jane Doe", "jane", "jane@example.com", "password123"), "/me")

	sessionOnly := env.browser(t)
	sessionOnly.setCookie(session.CookieName, b.cookie(session.CookieName))
	resp := sessionOnly.get("/wishlist")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	tokenOnly := env.browser(t)
	tokenOnly.setCookie(middleware.TokenCookie, b.cookie(middleware.TokenCookie))
	resp = tokenOnly.get("/wishlist")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	page := readPage(t, resp)
	require.NotNil(t, page.CurrentUser)
	assert.Equal(t, "jane", page.CurrentUser.Username)

	bearerOnly := httptest.NewRequest(http.MethodGet, "/me", nil)
	bearerOnly.Header.Set("Authorization", "Bearer "+b.cookie(middleware.TokenCookie))
	resp, err := env.srv.App.Test(bearerOnly, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for _, path := range []string{"/", "/me", "/wishlist", "/addProduct", "/products/add", "/users/edit/x"} {
		assertRedirect(t, env.browser(t).get(path), "/login")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := setupApp(t)

	assertRedirect(t, env.browser(t).register("First", "first", "dup@example.com", "password123"), "/me")

	resp := env.browser(t).register("Second", "second", "dup@example.com", "password456")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	page := readPage(t, resp)
	assert.Equal(t, "register", page.View)
	var data map[string]string
	require.NoError(t, json.Unmarshal(page.Data, &data))
	assert.Equal(t, "email", data["field"])
	assert.Contains(t, data["error"], "dup@example.com")

	resp = env.browser(t).register("Third", "first", "third@example.com", "password456")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	page = readPage(t, resp)
	require.NoError(t, json.Unmarshal(page.Data, &data))
	assert.Equal(t, "username", data["field"])

	// the first account is untouched
	first := env.userByEmail(t, "dup@example.com")
	assert.Equal(t, "first", first.Username)
	assertRedirect(t, env.browser(t).login("dup@example.com", "password123"), "/me")
}

func TestRegister_Validation(t *testing.T) {
	env := setupApp(t)

	resp := env.browser(t).register("", "x", "not-an-email", "1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_, err := env.users.GetByEmail("not-an-email")
	assert.Error(t, err)
}

func TestLogin_FailureIsGeneric(t *testing.T) {
	env := setupApp(t)
	assertRedirect(t, env.browser(t).register("Jane Doe", "jane", "jane@example.com", "password123"), "/me")

	var messages [][]string
	for _, creds := range [][2]string{{"jane@example.com", "wrong-password"}, {"nobody@example.com", "password123"}} {
		b := env.browser(t)
		assertRedirect(t, b.login(creds[0], creds[1]), "/login")
		assert.Empty(t, b.cookie(middleware.TokenCookie))

		page := readPage(t, b.get("/login"))
		assert.Nil(t, page.CurrentUser)
		messages = append(messages, page.Flash[session.FlashError])
	}
	assert.Equal(t, []string{"invalid email or password"}, messages[0])
	assert.Equal(t, messages[0], messages[1])
}

func TestLogout(t *testing.T) {
	env := setupApp(t)
	b := env.browser(t)
	assertRedirect(t, b.register("Jane Doe", "jane", "jane@example.com", "password123"), "/me")
	oldSID := b.cookie(session.CookieName)

	resp := b.form(http.MethodPost, "/users/logout", nil)
	assertRedirect(t, resp, "/register")
	var cleared *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == middleware.TokenCookie {
			cleared = ck
		}
	}
	require.NotNil(t, cleared, "logout must expire the token cookie")
	assert.Equal(t, "/", cleared.Path)
	assert.Empty(t, cleared.Value)
	assert.True(t, cleared.Expires.Before(time.Now()))

	assert.Empty(t, b.cookie(middleware.TokenCookie))
	assert.Empty(t, b.cookie(session.CookieName))
	assertRedirect(t, b.get("/me"), "/login")

	replay := env.browser(t)
	replay.setCookie(session.CookieName, oldSID)
	assertRedirect(t, replay.get("/me"), "/login")
}

func TestDeleteUser_Self(t *testing.T) {
	env := setupApp(t)
	b := env.browser(t)
	assertRedirect(t, b.register("Jane Doe", "jane", "jane@example.com", "password123"), "/me")
	jane := env.userByEmail(t, "jane@example.com")
	staleSID, staleToken := b.cookie(session.CookieName), b.cookie(middleware.TokenCookie)
	require.NotEmpty(t, staleSID)
	require.NotEmpty(t, staleToken)

	resp := b.send(httptest.NewRequest(http.MethodDelete, "/users/"+jane.ID, nil))
	assertRedirect(t, resp, "/register")
	assert.Empty(t, b.cookie(session.CookieName))
	assert.Empty(t, b.cookie(middleware.TokenCookie))
	assertRedirect(t, b.get("/me"), "/login")

	_, err := env.users.GetByID(jane.ID)
	assert.Error(t, err)

	// neither the old session nor the old token authenticates any more
	for name, value := range map[string]string{session.CookieName: staleSID, middleware.TokenCookie: staleToken} {
		replay := env.browser(t)
		replay.setCookie(name, value)
		assertRedirect(t, replay.get("/me"), "/login")
	}
}

func TestDeleteUser_Other(t *testing.T) {
	env := setupApp(t)
	_, err := env.srv.Users.EnsureAdmin("admin@example.com", "admin", "adminpass")
	require.NoError(t, err)

	victim := env.browser(t)
	assertRedirect(t, victim.register("Victim", "victim", "victim@example.com", "password123"), "/me")
	victimID := env.userByEmail(t, "victim@example.com").ID

	plain := env.browser(t)
	assertRedirect(t, plain.register("Plain", "plain", "plain@example.com", "password123"), "/me")
	assertRedirect(t, plain.send(httptest.NewRequest(http.MethodDelete, "/users/"+victimID, nil)), "/")
	page := readPage(t, plain.get("/"))
	assert.NotEmpty(t, page.Flash[session.FlashError])
	_, err = env.users.GetByID(victimID)
	require.NoError(t, err)

	admin := env.browser(t)
	assertRedirect(t, admin.login("admin@example.com", "adminpass"), "/me")
	sid := admin.cookie(session.CookieName)
	assertRedirect(t, admin.send(httptest.NewRequest(http.MethodDelete, "/users/"+victimID, nil)), "/")
	assert.Equal(t, sid, admin.cookie(session.CookieName))

	page = readPage(t, admin.get("/me"))
	require.NotNil(t, page.CurrentUser)
	assert.Equal(t, "admin", page.CurrentUser.Username)
	assert.Contains(t, page.Flash[session.FlashSuccess], "User deleted successfully")

	_, err = env.users.GetByID(victimID)
	assert.Error(t, err)
}

func TestWishlistFlow(t *testing.T) {
	env := setupApp(t)
	b := env.browser(t)
	assertRedirect(t, b.register("Jane Doe", "jane", "jane@example.com", "password123"), "/me")

	lamp := &models.Product{Name: "Lamp", Price: 20, Stock: 3}
	chair := &models.Product{Name: "Chair", Price: 80, Stock: 1}
	require.NoError(t, env.products.Create(lamp))
	require.NoError(t, env.products.Create(chair))

	add := func(id string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/wishlist/"+id, nil)
		req.Header.Set("Referer", "/products/add")
		return b.send(req)
	}

	assertRedirect(t, add(chair.ID), "/products/add")
	assertRedirect(t, add(lamp.ID), "/products/add")
	page := readPage(t, b.get("/products/add"))
	assert.Len(t, page.Flash[session.FlashSuccess], 2)

	// a duplicate add changes nothing and says so
	assertRedirect(t, add(chair.ID), "/products/add")
	page = readPage(t, b.get("/wishlist"))
	assert.Equal(t, []string{"This product is already in your wishlist"}, page.Flash[session.FlashInfo])
	var data struct {
		WishlistItems []models.Product `json:"wishlistItems"`
	}
	require.NoError(t, json.Unmarshal(page.Data, &data))
	require.Len(t, data.WishlistItems, 2)
	assert.Equal(t, chair.ID, data.WishlistItems[0].ID)
	assert.Equal(t, lamp.ID, data.WishlistItems[1].ID)

	// unknown products are rejected
	assertRedirect(t, add(uuid.NewString()), "/products/add")
	page = readPage(t, b.get("/wishlist"))
	assert.NotEmpty(t, page.Flash[session.FlashError])

	// removing an absent product is a quiet success
	resp := b.send(httptest.NewRequest(http.MethodDelete, "/wishlist/"+uuid.NewString(), nil))
	assertRedirect(t, resp, "/wishlist")
	page = readPage(t, b.get("/wishlist"))
	assert.NotEmpty(t, page.Flash[session.FlashSuccess])
	assert.Empty(t, page.Flash[session.FlashError])

	resp = b.send(httptest.NewRequest(http.MethodDelete, "/wishlist/"+chair.ID, nil))
	assertRedirect(t, resp, "/wishlist")
	jane := env.userByEmail(t, "jane@example.com")
	assert.Equal(t, []string{lamp.ID}, jane.Wishlist)
}

func TestProductPages(t *testing.T) {
	env := setupApp(t)
	b := env.browser(t)
	assertRedirect(t, b.register("Jane Doe", "jane", "jane@example.com", "password123"), "/me")

	resp := b.form(http.MethodPost, "/products/add", url.Values{
		"name":        {"Desk"},
		"description": {"Oak desk"},
		"price":       {"150.5"},
		"stock":       {"4"},
	})
	assertRedirect(t, resp, "/products/add")

	page := readPage(t, b.get("/addProduct"))
	assert.Equal(t, "addProduct", page.View)
	var data struct {
		Products []models.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(page.Data, &data))
	require.Len(t, data.Products, 1)
	desk := data.Products[0]
	assert.Equal(t, "Desk", desk.Name)
	assert.Equal(t, 150.5, desk.Price)

	resp = b.form(http.MethodPost, "/products/add", url.Values{"name": {"X"}})
	assertRedirect(t, resp, "/products/add")
	page = readPage(t, b.get("/products/add"))
	assert.NotEmpty(t, page.Flash[session.FlashError])

	assertRedirect(t, b.send(httptest.NewRequest(http.MethodDelete, "/products/"+desk.ID, nil)), "/products/add")
	_, err := env.products.GetByID(desk.ID)
	assert.Error(t, err)
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func editRequest(t *testing.T, id string, fields map[string]string, picture []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if picture != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+upload.FieldName+`"; filename="avatar.png"`)
		h.Set("Content-Type", "image/png")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(picture)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/users/edit/"+id, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestEditProfile(t *testing.T) {
	env := setupApp(t)
	b := env.browser(t)
	assertRedirect(t, b.register("Jane Doe", "jane", "jane@example.com", "password123"), "/me")
	jane := env.userByEmail(t, "jane@example.com")

	page := readPage(t, b.get("/users/edit/" + jane.ID))
	assert.Equal(t, "edit", page.View)

	resp := b.send(editRequest(t, jane.ID, map[string]string{"name": "Jane Updated", "password": ""}, pngImage(t)))
	assertRedirect(t, resp, "/me")
	updated := env.userByEmail(t, "jane@example.com")
	assert.Equal(t, "Jane Updated", updated.Name)
	assert.Equal(t, jane.Password, updated.Password, "blank password keeps the hash")
	require.True(t, strings.HasPrefix(updated.ProfilePic, server.AvatarURLPrefix+"/"))
	firstFile := filepath.Join(env.avatarDir, filepath.Base(updated.ProfilePic))
	_, err := os.Stat(firstFile)
	require.NoError(t, err)

	// the session snapshot follows the edit
	page = readPage(t, b.get("/me"))
	require.NotNil(t, page.CurrentUser)
	assert.Equal(t, "Jane Updated", page.CurrentUser.Name)

	// the picture is served statically
	static := b.get(updated.ProfilePic)
	assert.Equal(t, http.StatusOK, static.StatusCode)

	// a second picture replaces the first, a new password takes effect
	resp = b.send(editRequest(t, jane.ID, map[string]string{"password": "newpassword"}, pngImage(t)))
	assertRedirect(t, resp, "/me")
	replaced := env.userByEmail(t, "jane@example.com")
	assert.NotEqual(t, updated.ProfilePic, replaced.ProfilePic)
	_, err = os.Stat(firstFile)
	assert.True(t, os.IsNotExist(err))
	assertRedirect(t, env.browser(t).login("jane@example.com", "newpassword"), "/me")

	// an invalid file is rejected without touching the profile
	resp = b.send(editRequest(t, jane.ID, map[string]string{"name": "Nope"}, []byte("plain text")))
	assertRedirect(t, resp, "/users/edit/"+jane.ID)
	assert.Equal(t, "Jane Updated", env.userByEmail(t, "jane@example.com").Name)
}

func TestEditProfile_OtherUserForbidden(t *testing.T) {
	env := setupApp(t)
	assertRedirect(t, env.browser(t).register("Victim", "victim", "victim@example.com", "password123"), "/me")
	victim := env.userByEmail(t, "victim@example.com")

	b := env.browser(t)
	assertRedirect(t, b.register("Mallory", "mallory", "mallory@example.com", "password123"), "/me")

	assertRedirect(t, b.get("/users/edit/"+victim.ID), "/me")
	resp := b.send(editRequest(t, victim.ID, map[string]string{"name": "Owned"}, nil))
	assertRedirect(t, resp, "/me")
	assert.Equal(t, "Victim", env.userByEmail(t, "victim@example.com").Name)
}

func TestUsersPages(t *testing.T) {
	env := setupApp(t)
	assertRedirect(t, env.browser(t).register("Jane Doe", "jane", "jane@example.com", "password123"), "/me")
	jane := env.userByEmail(t, "jane@example.com")

	b := env.browser(t)
	page := readPage(t, b.get("/users"))
	assert.Equal(t, "users", page.View)
	assert.NotContains(t, string(page.Data), "password")

	var user map[string]interface{}
	readJSON(t, b.get("/users/"+jane.ID), &user)
	assert.Equal(t, "jane", user["username"])
	assert.NotContains(t, user, "password")

	resp := b.get("/users/" + uuid.NewString())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func apiRequest(method, target, token string, body interface{}) *http.Request {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func (e *testEnv) apiToken(t *testing.T, email, password string) string {
	t.Helper()
	resp, err := e.srv.App.Test(apiRequest(http.MethodPost, "/api/auth", "", map[string]string{
		"email":    email,
		"password": password,
	}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Token string                 `json:"token"`
		User  map[string]interface{} `json:"user"`
	}
	readJSON(t, resp, &out)
	assert.NotContains(t, out.User, "password")
	return out.Token
}

func TestAPI_Products(t *testing.T) {
	env := setupApp(t)
	_, err := env.srv.Users.EnsureAdmin("admin@example.com", "admin", "adminpass")
	require.NoError(t, err)
	assertRedirect(t, env.browser(t).register("Jane Doe", "jane", "jane@example.com", "password123"), "/me")

	adminToken := env.apiToken(t, "admin@example.com", "adminpass")
	userToken := env.apiToken(t, "jane@example.com", "password123")

	do := func(req *http.Request) *http.Response {
		resp, err := env.srv.App.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	newProduct := map[string]interface{}{
		"name":        "Smartphone",
		"description": "Latest model smartphone",
		"price":       799.99,
		"stock":       50,
	}
	resp := do(apiRequest(http.MethodPost, "/api/products", userToken, newProduct))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(apiRequest(http.MethodPost, "/api/products", adminToken, newProduct))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Product
	readJSON(t, resp, &created)
	assert.NotEmpty(t, created.ID)

	resp = do(apiRequest(http.MethodGet, "/api/products", userToken, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var products []models.Product
	readJSON(t, resp, &products)
	assert.Len(t, products, 1)

	resp = do(apiRequest(http.MethodPut, "/api/products/"+created.ID, adminToken, map[string]interface{}{
		"name":  "Smartphone Pro",
		"price": 899.99,
		"stock": 45,
	}))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated models.Product
	readJSON(t, resp, &updated)
	assert.Equal(t, "Smartphone Pro", updated.Name)

	resp = do(apiRequest(http.MethodPost, "/api/products", adminToken, map[string]interface{}{"name": "X"}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var invalid map[string]interface{}
	readJSON(t, resp, &invalid)
	assert.Equal(t, "Validation failed", invalid["message"])
	assert.Contains(t, invalid["errors"], "Name")

	resp = do(apiRequest(http.MethodPut, "/api/products/"+created.ID, adminToken, map[string]interface{}{"price": -1}))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	malformed := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader("{not json"))
	malformed.Header.Set("Content-Type", "application/json")
	malformed.Header.Set("Authorization", "Bearer "+adminToken)
	resp = do(malformed)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var badBody map[string]interface{}
	readJSON(t, resp, &badBody)
	assert.Equal(t, "Invalid request body", badBody["message"])
	assert.NotEmpty(t, badBody["error"])

	resp = do(apiRequest(http.MethodDelete, "/api/products/"+created.ID, adminToken, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var deleteResp map[string]string
	readJSON(t, resp, &deleteResp)
	assert.Contains(t, deleteResp["message"], "deleted successfully")

	resp = do(apiRequest(http.MethodGet, "/api/products/"+created.ID, userToken, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_TokenFailures(t *testing.T) {
	env := setupApp(t)
	assertRedirect(t, env.browser(t).register("Jane Doe", "jane", "jane@example.com", "password123"), "/me")
	jane := env.userByEmail(t, "jane@example.com")

	expired, err := services.NewTokenManager(testJWTSecret, -time.Minute).Sign(jane.Snapshot())
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		status int
		code   string
	}{
		{name: "missing", status: http.StatusUnauthorized, code: middleware.CodeTokenMissing},
		{name: "expired", token: expired, status: http.StatusUnauthorized, code: middleware.CodeTokenExpired},
		{name: "invalid", token: "abc.def.ghi", status: http.StatusForbidden, code: middleware.CodeTokenInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := env.srv.App.Test(apiRequest(http.MethodGet, "/api/profile", tt.token, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			var body map[string]string
			readJSON(t, resp, &body)
			assert.Equal(t, tt.code, body["code"])
		})
	}

	resp, err := env.srv.App.Test(apiRequest(http.MethodPost, "/api/auth", "", map[string]string{
		"email":    "jane@example.com",
		"password": "wrong-password",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body map[string]string
	readJSON(t, resp, &body)
	assert.Equal(t, "invalid email or password", body["error"])
}

func TestAPI_ProfileAndWishlist(t *testing.T) {
	env := setupApp(t)
	assertRedirect(t, env.browser(t).register("Jane Doe", "jane", "jane@example.com", "password123"), "/me")
	token := env.apiToken(t, "jane@example.com", "password123")

	do := func(req *http.Request) *http.Response {
		resp, err := env.srv.App.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	resp := do(apiRequest(http.MethodGet, "/api/profile", token, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profile map[string]interface{}
	readJSON(t, resp, &profile)
	assert.Equal(t, "jane@example.com", profile["email"])
	assert.NotContains(t, profile, "password")
	assert.Empty(t, resp.Cookies(), "the API never issues a session")

	lamp := &models.Product{Name: "Lamp", Price: 20}
	require.NoError(t, env.products.Create(lamp))

	resp = do(apiRequest(http.MethodPost, "/api/wishlist/"+lamp.ID, token, nil))
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = do(apiRequest(http.MethodPost, "/api/wishlist/"+lamp.ID, token, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var added map[string]interface{}
	readJSON(t, resp, &added)
	assert.Equal(t, false, added["added"])

	resp = do(apiRequest(http.MethodPost, "/api/wishlist/"+uuid.NewString(), token, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(apiRequest(http.MethodGet, "/api/wishlist", token, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []models.Product
	readJSON(t, resp, &items)
	require.Len(t, items, 1)
	assert.Equal(t, lamp.ID, items[0].ID)

	resp = do(apiRequest(http.MethodDelete, "/api/wishlist/"+uuid.NewString(), token, nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var removed map[string]interface{}
	readJSON(t, resp, &removed)
	assert.Equal(t, false, removed["removed"])

	resp = do(apiRequest(http.MethodDelete, "/api/wishlist/"+lamp.ID, token, nil))
	readJSON(t, resp, &removed)
	assert.Equal(t, true, removed["removed"])
}
