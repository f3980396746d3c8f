package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prostay/apiserver/internal/auth"
	"github.com/prostay/apiserver/internal/services"
	"github.com/prostay/apiserver/internal/storage"
	"github.com/prostay/apiserver/internal/store"
	"github.com/prostay/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memUsers struct {
	mu     sync.Mutex
	users  []types.User
	nextID int
}

func (m *memUsers) GetByID(_ context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) List(_ context.Context, role types.Role) ([]types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.User
	for _, u := range m.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memUsers) CountByRole(_ context.Context) ([]types.RoleCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make([]types.RoleCount, 0, len(types.Roles))
	for _, role := range types.Roles {
		c := types.RoleCount{Role: role}
		for _, u := range m.users {
			if u.Role == role {
				c.Count++
			}
		}
		counts = append(counts, c)
	}
	return counts, nil
}

func (m *memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	m.nextID++
	user.ID = 100 + m.nextID
	m.users = append(m.users, user)
	return user, nil
}

type memFavorites struct {
	mu    sync.Mutex
	liked map[[2]int]bool
}

func (m *memFavorites) Toggle(_ context.Context, userID, propertyID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if propertyID == 404 {
		return false, store.ErrNotFound
	}
	if m.liked == nil {
		m.liked = map[[2]int]bool{}
	}
	key := [2]int{userID, propertyID}
	m.liked[key] = !m.liked[key]
	return m.liked[key], nil
}

func (m *memFavorites) ListFavorites(_ context.Context, userID int) ([]types.PropertyListItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.PropertyListItem
	for key, liked := range m.liked {
		if liked && key[0] == userID {
			out = append(out, types.PropertyListItem{ID: key[1]})
		}
	}
	return out, nil
}

type memProperties map[int]types.Property

func (m memProperties) Get(_ context.Context, id int) (types.Property, error) {
	p, ok := m[id]
	if !ok {
		return types.Property{}, store.ErrNotFound
	}
	return p, nil
}

type memListings struct {
	services.PropertyRepository
	mu      sync.Mutex
	byID    map[int]types.Property
	created []types.Property
	updated []types.Property
}

func (m *memListings) Get(_ context.Context, id int) (types.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return types.Property{}, store.ErrNotFound
	}
	return p, nil
}

func (m *memListings) Create(_ context.Context, property types.Property) (types.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	property.ID = 100 + len(m.created)
	m.created = append(m.created, property)
	return property, nil
}

func (m *memListings) Update(_ context.Context, property types.Property) (types.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updated = append(m.updated, property)
	m.byID[property.ID] = property
	return property, nil
}

type memPayments struct {
	services.PaymentRepository
	mu   sync.Mutex
	paid []types.Payment
}

func (m *memPayments) UpdateForTenant(_ context.Context, payment types.Payment) (types.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if payment.PropertyID != 7 || payment.UserID != 1 {
		return types.Payment{}, store.ErrNotFound
	}
	payment.ID = 21
	payment.BookingID = 11
	m.paid = append(m.paid, payment)
	return payment, nil
}

type memBookings struct {
	mu       sync.Mutex
	bookings []types.Booking
}

func (m *memBookings) Create(_ context.Context, booking types.Booking) (types.Booking, types.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.UserID == booking.UserID && b.PropertyID == booking.PropertyID {
			return types.Booking{}, types.Payment{}, store.ErrConflict
		}
	}
	booking.ID = len(m.bookings) + 1
	m.bookings = append(m.bookings, booking)
	return booking, types.Payment{
		ID:         booking.ID,
		BookingID:  booking.ID,
		PropertyID: booking.PropertyID,
		LandlordID: booking.LandlordID,
		UserID:     booking.UserID,
		Status:     types.PaymentUnpaid,
	}, nil
}

func (m *memBookings) Get(_ context.Context, id int) (types.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return types.Booking{}, store.ErrNotFound
}

func (m *memBookings) UpdateStatus(_ context.Context, id int, status types.BookingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.bookings {
		if m.bookings[i].ID == id {
			m.bookings[i].Status = status
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memBookings) ListByTenant(context.Context, int) ([]types.BookingView, error) {
	return nil, nil
}

func (m *memBookings) ListByLandlord(context.Context, int) ([]types.BookingView, error) {
	return nil, nil
}

func (m *memBookings) ListAll(context.Context) ([]types.BookingView, error) {
	return nil, nil
}

func (m *memBookings) CountByTenant(_ context.Context, userID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.bookings {
		if b.UserID == userID {
			n++
		}
	}
	return n, nil
}

type testEnv struct {
	router   *chi.Mux
	auth     *auth.Authenticator
	users    *memUsers
	bookings *memBookings
	listings *memListings
	payments *memPayments
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &memUsers{users: []types.User{
		{ID: 1, Name: "Ada", Email: "a@b.com", Role: types.RoleTenant, PasswordHash: string(hash)},
		{ID: 2, Name: "Lee", Email: "landlord@b.com", Role: types.RoleLandlord, PasswordHash: string(hash)},
		{ID: 3, Name: "Root", Email: "admin@b.com", Role: types.RoleAdmin, PasswordHash: string(hash)},
	}}
	properties := memProperties{
		7: {ID: 7, Title: "Loft", LandlordID: 2, Status: types.PropertyAvailable},
		8: {ID: 8, Title: "Cabin", LandlordID: 2, Status: types.PropertyRented},
	}
	favorites := &memFavorites{}
	bookings := &memBookings{}
	listings := &memListings{byID: map[int]types.Property{
		7: {ID: 7, Title: "Loft", Price: 1200, Bedrooms: 1, Bathrooms: 1, Description: "Bright loft", LandlordID: 2, Status: types.PropertyAvailable},
	}}
	payments := &memPayments{}

	userService := services.NewUserService(users, nil)
	authenticator, err := auth.New(userService, auth.Config{Secret: "test-secret"})
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, authenticator, userService, 0)
	})
	router.Route("/favorites", func(r chi.Router) {
		FavoriteRouter(r, services.NewFavoriteService(favorites, favorites), authenticator)
	})
	router.Route("/bookings", func(r chi.Router) {
		BookingRouter(r, services.NewBookingService(bookings, properties, nil), authenticator)
	})
	router.Route("/users", func(r chi.Router) {
		UserRouter(r, userService, authenticator)
	})
	router.Route("/properties", func(r chi.Router) {
		PropertyRouter(r, services.NewPropertyService(listings, nil, nil), authenticator)
	})
	router.Route("/payments", func(r chi.Router) {
		PaymentRouter(r, services.NewPaymentService(payments, nil), authenticator)
	})

	return &testEnv{router: router, auth: authenticator, users: users, bookings: bookings, listings: listings, payments: payments}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.DefaultCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) doForm(t *testing.T, method, path string, fields map[string]string, token string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.DefaultCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) tokenFor(t *testing.T, id int) string {
	t.Helper()
	user, err := e.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	credential, err := e.auth.Sign(user)
	require.NoError(t, err)
	return credential.Token
}

func errorReason(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.DefaultCookieName {
			return c
		}
	}
	return nil
}

func TestLoginSuccess(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/login", LoginRequest{Email: "a@b.com", Password: "secret"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	var body AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, cookie.Value, body.Token)
	assert.Equal(t, 1, body.User.ID)
	assert.Equal(t, types.RoleTenant, body.User.Role)

	identity, err := env.auth.Verify(body.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", identity.Email)
}

func TestLoginEmailIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/login", LoginRequest{Email: " A@B.com ", Password: "secret"}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		req      LoginRequest
		expected int
		reason   string
	}{
		{"wrong password", LoginRequest{Email: "a@b.com", Password: "wrong"}, http.StatusUnauthorized, "invalid_credentials"},
		{"unknown email", LoginRequest{Email: "nobody@b.com", Password: "secret"}, http.StatusUnauthorized, "user_not_found"},
		{"missing password", LoginRequest{Email: "a@b.com"}, http.StatusBadRequest, "invalid_input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/auth/login", tt.req, "")
			assert.Equal(t, tt.expected, rec.Code)
			assert.Equal(t, tt.reason, errorReason(t, rec))
			assert.Nil(t, sessionCookie(rec))
		})
	}
}

func TestLoginMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorReason(t, rec))
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/register", RegisterRequest{
		Name:     "New Tenant",
		Email:    "New@Example.com",
		Password: "hunter22",
		Role:     "tenant",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, sessionCookie(rec))

	var body AuthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "new@example.com", body.User.Email)
	assert.Equal(t, types.RoleTenant, body.User.Role)

	rec = env.do(t, http.MethodPost, "/auth/register", RegisterRequest{
		Name:     "Again",
		Email:    "new@example.com",
		Password: "hunter22",
		Role:     "tenant",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email_taken", errorReason(t, rec))
}

func TestRegisterRejectsAdmin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/register", RegisterRequest{
		Name:     "Mallory",
		Email:    "m@b.com",
		Password: "hunter22",
		Role:     "admin",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", errorReason(t, rec))
}

func TestRoleRoutes(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.tokenFor(t, 1)

	rec := env.do(t, http.MethodGet, "/auth/tenant", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing_token", errorReason(t, rec))

	rec = env.do(t, http.MethodGet, "/auth/tenant", nil, tenant)
	require.Equal(t, http.StatusOK, rec.Code)
	var body RoleCheckResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, types.RoleTenant, body.Role)
	assert.Equal(t, 1, body.ID)

	rec = env.do(t, http.MethodGet, "/auth/admin", nil, tenant)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", errorReason(t, rec))

	rec = env.do(t, http.MethodGet, "/auth/landlord", nil, "not-a-token")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "invalid_or_expired_token", errorReason(t, rec))
}

func TestMeAndLogout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/auth/me", nil, env.tokenFor(t, 2))
	require.Equal(t, http.StatusOK, rec.Code)
	var user types.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&user))
	assert.Equal(t, "landlord@b.com", user.Email)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = env.do(t, http.MethodPost, "/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestFavoriteToggle(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.tokenFor(t, 1)

	for _, expected := range []bool{true, false, true} {
		rec := env.do(t, http.MethodPost, "/favorites/toggle", ToggleFavoriteRequest{PropertyID: 42}, tenant)
		require.Equal(t, http.StatusOK, rec.Code)

		var body ToggleFavoriteResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.True(t, body.Success)
		assert.Equal(t, expected, body.Liked)
	}

	rec := env.do(t, http.MethodGet, "/favorites", nil, tenant)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []types.PropertyListItem
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, 42, items[0].ID)
	assert.True(t, items[0].Liked)
}

func TestFavoriteToggleErrors(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.tokenFor(t, 1)

	rec := env.do(t, http.MethodPost, "/favorites/toggle", ToggleFavoriteRequest{PropertyID: 42}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/favorites/toggle", ToggleFavoriteRequest{PropertyID: 404}, tenant)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/favorites/toggle", map[string]any{"property_id": 0}, tenant)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBooking(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.tokenFor(t, 1)

	rec := env.do(t, http.MethodPost, "/bookings", CreateBookingRequest{PropertyID: 7}, tenant)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body CreateBookingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 1, body.Booking.UserID)
	assert.Equal(t, 2, body.Booking.LandlordID)
	assert.Equal(t, types.BookingPending, body.Booking.Status)
	assert.Equal(t, body.Booking.ID, body.Payment.BookingID)

	rec = env.do(t, http.MethodPost, "/bookings", CreateBookingRequest{PropertyID: 7}, tenant)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_booked", errorReason(t, rec))

	rec = env.do(t, http.MethodPost, "/bookings", CreateBookingRequest{PropertyID: 8}, tenant)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/bookings", CreateBookingRequest{PropertyID: 9}, tenant)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/bookings/mine/count", nil, tenant)
	require.Equal(t, http.StatusOK, rec.Code)
	var count CountResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&count))
	assert.Equal(t, 1, count["bookings"])
}

func TestCreateBookingRequiresTenant(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/bookings", CreateBookingRequest{PropertyID: 7}, env.tokenFor(t, 2))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, env.bookings.bookings)
}

func TestUpdateBookingStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/bookings", CreateBookingRequest{PropertyID: 7}, env.tokenFor(t, 1))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPatch, "/bookings/1/status", BookingStatusRequest{Status: "approved"}, env.tokenFor(t, 1))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPatch, "/bookings/1/status", BookingStatusRequest{Status: "bogus"}, env.tokenFor(t, 2))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, "/bookings/1/status", BookingStatusRequest{Status: "approved"}, env.tokenFor(t, 2))
	require.Equal(t, http.StatusOK, rec.Code)
	var body BookingStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, types.BookingApproved, body.Status)

	rec = env.do(t, http.MethodPatch, "/bookings/abc/status", BookingStatusRequest{Status: "approved"}, env.tokenFor(t, 3))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func listingForm() map[string]string {
	return map[string]string{
		formFieldTitle:       "Loft",
		formFieldPrice:       "1500",
		formFieldBedrooms:    "2",
		formFieldBathrooms:   "1",
		formFieldType:        "apartment",
		formFieldAddress:     "1 Main St",
		formFieldCity:        "Lisbon",
		formFieldDescription: "Bright loft near the river",
	}
}

func TestUpdatePropertyRequiresEveryField(t *testing.T) {
	env := newTestEnv(t)
	landlord := env.tokenFor(t, 2)

	for _, field := range []string{formFieldTitle, formFieldPrice, formFieldBedrooms, formFieldBathrooms, formFieldType, formFieldAddress, formFieldCity, formFieldDescription} {
		t.Run("missing "+field, func(t *testing.T) {
			form := listingForm()
			delete(form, field)
			rec := env.doForm(t, http.MethodPut, "/properties/7", form, landlord)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid_input", errorReason(t, rec))

			form = listingForm()
			form[field] = "  "
			rec = env.doForm(t, http.MethodPut, "/properties/7", form, landlord)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, env.listings.updated)

	stored, err := env.listings.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.EqualValues(t, 1200, stored.Price)
	assert.Equal(t, "Bright loft", stored.Description)

	form := listingForm()
	form[formFieldBedrooms] = "two"
	rec := env.doForm(t, http.MethodPut, "/properties/7", form, landlord)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.listings.updated)

	rec = env.doForm(t, http.MethodPut, "/properties/7", listingForm(), landlord)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.listings.updated, 1)
	assert.EqualValues(t, 1500, env.listings.updated[0].Price)
	assert.Equal(t, 2, env.listings.updated[0].Bedrooms)
	assert.Equal(t, "Bright loft near the river", env.listings.updated[0].Description)
}

func TestCreatePropertyRequiresEveryField(t *testing.T) {
	env := newTestEnv(t)
	landlord := env.tokenFor(t, 2)

	form := listingForm()
	delete(form, formFieldPrice)
	rec := env.doForm(t, http.MethodPost, "/properties", form, landlord)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.listings.created)

	rec = env.doForm(t, http.MethodPost, "/properties", listingForm(), landlord)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, env.listings.created, 1)
	assert.Equal(t, 2, env.listings.created[0].LandlordID)
	assert.EqualValues(t, 1500, env.listings.created[0].Price)
}

func TestPayRequiresAccountNumber(t *testing.T) {
	env := newTestEnv(t)
	tenant := env.tokenFor(t, 1)

	for _, accountNo := range []string{"", "   "} {
		rec := env.do(t, http.MethodPut, "/payments", PaymentRequest{PropertyID: 7, Amount: 1200, AccountNo: accountNo}, tenant)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "account_no %q", accountNo)
		assert.Equal(t, "invalid_input", errorReason(t, rec))
	}
	rec := env.do(t, http.MethodPut, "/payments", map[string]any{"property_id": 7, "amount": 1200}, tenant)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.payments.paid)

	rec = env.do(t, http.MethodPut, "/payments", PaymentRequest{PropertyID: 7, Amount: 1200, AccountNo: "0123-4567"}, tenant)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, env.payments.paid, 1)
	assert.Equal(t, "0123-4567", env.payments.paid[0].AccountNo)
	assert.Equal(t, types.PaymentPaid, env.payments.paid[0].Status)
}

func TestUserDirectoryIsAdminOnly(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/users", nil, env.tokenFor(t, 1))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/users?role=landlord", nil, env.tokenFor(t, 3))
	require.Equal(t, http.StatusOK, rec.Code)
	var users []types.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&users))
	require.Len(t, users, 1)
	assert.Equal(t, 2, users[0].ID)

	rec = env.do(t, http.MethodGet, "/users?role=superuser", nil, env.tokenFor(t, 3))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/users/role-counts", nil, env.tokenFor(t, 3))
	require.Equal(t, http.StatusOK, rec.Code)
	var counts []types.RoleCount
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&counts))
	assert.Len(t, counts, len(types.Roles))
}

type fakeOpener map[string]string

func (f fakeOpener) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	if strings.Contains(key, "..") {
		return nil, "", storage.ErrInvalidKey
	}
	data, ok := f[key]
	if !ok {
		return nil, "", storage.ErrObjectNotFound
	}
	return io.NopCloser(strings.NewReader(data)), "image/png", nil
}

func TestImageRouter(t *testing.T) {
	router := chi.NewRouter()
	router.Route("/images", func(r chi.Router) {
		ImageRouter(r, fakeOpener{"properties/a.png": "png-bytes"})
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/properties/a.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", rec.Body.String())

	for _, path := range []string{"/images/properties/missing.png", "/images/users/..%2Fx.png"} {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	Healthz(fakePinger{})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	Healthz(fakePinger{err: errors.New("down")})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
