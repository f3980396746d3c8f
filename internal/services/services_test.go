package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prostay/apiserver/internal/mq"
	"github.com/prostay/apiserver/internal/store"
	"github.com/prostay/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingNotifier struct {
	events []mq.Event
}

func (r *recordingNotifier) Notify(_ context.Context, event mq.Event) {
	r.events = append(r.events, event)
}

type stubImages struct {
	saved   []string
	deleted []string
	err     error
}

func (s *stubImages) SaveImage(_ context.Context, prefix string, _ []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	key := prefix + "/image.png"
	s.saved = append(s.saved, key)
	return key, nil
}

func (s *stubImages) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

type stubUserRepo struct {
	created types.User
	err     error
}

func (s *stubUserRepo) GetByID(context.Context, int) (types.User, error) {
	return types.User{}, store.ErrNotFound
}

func (s *stubUserRepo) GetByEmail(context.Context, string) (types.User, error) {
	return types.User{}, store.ErrNotFound
}

func (s *stubUserRepo) List(context.Context, types.Role) ([]types.User, error) { return nil, nil }
func (s *stubUserRepo) Count(context.Context) (int, error) { return 0, nil }

func (s *stubUserRepo) CountByRole(context.Context) ([]types.RoleCount, error) { return nil, nil }

func (s *stubUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	if s.err != nil {
		return types.User{}, s.err
	}
	user.ID = 1
	s.created = user
	return user, nil
}

func newTestUserService(repo UserRepository, images ImageStore) *UserService {
	svc := NewUserService(repo, images)
	svc.hashCost = bcrypt.MinCost
	return svc
}

func TestRegister(t *testing.T) {
	repo := &stubUserRepo{}
	images := &stubImages{}
	svc := newTestUserService(repo, images)

	user, err := svc.Register(context.Background(), RegisterInput{
		Name:     " Alice ",
		Email:    "A@B.com",
		Password: "secret",
		Role:     " Landlord ",
		Photo:    []byte("png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "a@b.com", user.Email)
	assert.Equal(t, types.RoleLandlord, user.Role)
	assert.Equal(t, "users/image.png", user.Photo)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.created.PasswordHash), []byte("secret")))
}

func TestRegisterRejects(t *testing.T) {
	svc := newTestUserService(&stubUserRepo{}, nil)
	cases := map[string]RegisterInput{
		"admin role":     {Name: "A", Email: "a@b.com", Password: "secret", Role: "admin"},
		"unknown role":   {Name: "A", Email: "a@b.com", Password: "secret", Role: "owner"},
		"bad email":      {Name: "A", Email: "nope", Password: "secret", Role: "tenant"},
		"short password": {Name: "A", Email: "a@b.com", Password: "abc", Role: "tenant"},
		"missing name":   {Email: "a@b.com", Password: "secret", Role: "tenant"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), in)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRegisterPhotoWithoutStorage(t *testing.T) {
	svc := newTestUserService(&stubUserRepo{}, nil)
	_, err := svc.Register(context.Background(), RegisterInput{
		Name: "A", Email: "a@b.com", Password: "secret", Role: "tenant", Photo: []byte("png"),
	})
	require.ErrorIs(t, err, ErrUploadsDisabled)
}

func TestRegisterConflictRemovesPhoto(t *testing.T) {
	images := &stubImages{}
	svc := newTestUserService(&stubUserRepo{err: store.ErrConflict}, images)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name: "A", Email: "a@b.com", Password: "secret", Role: "tenant", Photo: []byte("png"),
	})
	require.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, []string{"users/image.png"}, images.deleted)
}

type stubPropertyRepo struct {
	PropertyRepository
	property     types.Property
	statusUpdate types.PropertyStatus
	updated      types.Property
	deleted      int
}

func (s *stubPropertyRepo) Get(_ context.Context, id int) (types.Property, error) {
	if id != s.property.ID {
		return types.Property{}, store.ErrNotFound
	}
	return s.property, nil
}

func (s *stubPropertyRepo) Create(_ context.Context, property types.Property) (types.Property, error) {
	property.ID = 99
	return property, nil
}

func (s *stubPropertyRepo) Update(_ context.Context, property types.Property) (types.Property, error) {
	s.updated = property
	return property, nil
}

func (s *stubPropertyRepo) UpdateStatus(_ context.Context, _ int, status types.PropertyStatus) error {
	s.statusUpdate = status
	return nil
}

func (s *stubPropertyRepo) Delete(_ context.Context, id int) error {
	s.deleted = id
	return nil
}

func validPropertyInput() PropertyInput {
	return PropertyInput{Title: "Loft", Price: 1200, Bedrooms: 1, Bathrooms: 1, Type: "Apartment", Address: "1 Main St", City: "Lisbon", Description: "Bright loft"}
}

func TestPropertyCreate(t *testing.T) {
	svc := NewPropertyService(&stubPropertyRepo{}, nil, nil)

	property, err := svc.Create(context.Background(), Actor{ID: 5, Role: types.RoleLandlord}, validPropertyInput())
	require.NoError(t, err)
	assert.Equal(t, 5, property.LandlordID)
	assert.Equal(t, types.PropertyAvailable, property.Status)
	assert.Equal(t, "apartment", property.Type)

	_, err = svc.Create(context.Background(), Actor{ID: 5, Role: types.RoleTenant}, validPropertyInput())
	require.ErrorIs(t, err, ErrForbidden)

	bad := validPropertyInput()
	bad.Price = -1
	_, err = svc.Create(context.Background(), Actor{ID: 5, Role: types.RoleLandlord}, bad)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestPropertyOwnership(t *testing.T) {
	repo := &stubPropertyRepo{property: types.Property{ID: 7, LandlordID: 5, Status: types.PropertyAvailable}}
	events := &recordingNotifier{}
	svc := NewPropertyService(repo, nil, events)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, Actor{ID: 6, Role: types.RoleLandlord}, 7, "rented")
	require.ErrorIs(t, err, ErrForbidden)
	_, err = svc.UpdateStatus(ctx, Actor{ID: 5, Role: types.RoleTenant}, 7, "rented")
	require.ErrorIs(t, err, ErrForbidden)

	status, err := svc.UpdateStatus(ctx, Actor{ID: 5, Role: types.RoleLandlord}, 7, "Rented")
	require.NoError(t, err)
	assert.Equal(t, types.PropertyRented, status)
	assert.Equal(t, types.PropertyRented, repo.statusUpdate)
	require.Len(t, events.events, 1)
	assert.Equal(t, mq.EventPropertyStatusChanged, events.events[0].Type)

	_, err = svc.UpdateStatus(ctx, Actor{ID: 5, Role: types.RoleLandlord}, 7, "sold")
	require.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, svc.Delete(ctx, Actor{ID: 1, Role: types.RoleAdmin}, 7))
	assert.Equal(t, 7, repo.deleted)

	err = svc.Delete(ctx, Actor{ID: 1, Role: types.RoleAdmin}, 8)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestPropertyUpdateReplacesImage(t *testing.T) {
	repo := &stubPropertyRepo{property: types.Property{ID: 7, LandlordID: 5, Image: "properties/old.png"}}
	images := &stubImages{}
	svc := NewPropertyService(repo, images, nil)

	in := validPropertyInput()
	in.Image = []byte("png")
	updated, err := svc.Update(context.Background(), Actor{ID: 5, Role: types.RoleLandlord}, 7, in)
	require.NoError(t, err)
	assert.Equal(t, "properties/image.png", updated.Image)
	assert.Equal(t, []string{"properties/old.png"}, images.deleted)

	updated, err = svc.Update(context.Background(), Actor{ID: 5, Role: types.RoleLandlord}, 7, validPropertyInput())
	require.NoError(t, err)
	assert.Equal(t, "properties/old.png", updated.Image)
}

type stubFavoriteRepo struct {
	liked map[[2]int]bool
}

func (s *stubFavoriteRepo) Toggle(_ context.Context, userID, propertyID int) (bool, error) {
	key := [2]int{userID, propertyID}
	s.liked[key] = !s.liked[key]
	return s.liked[key], nil
}

func TestFavoriteToggle(t *testing.T) {
	svc := NewFavoriteService(&stubFavoriteRepo{liked: map[[2]int]bool{}}, nil)
	ctx := context.Background()

	liked, err := svc.Toggle(ctx, 1, 42)
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = svc.Toggle(ctx, 1, 42)
	require.NoError(t, err)
	assert.False(t, liked)

	_, err = svc.Toggle(ctx, 1, 0)
	require.ErrorIs(t, err, ErrInvalidInput)
}

type stubBookingRepo struct {
	BookingRepository
	created types.Booking
	booking types.Booking
	err     error
}

func (s *stubBookingRepo) Create(_ context.Context, booking types.Booking) (types.Booking, types.Payment, error) {
	if s.err != nil {
		return types.Booking{}, types.Payment{}, s.err
	}
	booking.ID = 11
	s.created = booking
	return booking, types.Payment{ID: 12, BookingID: 11, Status: types.PaymentUnpaid}, nil
}

func (s *stubBookingRepo) Get(_ context.Context, id int) (types.Booking, error) {
	if id != s.booking.ID {
		return types.Booking{}, store.ErrNotFound
	}
	return s.booking, nil
}

func (s *stubBookingRepo) UpdateStatus(context.Context, int, types.BookingStatus) error {
	return nil
}

func TestBook(t *testing.T) {
	properties := &stubPropertyRepo{property: types.Property{ID: 42, LandlordID: 5, Status: types.PropertyAvailable}}
	repo := &stubBookingRepo{}
	events := &recordingNotifier{}
	svc := NewBookingService(repo, properties, events)

	booking, payment, err := svc.Book(context.Background(), 3, 42)
	require.NoError(t, err)
	assert.Equal(t, 5, booking.LandlordID)
	assert.Equal(t, 3, booking.UserID)
	assert.Equal(t, types.BookingPending, repo.created.Status)
	assert.Equal(t, 11, payment.BookingID)
	require.Len(t, events.events, 1)
	assert.Equal(t, mq.EventBookingCreated, events.events[0].Type)

	_, _, err = svc.Book(context.Background(), 3, 41)
	require.ErrorIs(t, err, store.ErrNotFound)

	properties.property.Status = types.PropertyRented
	_, _, err = svc.Book(context.Background(), 3, 42)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestBookConflict(t *testing.T) {
	properties := &stubPropertyRepo{property: types.Property{ID: 42, LandlordID: 5, Status: types.PropertyAvailable}}
	events := &recordingNotifier{}
	svc := NewBookingService(&stubBookingRepo{err: store.ErrConflict}, properties, events)

	_, _, err := svc.Book(context.Background(), 3, 42)
	require.ErrorIs(t, err, store.ErrConflict)
	assert.Empty(t, events.events)
}

func TestBookingUpdateStatus(t *testing.T) {
	repo := &stubBookingRepo{booking: types.Booking{ID: 11, LandlordID: 5, Status: types.BookingPending}}
	svc := NewBookingService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, Actor{ID: 6, Role: types.RoleLandlord}, 11, "approved")
	require.ErrorIs(t, err, ErrForbidden)

	status, err := svc.UpdateStatus(ctx, Actor{ID: 5, Role: types.RoleLandlord}, 11, "approved")
	require.NoError(t, err)
	assert.Equal(t, types.BookingApproved, status)

	_, err = svc.UpdateStatus(ctx, Actor{ID: 1, Role: types.RoleAdmin}, 11, "maybe")
	require.ErrorIs(t, err, ErrInvalidInput)
}

type stubPaymentRepo struct {
	PaymentRepository
	got types.Payment
}

func (s *stubPaymentRepo) UpdateForTenant(_ context.Context, payment types.Payment) (types.Payment, error) {
	if payment.PropertyID != 42 {
		return types.Payment{}, store.ErrNotFound
	}
	s.got = payment
	payment.ID = 12
	payment.BookingID = 11
	return payment, nil
}

func TestPay(t *testing.T) {
	repo := &stubPaymentRepo{}
	events := &recordingNotifier{}
	svc := NewPaymentService(repo, events)
	ctx := context.Background()

	payment, err := svc.Pay(ctx, 3, PaymentInput{PropertyID: 42, Amount: 1200, AccountNo: " 123 "})
	require.NoError(t, err)
	assert.Equal(t, types.PaymentPaid, payment.Status)
	assert.Equal(t, "123", repo.got.AccountNo)
	assert.Equal(t, 3, repo.got.UserID)
	require.Len(t, events.events, 1)
	assert.Equal(t, mq.EventPaymentUpdated, events.events[0].Type)

	_, err = svc.Pay(ctx, 3, PaymentInput{PropertyID: 41, Amount: 1, AccountNo: "123"})
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Pay(ctx, 3, PaymentInput{PropertyID: 42, Amount: -1, AccountNo: "123"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Pay(ctx, 3, PaymentInput{PropertyID: 42, Amount: 1, AccountNo: "123", Status: "refunded"})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestPayRejectsBlankAccountNumber(t *testing.T) {
	repo := &stubPaymentRepo{}
	events := &recordingNotifier{}
	svc := NewPaymentService(repo, events)

	for _, accountNo := range []string{"", " \t "} {
		_, err := svc.Pay(context.Background(), 3, PaymentInput{PropertyID: 42, Amount: 1200, AccountNo: accountNo})
		require.ErrorIs(t, err, ErrInvalidInput)
		assert.Contains(t, err.Error(), "account_no")
	}
	assert.Zero(t, repo.got)
	assert.Empty(t, events.events)
}

type fixedCounter struct {
	total      int
	byLandlord int
	err        error
}

func (f fixedCounter) Count(context.Context) (int, error) { return f.total, f.err }

func (f fixedCounter) CountByLandlord(context.Context, int) (int, error) {
	return f.byLandlord, f.err
}

func TestStats(t *testing.T) {
	svc := NewStatsService(fixedCounter{total: 10}, fixedCounter{total: 8, byLandlord: 2}, fixedCounter{total: 4, byLandlord: 1}, fixedCounter{total: 3, byLandlord: 1})

	landlord, err := svc.Landlord(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, types.LandlordStats{Properties: 2, Booked: 1, Payments: 1}, landlord)

	admin, err := svc.Admin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.AdminStats{Users: 10, Properties: 8, Bookings: 4, Payments: 3}, admin)

	failing := NewStatsService(fixedCounter{err: errors.New("db down")}, fixedCounter{}, fixedCounter{}, fixedCounter{})
	_, err = failing.Admin(context.Background())
	require.Error(t, err)
}
