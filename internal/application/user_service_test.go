package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parkwise/service-parking/internal/common/auth"
	"github.com/parkwise/service-parking/internal/common/domain"
	"github.com/parkwise/service-parking/internal/repository"
	"github.com/parkwise/service-parking/internal/session"
)

type userFixture struct {
	service   *UserService
	sessions  *session.Store
	publisher *recordingPublisher
	jwt       *auth.JWTManager
}

func newUserFixture(t *testing.T, admins ...string) *userFixture {
	t.Helper()
	db := setupDB(t)
	f := &userFixture{
		sessions:  session.NewStore(10, nil, zap.NewNop()),
		publisher: &recordingPublisher{},
		jwt:       auth.NewJWTManager("test-secret", time.Hour),
	}
	f.service = NewUserService(repository.NewGormUserRepository(db), f.jwt, f.sessions, f.publisher, admins, zap.NewNop())
	return f
}

func (f *userFixture) register(t *testing.T, email string) {
	t.Helper()
	_, err := f.service.Register(context.Background(), RegisterRequest{
		Email:     email,
		Password:  "secret123",
		FullName:  "Tan Ah Kow",
		Country:   "SG",
		VehicleNo: "sgx1234a",
		IUNo:      "1234567890",
	})
	require.NoError(t, err)
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.register(t, "Driver@Example.com")

	res, err := f.service.Login(ctx, "driver@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "driver@example.com", res.Email)
	assert.Equal(t, "SGX1234A", res.VehicleNo)
	assert.Equal(t, string(auth.RoleDriver), res.Role)
	assert.NotEmpty(t, res.Token)

	claims, err := f.jwt.ValidateToken(res.Token)
	require.NoError(t, err)
	sess, ok := f.sessions.Get(claims.SessionID())
	require.True(t, ok, "login opens a session keyed by the token id")
	assert.Equal(t, "SGX1234A", sess.Profile().VehicleNumber)
}

func TestUserService_RegisterRejectsDuplicatesAndWeakPasswords(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.register(t, "driver@example.com")

	_, err := f.service.Register(ctx, RegisterRequest{Email: "driver@example.com", Password: "secret123"})
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	_, err = f.service.Register(ctx, RegisterRequest{Email: "new@example.com", Password: "123"})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = f.service.Register(ctx, RegisterRequest{Password: "secret123"})
	require.Error(t, err)
	assert.Equal(t, MsgEmailRequired, err.Error())
}

func TestUserService_RegisterAlreadyRegisteredMergesDetails(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.register(t, "driver@example.com")

	dto, err := f.service.Register(ctx, RegisterRequest{
		Email:             "driver@example.com",
		FullName:          "New Name",
		AlreadyRegistered: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "New Name", dto.FullName)
	assert.Empty(t, dto.VehicleNo, "merge overwrites with the submitted values")

	_, err = f.service.Login(ctx, "driver@example.com", "secret123")
	assert.NoError(t, err, "password is untouched")

	_, err = f.service.Register(ctx, RegisterRequest{Email: "ghost@example.com", AlreadyRegistered: true})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestUserService_LoginFailures(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.register(t, "driver@example.com")

	_, err := f.service.Login(ctx, "driver@example.com", "wrong-password")
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))

	_, err = f.service.Login(ctx, "nobody@example.com", "secret123")
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))

	_, err = f.service.Login(ctx, "", "")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Zero(t, f.sessions.Len())
}

func TestUserService_LoginPromotesConfiguredAdmins(t *testing.T) {
	f := newUserFixture(t, "Ops@Example.com")
	f.register(t, "ops@example.com")

	res, err := f.service.Login(context.Background(), "ops@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, string(auth.RoleAdmin), res.Role)

	claims, err := f.jwt.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, claims.Role)
}

func TestUserService_Logout(t *testing.T) {
	f := newUserFixture(t)
	f.register(t, "driver@example.com")
	res, err := f.service.Login(context.Background(), "driver@example.com", "secret123")
	require.NoError(t, err)
	claims, err := f.jwt.ValidateToken(res.Token)
	require.NoError(t, err)

	assert.True(t, f.service.Logout(claims.SessionID()))
	assert.False(t, f.service.Logout(claims.SessionID()))
	_, ok := f.sessions.Get(claims.SessionID())
	assert.False(t, ok)
}

func TestUserService_UpdateVehicleRefreshesSessions(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.register(t, "driver@example.com")
	res, err := f.service.Login(ctx, "driver@example.com", "secret123")
	require.NoError(t, err)

	v, err := f.service.UpdateVehicle(ctx, UpdateVehicleRequest{
		Email: "driver@example.com", VehicleNo: "sjk8c", IUNo: "IU-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "SJK8C", v.VehicleNumber)
	assert.Equal(t, "SG", v.Country, "missing country defaults")

	claims, err := f.jwt.ValidateToken(res.Token)
	require.NoError(t, err)
	sess, ok := f.sessions.Get(claims.SessionID())
	require.True(t, ok)
	assert.Equal(t, "SJK8C", sess.Profile().VehicleNumber)

	_, err = f.service.UpdateVehicle(ctx, UpdateVehicleRequest{VehicleNo: "X"})
	require.Error(t, err)
	assert.Equal(t, MsgVehicleEmailRequired, err.Error())

	_, err = f.service.UpdateVehicle(ctx, UpdateVehicleRequest{Email: "ghost@example.com"})
	assert.True(t, domain.IsNotFound(err))
}

func TestUserService_UpdateProfileIsPartial(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.register(t, "driver@example.com")

	phone := "+65 8000 0000"
	dto, err := f.service.UpdateProfile(ctx, "driver@example.com", UpdateProfileRequest{PhoneNumber: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, dto.PhoneNumber)
	assert.Equal(t, "Tan Ah Kow", dto.FullName)

	got, err := f.service.GetProfile(ctx, "driver@example.com")
	require.NoError(t, err)
	assert.Equal(t, phone, got.PhoneNumber)
}

func TestUserService_ResetPasswordByMail(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.register(t, "driver@example.com")

	msg, err := f.service.ResetPassword(ctx, ResetPasswordRequest{Email: "driver@example.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, MsgPasswordResetSent, msg)
	assert.Equal(t, []string{PasswordResetRequested}, f.publisher.types())
	assert.Equal(t, TopicUserEvents, f.publisher.events[0].Topic)

	profile, err := f.service.GetProfile(ctx, "driver@example.com")
	require.NoError(t, err)
	assert.True(t, profile.MustChangePassword)
}

func TestUserService_ResetPasswordMailFailure(t *testing.T) {
	f := newUserFixture(t)
	f.register(t, "driver@example.com")
	f.publisher.err = errors.New("broker down")

	_, err := f.service.ResetPassword(context.Background(), ResetPasswordRequest{Email: "driver@example.com"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResetMailFailed)
	assert.Equal(t, ErrResetMailFailed.Error(), err.Error())
}

func TestUserService_ResetPasswordDirectChange(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()
	f.register(t, "driver@example.com")
	f.register(t, "other@example.com")

	other := &auth.Claims{Email: "other@example.com"}
	_, err := f.service.ResetPassword(ctx, ResetPasswordRequest{Email: "driver@example.com", NewPassword: "newsecret"}, other)
	assert.ErrorIs(t, err, ErrPasswordChangeNotAuthorized)

	_, err = f.service.ResetPassword(ctx, ResetPasswordRequest{Email: "driver@example.com", NewPassword: "newsecret"}, nil)
	assert.ErrorIs(t, err, ErrPasswordChangeNotAuthorized)

	self := &auth.Claims{Email: "Driver@Example.com"}
	msg, err := f.service.ResetPassword(ctx, ResetPasswordRequest{Email: "driver@example.com", NewPassword: "newsecret"}, self)
	require.NoError(t, err)
	assert.Equal(t, MsgPasswordUpdated, msg)
	assert.Empty(t, f.publisher.types(), "a direct change sends no mail")

	_, err = f.service.Login(ctx, "driver@example.com", "newsecret")
	assert.NoError(t, err)
	_, err = f.service.Login(ctx, "driver@example.com", "secret123")
	assert.Error(t, err)
}

func TestUserService_ResetPasswordValidation(t *testing.T) {
	f := newUserFixture(t)
	ctx := context.Background()

	_, err := f.service.ResetPassword(ctx, ResetPasswordRequest{}, nil)
	require.Error(t, err)
	assert.Equal(t, MsgEmailRequired, err.Error())

	_, err = f.service.ResetPassword(ctx, ResetPasswordRequest{Email: "ghost@example.com"}, nil)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.Equal(t, "User not found", err.Error())
}
