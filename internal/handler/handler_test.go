package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parkwise/service-parking/internal/application"
	"github.com/parkwise/service-parking/internal/common/auth"
	"github.com/parkwise/service-parking/internal/common/database"
	"github.com/parkwise/service-parking/internal/common/kafka"
	facilityDomain "github.com/parkwise/service-parking/internal/domain/facility"
	"github.com/parkwise/service-parking/internal/realtime"
	"github.com/parkwise/service-parking/internal/repository"
	"github.com/parkwise/service-parking/internal/session"
)

var sgt = time.FixedZone("SGT", 8*60*60)

// morning is the fixed "now" of every handler test.
var morning = time.Date(2024, 5, 1, 10, 30, 0, 0, sgt)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router       *gin.Engine
	jwt          *auth.JWTManager
	sessions     *session.Store
	availability *application.AvailabilityService
	facilities   *application.FacilityService
	users        *application.UserService
}

func newTestEnv(t *testing.T, admins ...string) *testEnv {
	t.Helper()
	db, err := database.OpenSQLite(fmt.Sprintf("file:handler_%s?mode=memory&cache=shared", uuid.New().String()))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(repository.Models()...))

	log := zap.NewNop()
	publisher := kafka.NopPublisher{Logger: log}
	hub := realtime.NewHub(log)

	env := &testEnv{
		jwt:      auth.NewJWTManager("test-secret", time.Hour),
		sessions: session.NewStore(50, nil, log),
	}
	env.availability = application.NewAvailabilityService(repository.NewGormAvailabilityRepository(db), hub, log)
	env.facilities = application.NewFacilityService(repository.NewGormFacilityRepository(db), env.availability, log)
	bookings := application.NewBookingService(repository.NewGormBookingRepository(db), env.availability, publisher, log,
		application.WithClock(func() time.Time { return morning }), application.WithLocation(sgt))
	env.users = application.NewUserService(repository.NewGormUserRepository(db), env.jwt, env.sessions, publisher, admins, log)

	r := gin.New()
	NewLegacyHandler(bookings, env.users, log).RegisterRoutes(&r.RouterGroup, env.jwt)
	NewBookingHandler(bookings, env.sessions).RegisterRoutes(&r.RouterGroup, env.jwt)
	NewFacilityHandler(env.facilities, env.availability).RegisterRoutes(&r.RouterGroup, env.jwt)
	NewProfileHandler(env.users, env.sessions).RegisterRoutes(&r.RouterGroup, env.jwt)
	NewAdminBookingHandler(bookings, env.facilities, env.sessions, hub).RegisterRoutes(&r.RouterGroup, env.jwt)
	env.router = r
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// signUp registers email through /register and logs in through /login.
func (e *testEnv) signUp(t *testing.T, email string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/register", map[string]any{
		"email":     email,
		"password":  "secret123",
		"fullName":  "Tan Ah Kow",
		"vehicleNo": "SGX1234A",
		"iuNo":      "1234567890",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/login", map[string]string{"email": email, "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func (e *testEnv) seedFacility(t *testing.T, carParkNo string, lots int) {
	t.Helper()
	ctx := context.Background()
	_, _, err := e.facilities.Import(ctx, []application.FacilityImport{{
		CarParkNo: carParkNo,
		Address:   "Blk 270/271 Albert Centre",
		Location:  facilityDomain.Coordinates{Lat: 1.3010, Lon: 103.8545},
	}})
	require.NoError(t, err)
	require.NoError(t, e.availability.Put(ctx, facilityDomain.Availability{
		CarParkNo: carParkNo, TotalLots: 10, LotsAvailable: lots, LotType: "C",
	}))
}

// envelope decodes the v1 response body.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}
