package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flight-booking/internal/amadeus"
	"github.com/iliyamo/flight-booking/internal/apperr"
	"github.com/iliyamo/flight-booking/internal/logger"
	"github.com/iliyamo/flight-booking/internal/middleware"
	"github.com/iliyamo/flight-booking/internal/model"
	"github.com/iliyamo/flight-booking/internal/repository"
	"github.com/iliyamo/flight-booking/internal/search"
	"github.com/iliyamo/flight-booking/internal/service"
	"github.com/iliyamo/flight-booking/internal/utils"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// as authenticates every request as uid; zero leaves it anonymous.
func as(uid uint64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if uid > 0 {
				c.Set(middleware.UserIDKey, uid)
			}
			return next(c)
		}
	}
}

func call(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

type fakeSearcher struct {
	gotSearch search.QueryInput
	gotOffers search.QueryInput
	gotStatus []string
	result    service.SearchResult
	status    []json.RawMessage
	err       error
}

func (f *fakeSearcher) Search(_ context.Context, in search.QueryInput) (service.SearchResult, error) {
	f.gotSearch = in
	return f.result, f.err
}

func (f *fakeSearcher) Offers(_ context.Context, in search.QueryInput) ([]model.NormalizedFlight, error) {
	f.gotOffers = in
	return f.result.Results, f.err
}

func (f *fakeSearcher) FlightStatus(_ context.Context, carrier, number, date string) ([]json.RawMessage, error) {
	f.gotStatus = []string{carrier, number, date}
	return f.status, f.err
}

func flightServer(f *fakeSearcher) *echo.Echo {
	e := echo.New()
	h := NewFlightHandler(f, logger.NewNop())
	e.GET("/api/flights/search", h.Search)
	e.GET("/api/flights/status", h.Status)
	e.GET("/api/amadeus/offers", h.Offers)
	return e
}

func TestFlightSearchMapsQueryParams(t *testing.T) {
	f := &fakeSearcher{result: service.SearchResult{
		FromCache: true,
		Results:   []model.NormalizedFlight{{Provider: model.ProviderAmadeusOffer, DepIata: "DEL", ArrIata: "BOM"}},
	}}
	rec, env := call(t, flightServer(f), http.MethodGet,
		"/api/flights/search?depIata=del&arrIata=bom&date=2026-11-01&adults=2&travelClass=business&limit=5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, search.QueryInput{
		Origin: "del", Destination: "bom", Date: "2026-11-01",
		Adults: "2", TravelClass: "business", Max: "5",
	}, f.gotSearch)

	var data service.SearchResult
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.FromCache)
	require.Len(t, data.Results, 1)
	assert.Equal(t, "BOM", data.Results[0].ArrIata)
}

func TestFlightErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", apperr.Invalid("origin and destination are required"), http.StatusBadRequest, "origin and destination are required"},
		{"upstream rejected", &amadeus.UpstreamError{StatusCode: 429, Detail: "Too many requests"}, http.StatusBadRequest, "Too many requests"},
		{"upstream down", &amadeus.UpstreamError{StatusCode: 503, Detail: "Service unavailable"}, http.StatusBadGateway, "Service unavailable"},
		{"no response", &amadeus.UpstreamError{Detail: "Amadeus request failed", Err: context.DeadlineExceeded}, http.StatusBadGateway, "Amadeus request failed"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeSearcher{err: tc.err}
			rec, env := call(t, flightServer(f), http.MethodGet, "/api/flights/search?depIata=DEL&arrIata=BOM", "")
			assert.Equal(t, tc.code, rec.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tc.msg, env.Message)
		})
	}
}

func TestAmadeusOffersUsesOwnParamNames(t *testing.T) {
	f := &fakeSearcher{}
	rec, env := call(t, flightServer(f), http.MethodGet,
		"/api/amadeus/offers?origin=DEL&destination=BOM&date=2026-11-01&max=3", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DEL", f.gotOffers.Origin)
	assert.Equal(t, "BOM", f.gotOffers.Destination)
	assert.Equal(t, "3", f.gotOffers.Max)
	assert.JSONEq(t, `{"offers":[]}`, string(env.Data))
}

func TestFlightStatusEmptyResultsIsList(t *testing.T) {
	f := &fakeSearcher{}
	rec, env := call(t, flightServer(f), http.MethodGet,
		"/api/flights/status?carrierCode=AI&flightNumber=202&date=2026-11-01", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"AI", "202", "2026-11-01"}, f.gotStatus)
	assert.JSONEq(t, `{"results":[]}`, string(env.Data))
}

type fakeBookings struct {
	created   service.CreateBookingInput
	createdBy uint64
	booking   model.Booking
	detail    service.BookingDetail
	list      []model.Booking
	already   bool
	err       error
}

func (f *fakeBookings) Create(_ context.Context, uid uint64, in service.CreateBookingInput) (model.Booking, error) {
	f.created, f.createdBy = in, uid
	return f.booking, f.err
}

func (f *fakeBookings) List(_ context.Context, _ uint64) ([]model.Booking, error) {
	return f.list, f.err
}

func (f *fakeBookings) Get(_ context.Context, _, _ uint64) (service.BookingDetail, error) {
	return f.detail, f.err
}

func (f *fakeBookings) Cancel(_ context.Context, _, _ uint64) (model.Booking, bool, error) {
	return f.booking, f.already, f.err
}

func bookingServer(f *fakeBookings, uid uint64) *echo.Echo {
	e := echo.New()
	h := NewBookingHandler(f, logger.NewNop())
	g := e.Group("/api/bookings", as(uid))
	g.POST("", h.Create)
	g.GET("/me", h.Mine)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/cancel", h.Cancel)
	return e
}

func TestCreateBookingDecodesRequest(t *testing.T) {
	f := &fakeBookings{booking: model.Booking{ID: 9, PNR: "ABC234"}}
	body := `{
		"flight": {"departure": {"iata": "DEL"}, "arrival": {"iata": "BOM"}},
		"flightProvider": "legacy",
		"passengers": [{"fullName": "Asha Rao", "age": 31, "gender": "F"}],
		"seats": ["12A"],
		"amount": "4999.50",
		"addOns": {"extraLegroom": true, "extraLuggageKg": 5}
	}`
	rec, env := call(t, bookingServer(f, 7), http.MethodPost, "/api/bookings", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Booking created", env.Message)
	assert.Equal(t, uint64(7), f.createdBy)
	assert.Equal(t, 4999.5, f.created.Amount)
	assert.Equal(t, model.Provider("legacy"), f.created.FlightProvider)
	assert.Equal(t, model.AddOns{ExtraLegroom: true, ExtraLuggageKg: 5}, f.created.AddOns)
	assert.JSONEq(t, `{"departure": {"iata": "DEL"}, "arrival": {"iata": "BOM"}}`, string(f.created.Flight))

	var data struct {
		Booking model.Booking `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "ABC234", data.Booking.PNR)
}

func TestCreateBookingRejections(t *testing.T) {
	cases := []struct {
		name string
		uid  uint64
		body string
		err  error
		code int
		msg  string
	}{
		{"anonymous", 0, `{"amount": 10}`, nil, http.StatusUnauthorized, "unauthenticated"},
		{"malformed", 7, `{"amount":`, nil, http.StatusBadRequest, "invalid body"},
		{"missing amount", 7, `{"passengers": []}`, nil, http.StatusBadRequest, "Valid amount required"},
		{"non-numeric amount", 7, `{"amount": "lots"}`, nil, http.StatusBadRequest, "Valid amount required"},
		{"service validation", 7, `{"amount": 10}`, apperr.Invalid("Passengers required"), http.StatusBadRequest, "Passengers required"},
		{"storage", 7, `{"amount": 10}`, apperr.Persistence("insert booking", errors.New("deadlock")), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := call(t, bookingServer(&fakeBookings{err: tc.err}, tc.uid), http.MethodPost, "/api/bookings", tc.body)
			assert.Equal(t, tc.code, rec.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tc.msg, env.Message)
		})
	}
}

func TestCreateBookingRequiresJSONBody(t *testing.T) {
	f := &fakeBookings{}
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", strings.NewReader(`{"amount": 10}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	rec := httptest.NewRecorder()
	bookingServer(f, 7).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid body")
	assert.Zero(t, f.createdBy)
}

func TestGetBooking(t *testing.T) {
	tr := &model.FlightStatusTracker{ID: 3, BookingID: 9, LastStatus: "scheduled"}
	f := &fakeBookings{detail: service.BookingDetail{Booking: model.Booking{ID: 9}, Tracker: tr}}
	rec, env := call(t, bookingServer(f, 7), http.MethodGet, "/api/bookings/9", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Booking details", env.Message)
	var data service.BookingDetail
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, uint64(9), data.Booking.ID)
	require.NotNil(t, data.Tracker)
	assert.Equal(t, "scheduled", data.Tracker.LastStatus)
}

func TestGetBookingNotFoundAndBadID(t *testing.T) {
	f := &fakeBookings{err: repository.ErrBookingNotFound}
	rec, env := call(t, bookingServer(f, 7), http.MethodGet, "/api/bookings/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Booking not found", env.Message)

	rec, env = call(t, bookingServer(f, 7), http.MethodGet, "/api/bookings/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid booking id", env.Message)
}

func TestMyBookings(t *testing.T) {
	f := &fakeBookings{list: []model.Booking{{ID: 2}, {ID: 1}}}
	rec, env := call(t, bookingServer(f, 7), http.MethodGet, "/api/bookings/me", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "My bookings", env.Message)
	var data struct {
		Bookings []model.Booking `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Bookings, 2)
	assert.Equal(t, uint64(2), data.Bookings[0].ID)
}

func TestCancelBookingMessages(t *testing.T) {
	f := &fakeBookings{booking: model.Booking{ID: 9, BookingStatus: model.BookingCancelled}}
	rec, env := call(t, bookingServer(f, 7), http.MethodPatch, "/api/bookings/9/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Booking cancelled", env.Message)

	f.already = true
	rec, env = call(t, bookingServer(f, 7), http.MethodPatch, "/api/bookings/9/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Booking already cancelled", env.Message)
}

type fakeUsers struct {
	byEmail map[string]model.User
	nextID  uint64
	err     error
}

func (f *fakeUsers) Create(_ context.Context, name, email, password string, cost int) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if _, dup := f.byEmail[email]; dup {
		return 0, repository.ErrEmailExists
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	f.nextID++
	f.byEmail[email] = model.User{ID: f.nextID, Name: name, Email: email, PasswordHash: hash}
	return f.nextID, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	u, found := f.byEmail[email]
	if !found {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

const testSecret = "test-secret"

func authServer(users *fakeUsers, uid uint64) *echo.Echo {
	e := echo.New()
	h := NewAuthHandler(users, testSecret, 15*time.Minute, 4, logger.NewNop())
	e.POST("/api/auth/register", h.Register)
	e.POST("/api/auth/login", h.Login)
	e.GET("/api/auth/me", h.Me, as(uid))
	return e
}

func TestRegisterThenLogin(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]model.User{}}
	e := authServer(users, 0)

	rec, env := call(t, e, http.MethodPost, "/api/auth/register",
		`{"name":"Asha","email":" Asha@Example.com ","password":"hunter22"}`)
	require.Equal(t, http.StatusCreated, rec.Code, env.Message)

	var reg authResp
	require.NoError(t, json.Unmarshal(env.Data, &reg))
	assert.Equal(t, "asha@example.com", reg.User.Email)
	uid, err := utils.ParseAccessToken(testSecret, reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, uid)

	rec, _ = call(t, e, http.MethodPost, "/api/auth/register",
		`{"name":"Asha","email":"asha@example.com","password":"hunter22"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env = call(t, e, http.MethodPost, "/api/auth/login", `{"email":"ASHA@example.com","password":"hunter22"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged in", env.Message)

	rec, env = call(t, e, http.MethodPost, "/api/auth/login", `{"email":"asha@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", env.Message)

	rec, _ = call(t, e, http.MethodPost, "/api/auth/login", `{"email":"nobody@example.com","password":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	e := authServer(&fakeUsers{byEmail: map[string]model.User{}}, 0)
	for body, msg := range map[string]string{
		`{"email":"","password":"x"}`:                    "email/password required",
		`{"email":"not-an-email","password":"hunter22"}`: "invalid email",
		`{"email":"a@b.co","password":"123"}`:            "password must be at least 6 characters",
	} {
		rec, env := call(t, e, http.MethodPost, "/api/auth/register", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, msg, env.Message, body)
	}
}

func TestMe(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]model.User{
		"asha@example.com": {ID: 5, Name: "Asha", Email: "asha@example.com"},
	}}
	rec, env := call(t, authServer(users, 5), http.MethodGet, "/api/auth/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"email":"asha@example.com"`)

	rec, _ = call(t, authServer(users, 0), http.MethodGet, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/api/health", Health)
	rec, env := call(t, e, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}
