package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"BeatStudio/core/auth"
	"BeatStudio/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBookingRepo struct {
	created []*model.StudioBooking
}

func (s *stubBookingRepo) Create(_ context.Context, b *model.StudioBooking) (int64, error) {
	s.created = append(s.created, b)
	return int64(len(s.created)), nil
}
func (s *stubBookingRepo) GetByID(context.Context, int64) (*model.StudioBooking, error) {
	return nil, nil
}
func (s *stubBookingRepo) ListByUser(context.Context, int64) ([]*model.StudioBooking, error) {
	return nil, nil
}
func (s *stubBookingRepo) ListAll(context.Context) ([]*model.StudioBooking, error) {
	return nil, nil
}
func (s *stubBookingRepo) UpdateStatus(context.Context, int64, string) error { return nil }
func (s *stubBookingRepo) LinkRecording(context.Context, int64, int64) error { return nil }

func postBooking(t *testing.T, h *APIHandler, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.CreateBookingHandler(rec, req)
	return rec
}

func TestCreateBookingAnonymous(t *testing.T) {
	repo := &stubBookingRepo{}
	h := &APIHandler{bookingRepo: repo}

	rec := postBooking(t, h, `{"name": "Лена", "phone": "+79990001122", "date": "2026-09-15"}`, "")

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.created, 1)
	assert.Nil(t, repo.created[0].UserID, "anonymous intake must not be attached to a user")
	assert.Equal(t, model.BookingNew, repo.created[0].Status)
}

func TestCreateBookingAttachesLoggedInUser(t *testing.T) {
	auth.Configure("test-secret", 60)
	token, err := auth.GenerateToken(7, "lena", "user")
	require.NoError(t, err)

	repo := &stubBookingRepo{}
	h := &APIHandler{bookingRepo: repo}

	rec := postBooking(t, h, `{"name": "Лена", "phone": "+79990001122", "date": "2026-09-15"}`, token)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.created, 1)
	require.NotNil(t, repo.created[0].UserID)
	assert.Equal(t, int64(7), *repo.created[0].UserID)
}

func TestCreateBookingRequiresContactFields(t *testing.T) {
	repo := &stubBookingRepo{}
	h := &APIHandler{bookingRepo: repo}

	rec := postBooking(t, h, `{"name": "Лена"}`, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, repo.created)
}
