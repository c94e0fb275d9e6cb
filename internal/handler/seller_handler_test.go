package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockFeedServer struct {
	mock.Mock
}

func (m *MockFeedServer) Serve(w http.ResponseWriter, r *http.Request, sellerID uuid.UUID) error {
	args := m.Called(w, r, sellerID)
	return args.Error(0)
}

func TestSellerHandler_Feed(t *testing.T) {
	sellerID := uuid.New()

	t.Run("serves seller", func(t *testing.T) {
		feed := new(MockFeedServer)
		feed.On("Serve", mock.Anything, mock.Anything, sellerID).Return(nil)

		h := NewSellerHandler(feed, zerolog.Nop())
		w := httptest.NewRecorder()
		route("GET /api/sellers/{id}/feed", h.Feed).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sellers/"+sellerID.String()+"/feed", nil))

		feed.AssertExpectations(t)
	})

	t.Run("upgrade failure is logged", func(t *testing.T) {
		feed := new(MockFeedServer)
		feed.On("Serve", mock.Anything, mock.Anything, sellerID).Return(errors.New("not a websocket handshake"))

		h := NewSellerHandler(feed, zerolog.Nop())
		w := httptest.NewRecorder()
		route("GET /api/sellers/{id}/feed", h.Feed).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sellers/"+sellerID.String()+"/feed", nil))

		feed.AssertExpectations(t)
	})

	t.Run("invalid seller id", func(t *testing.T) {
		feed := new(MockFeedServer)
		h := NewSellerHandler(feed, zerolog.Nop())
		w := httptest.NewRecorder()
		route("GET /api/sellers/{id}/feed", h.Feed).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sellers/abc/feed", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		feed.AssertNotCalled(t, "Serve", mock.Anything, mock.Anything, mock.Anything)
	})
}
