package operator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"kart-checkout/internal/model"
	"kart-checkout/internal/notify"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_Notify(t *testing.T) {
	var stored []byte
	store := &mockStore{putFunc: func(_ context.Context, _ string, data []byte) error {
		stored = data
		return nil
	}}
	r := NewReporter(store, zerolog.Nop())

	order := &model.Order{
		ID:          uuid.New(),
		OrderNumber: "JB20240301004",
		CreatedAt:   time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}
	ev := model.NewEvent(model.EventInventoryShortfall, order, nil)
	ev.Issues = []model.LineIssue{{ProductID: "P1", Reason: model.ReasonInsufficientStock, Requested: 3, Available: 1}}

	require.NoError(t, r.Notify(context.Background(), ev))
	assert.Equal(t, []string{"shortfall/2024/03/01/JB20240301004.json.gz"}, store.keys)

	var report ShortfallReport
	require.NoError(t, json.Unmarshal(stored, &report))
	assert.Equal(t, "JB20240301004", report.Order.OrderNumber)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, 3, report.Issues[0].Requested)
}

func TestReporter_IgnoresOtherEvents(t *testing.T) {
	store := &mockStore{}
	r := NewReporter(store, zerolog.Nop())

	err := r.Notify(context.Background(), model.NewEvent(model.EventOrderPlaced, &model.Order{}, nil))
	assert.ErrorIs(t, err, notify.ErrSkipped)
	assert.Empty(t, store.keys)
}

func TestReporter_ExportReviews(t *testing.T) {
	store := &mockStore{}
	r := NewReporter(store, zerolog.Nop())
	r.now = func() time.Time { return time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC) }

	key, err := r.ExportReviews(context.Background(), []model.Order{{ID: uuid.New(), RequiresReview: true}})
	require.NoError(t, err)
	assert.Equal(t, "reviews/20240301T180000Z.json.gz", key)
	assert.Equal(t, []string{key}, store.keys)
}
