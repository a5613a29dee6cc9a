package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"careops/backend/internal/closecrm"
	"careops/backend/internal/config"
	"careops/backend/internal/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{WindowDays: 30, PageLimit: 200}
}

func TestFetchWithFallback_FirstStrategyWins(t *testing.T) {
	second := false
	strategies := []fetchStrategy{
		{name: "first", fetch: func(ctx context.Context) ([]closecrm.Activity, error) {
			return []closecrm.Activity{{ID: "acti_1"}}, nil
		}},
		{name: "second", fetch: func(ctx context.Context) ([]closecrm.Activity, error) {
			second = true
			return nil, nil
		}},
	}

	activities, name, err := fetchWithFallback(context.Background(), strategies)
	require.NoError(t, err)
	assert.Equal(t, "first", name)
	assert.Len(t, activities, 1)
	assert.False(t, second, "later strategies should not run after a success")
}

func TestFetchWithFallback_EmptyResultIsSuccess(t *testing.T) {
	strategies := []fetchStrategy{
		{name: "first", fetch: func(ctx context.Context) ([]closecrm.Activity, error) {
			return []closecrm.Activity{}, nil
		}},
		{name: "second", fetch: func(ctx context.Context) ([]closecrm.Activity, error) {
			t.Fatal("second strategy should not run")
			return nil, nil
		}},
	}

	activities, name, err := fetchWithFallback(context.Background(), strategies)
	require.NoError(t, err)
	assert.Equal(t, "first", name)
	assert.Empty(t, activities)
}

func TestFetchWithFallback_AdvancesPastErrors(t *testing.T) {
	strategies := []fetchStrategy{
		{name: "first", fetch: func(ctx context.Context) ([]closecrm.Activity, error) {
			return nil, errors.New("filter unsupported")
		}},
		{name: "second", fetch: func(ctx context.Context) ([]closecrm.Activity, error) {
			return []closecrm.Activity{{ID: "acti_2"}}, nil
		}},
	}

	activities, name, err := fetchWithFallback(context.Background(), strategies)
	require.NoError(t, err)
	assert.Equal(t, "second", name)
	assert.Len(t, activities, 1)
}

func TestFetchWithFallback_AllFailReturnsLastError(t *testing.T) {
	firstErr := errors.New("first failed")
	lastErr := errors.New("last failed")
	strategies := []fetchStrategy{
		{name: "first", fetch: func(ctx context.Context) ([]closecrm.Activity, error) {
			return nil, firstErr
		}},
		{name: "second", fetch: func(ctx context.Context) ([]closecrm.Activity, error) {
			return nil, lastErr
		}},
	}

	_, _, err := fetchWithFallback(context.Background(), strategies)
	require.Error(t, err)
	assert.ErrorIs(t, err, lastErr)
}

func TestActivityStrategies_OrderAndFilters(t *testing.T) {
	client := newFakeClose()
	client.errors["contact_id"] = errors.New("contact filter unsupported")
	client.errors["lead_id"] = errors.New("lead filter unsupported")
	client.activities["recent_window"] = []closecrm.Activity{
		{ID: "acti_mine", ContactID: "cont_1"},
		{ID: "acti_other", ContactID: "cont_2"},
	}

	match := &resolver.Match{ContactID: "cont_1", LeadID: "lead_1"}
	strategies := activityStrategies(client, testSyncConfig(), match, "jane@example.com")
	require.Len(t, strategies, 3)
	assert.Equal(t, "contact_id", strategies[0].name)
	assert.Equal(t, "lead_id", strategies[1].name)
	assert.Equal(t, "recent_window", strategies[2].name)

	activities, name, err := fetchWithFallback(context.Background(), strategies)
	require.NoError(t, err)
	assert.Equal(t, "recent_window", name)
	require.Len(t, activities, 1)
	assert.Equal(t, "acti_mine", activities[0].ID)

	// Window filter carries a since timestamp; contact filter does not.
	require.Len(t, client.activityCalls, 3)
	assert.Equal(t, "cont_1", client.activityCalls[0].ContactID)
	assert.Equal(t, "lead_1", client.activityCalls[1].LeadID)
	assert.False(t, client.activityCalls[2].Since.IsZero())
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -30), client.activityCalls[2].Since, time.Minute)
}

func TestActivityStrategies_NoLeadSkipsLeadTier(t *testing.T) {
	client := newFakeClose()
	match := &resolver.Match{ContactID: "cont_1"}

	strategies := activityStrategies(client, testSyncConfig(), match, "")
	require.Len(t, strategies, 2)
	assert.Equal(t, "contact_id", strategies[0].name)
	assert.Equal(t, "recent_window", strategies[1].name)
}

func TestFilterForContact_ExactAddressOnly(t *testing.T) {
	activities := []closecrm.Activity{
		{ID: "by_contact", ContactID: "cont_1"},
		{ID: "by_from", From: "jane@example.com"},
		{ID: "by_display_name", From: "Jane Doe <JANE@example.com>"},
		{ID: "by_to", To: []string{"support@org.com", "jane@example.com"}},
		{ID: "near_miss", From: "jane@example.co"},
		{ID: "substring", From: "notjane@example.com"},
		{ID: "unrelated", ContactID: "cont_2"},
	}

	filtered := filterForContact(activities, "cont_1", "jane@example.com")

	ids := make([]string, 0, len(filtered))
	for _, a := range filtered {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"by_contact", "by_from", "by_display_name", "by_to"}, ids)
}

func TestAddressEquals(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		email string
		want  bool
	}{
		{"bare address", "jane@example.com", "jane@example.com", true},
		{"case insensitive", "JANE@Example.com", "jane@example.com", true},
		{"display name form", "Jane Doe <jane@example.com>", "jane@example.com", true},
		{"whitespace", "  jane@example.com  ", "jane@example.com", true},
		{"different tld", "jane@example.co", "jane@example.com", false},
		{"substring", "notjane@example.com", "jane@example.com", false},
		{"empty raw", "", "jane@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, addressEquals(tt.raw, tt.email))
		})
	}
}
