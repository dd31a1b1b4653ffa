package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/phishing-simulator/internal/domain"
	"github.com/ignite/phishing-simulator/internal/pkg/appendlog"
	"github.com/ignite/phishing-simulator/internal/pkg/distlock"
	"github.com/ignite/phishing-simulator/internal/repository/filestore"
)

func openStores(t *testing.T) *filestore.Stores {
	t.Helper()
	stores, err := filestore.Open(t.TempDir(), distlock.NewLocalLocker(), appendlog.WithoutSync())
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })
	return stores
}

func newTestRecorder(t *testing.T) (*Recorder, *filestore.Stores) {
	stores := openStores(t)
	return NewRecorder(stores.Correlations, stores.Events, stores.Credentials, stores.Campaigns), stores
}

func register(t *testing.T, stores *filestore.Stores, token domain.Token, email, campaign string) {
	t.Helper()
	require.NoError(t, stores.Correlations.Register(context.Background(), domain.Correlation{
		Token:        token,
		Email:        email,
		CampaignID:   "c-" + campaign,
		CampaignName: campaign,
		CreatedAt:    time.Now(),
	}))
}

func TestRecordFunnelAttributesKnownToken(t *testing.T) {
	rec, stores := newTestRecorder(t)
	ctx := context.Background()
	tok := domain.Token("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	register(t, stores, tok, "alice@example.com", "Q3")

	meta := domain.RequestMeta{IPAddress: "10.0.0.7", UserAgent: "Mozilla/5.0"}
	_, err := rec.RecordOpen(ctx, tok, meta)
	require.NoError(t, err)
	_, err = rec.RecordClick(ctx, tok, meta)
	require.NoError(t, err)
	_, err = rec.RecordDownload(ctx, tok, meta)
	require.NoError(t, err)

	events, err := rec.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Newest first.
	assert.Equal(t, domain.EventAttachmentDownloaded, events[0].Kind)
	assert.Equal(t, domain.EventLinkClicked, events[1].Kind)
	assert.Equal(t, domain.EventEmailOpened, events[2].Kind)
	for _, e := range events {
		assert.Equal(t, tok, e.Token)
		assert.Equal(t, "alice@example.com", e.Email)
		assert.Equal(t, "Q3", e.Campaign)
		assert.Contains(t, e.Details, "ip=10.0.0.7")
	}
}

func TestRecordUnknownTokenHasEmptyAttribution(t *testing.T) {
	rec, _ := newTestRecorder(t)
	ctx := context.Background()

	for _, tok := range []domain.Token{"ffffffffffffffffffffffffffffffff", "", "not-a-token"} {
		e, err := rec.RecordOpen(ctx, tok, domain.RequestMeta{})
		require.NoError(t, err)
		assert.Equal(t, tok, e.Token)
		assert.Empty(t, e.Email)
		assert.Empty(t, e.Campaign)
	}

	n, err := rec.events.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRecordCredentialsRoundTrip(t *testing.T) {
	rec, stores := newTestRecorder(t)
	ctx := context.Background()
	tok := domain.Token("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	register(t, stores, tok, "bob@example.com", "Q3")

	username := "bob.martin@corp.example"
	password := "p@ss; w\"ord,\t«ünïcödé» 🔑"
	cr, e, err := rec.RecordCredentials(ctx, tok, username, password, domain.RequestMeta{IPAddress: "10.1.1.1"})
	require.NoError(t, err)
	assert.Equal(t, password, cr.Password)

	creds, err := rec.Credentials(ctx)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, username, creds[0].Username)
	assert.Equal(t, password, creds[0].Password)
	assert.Equal(t, "bob@example.com", creds[0].Email)
	assert.Equal(t, "Q3", creds[0].Campaign)

	events, err := rec.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventCredentialsSubmitted, events[0].Kind)
	assert.Contains(t, events[0].Details, "username="+username)
	assert.NotContains(t, events[0].Details, password)
	assert.Equal(t, events[0].Seq, e.Seq)
	assert.Equal(t, events[0].Details, e.Details)
	assert.True(t, events[0].Timestamp.Equal(e.Timestamp))
	assert.Contains(t, e.Details, "ip=10.1.1.1")
}

func TestConcurrentRecordingNeverMisattributes(t *testing.T) {
	rec, stores := newTestRecorder(t)
	ctx := context.Background()

	const n = 40
	tokens := make([]domain.Token, n)
	for i := range tokens {
		tokens[i] = domain.Token(fmt.Sprintf("%032x", i+1))
		register(t, stores, tokens[i], fmt.Sprintf("user%02d@example.com", i), "Q3")
	}

	var wg sync.WaitGroup
	for i := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rec.RecordClick(ctx, tokens[i], domain.RequestMeta{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	events, err := rec.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, n)
	for _, e := range events {
		var idx int
		_, err := fmt.Sscanf(string(e.Token), "%x", &idx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("user%02d@example.com", idx-1), e.Email)
	}
}

type brokenLookup struct{}

func (brokenLookup) Lookup(context.Context, domain.Token) (*domain.Correlation, error) {
	return nil, domain.StorageErr("read", errors.New("io"))
}

func TestRecordSurvivesLookupFailure(t *testing.T) {
	stores := openStores(t)
	rec := NewRecorder(brokenLookup{}, stores.Events, stores.Credentials, nil)

	e, err := rec.RecordOpen(context.Background(), "cccccccccccccccccccccccccccccccc", domain.RequestMeta{})
	require.NoError(t, err)
	assert.Empty(t, e.Email)
}

func TestSummary(t *testing.T) {
	rec, stores := newTestRecorder(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		require.NoError(t, stores.Campaigns.Create(ctx, &domain.Campaign{
			ID:         fmt.Sprintf("camp-%d", i),
			Name:       fmt.Sprintf("Campaign %d", i),
			Recipients: []string{"a@example.com"},
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}))
	}
	_, err := rec.RecordOpen(ctx, "", domain.RequestMeta{})
	require.NoError(t, err)
	_, _, err = rec.RecordCredentials(ctx, "", "u", "p", domain.RequestMeta{})
	require.NoError(t, err)

	s, err := rec.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, s.CampaignCount)
	assert.Equal(t, 2, s.EventsCount)
	assert.Equal(t, 1, s.CredentialsCount)
	require.Len(t, s.RecentCampaigns, RecentCampaignLimit)
	assert.Equal(t, "camp-6", s.RecentCampaigns[0].ID)
}

func TestSummaryWithoutCampaigns(t *testing.T) {
	stores := openStores(t)
	rec := NewRecorder(stores.Correlations, stores.Events, stores.Credentials, nil)

	s, err := rec.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, s.CampaignCount)
	assert.NotNil(t, s.RecentCampaigns)
}
