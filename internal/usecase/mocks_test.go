package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/drape/backend/internal/domain"
	"github.com/google/uuid"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu       sync.Mutex
	data     map[string][]byte
	getError error
	setError error
	getCalls int
	setCalls int
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string][]byte)}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockSearcher is a mock implementation of domain.ProductSearcher
type MockSearcher struct {
	platform domain.Platform
	results  []domain.RealProductResult
	err      error
	panics   bool

	mu        sync.Mutex
	calls     int
	lastQuery string
	lastLimit int
}

func (m *MockSearcher) Platform() domain.Platform { return m.platform }

func (m *MockSearcher) Search(ctx context.Context, query string, limit int) ([]domain.RealProductResult, error) {
	m.mu.Lock()
	m.calls++
	m.lastQuery = query
	m.lastLimit = limit
	m.mu.Unlock()

	if m.panics {
		panic("searcher exploded")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *MockSearcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockChatCompleter is a mock implementation of domain.ChatCompleter
type MockChatCompleter struct {
	response   string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (m *MockChatCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	m.calls++
	m.lastSystem = system
	m.lastUser = user
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// MockProductFinder is a mock implementation of ProductFinder
type MockProductFinder struct {
	mu      sync.Mutex
	results map[string][]domain.RealProductResult
	errs    map[string]error
	queries []string
	opts    []domain.ProductSearchOptions
}

func (m *MockProductFinder) SearchRealProducts(ctx context.Context, query string, opts domain.ProductSearchOptions) ([]domain.RealProductResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	m.opts = append(m.opts, opts)
	if err := m.errs[query]; err != nil {
		return nil, err
	}
	return m.results[query], nil
}

// MockMediaUploader is a mock implementation of domain.MediaUploader
type MockMediaUploader struct {
	asset        *domain.MediaAsset
	err          error
	calls        int
	lastFilename string
}

func (m *MockMediaUploader) Upload(ctx context.Context, filename string, data []byte) (*domain.MediaAsset, error) {
	m.calls++
	m.lastFilename = filename
	if m.err != nil {
		return nil, m.err
	}
	return m.asset, nil
}

// MockNotificationRepository is a mock implementation of domain.NotificationRepository
type MockNotificationRepository struct {
	created     []domain.Notification
	sent        map[uuid.UUID]time.Time
	prefs       map[string]domain.NotificationPreference
	subscribers []string
	listed      []domain.Notification

	createErrFor   map[string]error
	markSentErr    error
	prefsErr       error
	subscribersErr error
	listErr        error

	lastListUser  string
	lastListSince time.Time
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		sent:         make(map[uuid.UUID]time.Time),
		prefs:        make(map[string]domain.NotificationPreference),
		createErrFor: make(map[string]error),
	}
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if err := m.createErrFor[n.UserID]; err != nil {
		return err
	}
	m.created = append(m.created, *n)
	return nil
}

func (m *MockNotificationRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	if m.markSentErr != nil {
		return m.markSentErr
	}
	m.sent[id] = at
	return nil
}

func (m *MockNotificationRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]domain.Notification, error) {
	m.lastListUser = userID
	m.lastListSince = since
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listed, nil
}

func (m *MockNotificationRepository) Preferences(ctx context.Context, userIDs []string) (map[string]domain.NotificationPreference, error) {
	if m.prefsErr != nil {
		return nil, m.prefsErr
	}
	return m.prefs, nil
}

func (m *MockNotificationRepository) TrendingSubscribers(ctx context.Context) ([]string, error) {
	if m.subscribersErr != nil {
		return nil, m.subscribersErr
	}
	return m.subscribers, nil
}

// MockPushSender is a mock implementation of domain.PushSender
type MockPushSender struct {
	err    error
	tokens [][]string
}

func (m *MockPushSender) SendPush(ctx context.Context, tokens []string, n *domain.Notification) error {
	m.tokens = append(m.tokens, tokens)
	return m.err
}

// MockEmailSender is a mock implementation of domain.EmailSender
type MockEmailSender struct {
	err error
	to  []string
}

func (m *MockEmailSender) SendEmail(ctx context.Context, to string, n *domain.Notification) error {
	m.to = append(m.to, to)
	return m.err
}

// MockDashboardSource is a mock implementation of domain.DashboardSource
type MockDashboardSource struct {
	mu      sync.Mutex
	updates []*domain.DashboardUpdate
	err     error
	since   []time.Time
}

func (m *MockDashboardSource) FetchUpdates(ctx context.Context, since time.Time) (*domain.DashboardUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.since = append(m.since, since)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.updates) == 0 {
		return &domain.DashboardUpdate{Timestamp: time.Now().UTC(), Notifications: []domain.Notification{}}, nil
	}
	u := m.updates[0]
	m.updates = m.updates[1:]
	return u, nil
}

func (m *MockDashboardSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.since)
}

// MockDispatcher is a mock implementation of Dispatcher
type MockDispatcher struct {
	requests []domain.NotificationRequest
	report   *domain.DispatchReport
	err      error
}

func (m *MockDispatcher) Dispatch(ctx context.Context, req domain.NotificationRequest) (*domain.DispatchReport, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	return &domain.DispatchReport{Created: len(req.UserIDs), Sent: len(req.UserIDs)}, nil
}

func product(platform domain.Platform, name string, price int64, rating float64) domain.RealProductResult {
	r := rating
	return domain.RealProductResult{
		ID:         string(platform) + "-" + name,
		Name:       name,
		Brand:      "Brand",
		Price:      price,
		Currency:   domain.DefaultCurrency,
		Platform:   platform,
		Rating:     &r,
		InStock:    true,
		ProductURL: "https://example.com/" + name,
		ImageURL:   "https://img.example.com/" + name + ".jpg",
	}
}
