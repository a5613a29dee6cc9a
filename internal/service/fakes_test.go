package service

import (
	"context"
	"time"

	"careops/backend/internal/closecrm"
	"careops/backend/internal/db"
	"careops/backend/internal/repository"
	"careops/backend/internal/resolver"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation mimics the error Postgres raises on a duplicate key
func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
}

// fakeClose is an in-memory Close client. Call counts let tests assert
// which endpoints a code path touched.
type fakeClose struct {
	contacts   []closecrm.Contact
	users      []closecrm.User
	activities map[string][]closecrm.Activity // keyed by strategy filter
	errors     map[string]error

	searchCalls   int
	userCalls     int
	activityCalls []closecrm.ActivityFilter
	sent          []closecrm.EmailRequest
	sendErr       error
	sendResult    *closecrm.Activity
}

func newFakeClose() *fakeClose {
	return &fakeClose{
		activities: make(map[string][]closecrm.Activity),
		errors:     make(map[string]error),
	}
}

func (f *fakeClose) SearchContacts(ctx context.Context, query string) ([]closecrm.Contact, error) {
	f.searchCalls++
	if err := f.errors["search"]; err != nil {
		return nil, err
	}
	return f.contacts, nil
}

func (f *fakeClose) ListUsers(ctx context.Context) ([]closecrm.User, error) {
	f.userCalls++
	if err := f.errors["users"]; err != nil {
		return nil, err
	}
	return f.users, nil
}

func (f *fakeClose) ListActivities(ctx context.Context, filter closecrm.ActivityFilter) ([]closecrm.Activity, error) {
	f.activityCalls = append(f.activityCalls, filter)
	key := activityFilterKey(filter)
	if err := f.errors[key]; err != nil {
		return nil, err
	}
	return f.activities[key], nil
}

func (f *fakeClose) SendEmail(ctx context.Context, req closecrm.EmailRequest) (*closecrm.Activity, error) {
	f.sent = append(f.sent, req)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if f.sendResult != nil {
		return f.sendResult, nil
	}
	return &closecrm.Activity{ID: "acti_sent", Type: "Email", DateCreated: time.Now()}, nil
}

func activityFilterKey(filter closecrm.ActivityFilter) string {
	switch {
	case filter.ContactID != "":
		return "contact_id"
	case filter.LeadID != "":
		return "lead_id"
	default:
		return "recent_window"
	}
}

// fakeResolver returns canned resolution results
type fakeResolver struct {
	exactMatch   *resolver.Match
	exactErr     error
	trustedMatch *resolver.Match
	trustedErr   error
	calls        int
}

func (f *fakeResolver) ResolveExact(ctx context.Context, email string) (*resolver.Match, error) {
	f.calls++
	if f.exactErr != nil {
		return nil, f.exactErr
	}
	return f.exactMatch, nil
}

func (f *fakeResolver) ResolveTrusted(ctx context.Context, email, phone string) (*resolver.Match, error) {
	f.calls++
	if f.trustedErr != nil {
		return nil, f.trustedErr
	}
	return f.trustedMatch, nil
}

// fakeStaffStore is an in-memory staff contact table keyed by close_user_id
type fakeStaffStore struct {
	byCloseID map[string]*repository.StaffContact
	createErr error
	creates   int
	upserts   int

	// getMisses forces the next N reads to report not-found, simulating a
	// row that lands between the check and the insert
	getMisses int
}

func newFakeStaffStore() *fakeStaffStore {
	return &fakeStaffStore{byCloseID: make(map[string]*repository.StaffContact)}
}

func (f *fakeStaffStore) GetByCloseUserID(ctx context.Context, closeUserID string) (*repository.StaffContact, error) {
	if f.getMisses > 0 {
		f.getMisses--
		return nil, db.ErrNotFound
	}
	if sc, ok := f.byCloseID[closeUserID]; ok {
		return sc, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeStaffStore) GetByID(ctx context.Context, id uuid.UUID) (*repository.StaffContact, error) {
	for _, sc := range f.byCloseID {
		if sc.ID == id {
			return sc, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeStaffStore) Create(ctx context.Context, req repository.CreateStaffContactRequest) (*repository.StaffContact, error) {
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byCloseID[req.CloseUserID]; ok {
		return nil, uniqueViolation()
	}
	sc := &repository.StaffContact{
		ID:          uuid.New(),
		CloseUserID: req.CloseUserID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Role:        repository.DefaultStaffRole,
		IsStaff:     true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.byCloseID[req.CloseUserID] = sc
	return sc, nil
}

func (f *fakeStaffStore) UpsertByCloseUserID(ctx context.Context, req repository.CreateStaffContactRequest) (*repository.StaffContact, error) {
	f.upserts++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if sc, ok := f.byCloseID[req.CloseUserID]; ok {
		sc.Name = req.Name
		sc.Email = req.Email
		sc.Phone = req.Phone
		return sc, nil
	}
	return f.Create(ctx, req)
}

// fakeThreadStore is an in-memory thread table enforcing the per-pair
// uniqueness constraint
type fakeThreadStore struct {
	threads   map[uuid.UUID]*repository.ConversationThread
	createErr error
	recorded  []uuid.UUID

	// pairMisses forces the next N pair reads to report not-found
	pairMisses int
}

func newFakeThreadStore() *fakeThreadStore {
	return &fakeThreadStore{threads: make(map[uuid.UUID]*repository.ConversationThread)}
}

func (f *fakeThreadStore) GetByID(ctx context.Context, id uuid.UUID) (*repository.ConversationThread, error) {
	if th, ok := f.threads[id]; ok {
		return th, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeThreadStore) GetByUserAndStaff(ctx context.Context, userID, staffContactID uuid.UUID) (*repository.ConversationThread, error) {
	if f.pairMisses > 0 {
		f.pairMisses--
		return nil, db.ErrNotFound
	}
	for _, th := range f.threads {
		if th.UserID == userID && th.StaffContactID == staffContactID {
			return th, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeThreadStore) Create(ctx context.Context, req repository.CreateThreadRequest) (*repository.ConversationThread, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, err := f.GetByUserAndStaff(ctx, req.UserID, req.StaffContactID); err == nil {
		return nil, uniqueViolation()
	}
	th := &repository.ConversationThread{
		ID:             uuid.New(),
		UserID:         req.UserID,
		StaffContactID: req.StaffContactID,
		Subject:        req.Subject,
		LastMessageAt:  req.LastMessageAt,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	f.threads[th.ID] = th
	return th, nil
}

func (f *fakeThreadStore) RecordMessage(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	th, ok := f.threads[id]
	if !ok {
		return db.ErrNotFound
	}
	if th.LastMessageAt == nil || th.LastMessageAt.Before(sentAt) {
		at := sentAt
		th.LastMessageAt = &at
	}
	th.UnreadCount++
	f.recorded = append(f.recorded, id)
	return nil
}

// fakeMessageStore is an in-memory message table enforcing the
// close_activity_id uniqueness constraint
type fakeMessageStore struct {
	byActivityID map[string]*repository.Message
	all          []*repository.Message
	createErr    error
	existsErr    error
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{byActivityID: make(map[string]*repository.Message)}
}

func (f *fakeMessageStore) ExistsByCloseActivityID(ctx context.Context, closeActivityID string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.byActivityID[closeActivityID]
	return ok, nil
}

func (f *fakeMessageStore) Create(ctx context.Context, req repository.CreateMessageRequest) (*repository.Message, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if req.CloseActivityID != nil {
		if _, ok := f.byActivityID[*req.CloseActivityID]; ok {
			return nil, uniqueViolation()
		}
	}
	msg := &repository.Message{
		ID:              uuid.New(),
		ThreadID:        req.ThreadID,
		CloseActivityID: req.CloseActivityID,
		SenderType:      req.SenderType,
		Content:         req.Content,
		MessageType:     req.MessageType,
		SentAt:          req.SentAt,
		IsHistorical:    req.IsHistorical,
		StaffName:       req.StaffName,
		StaffEmail:      req.StaffEmail,
		CreatedAt:       time.Now(),
	}
	if req.CloseActivityID != nil {
		f.byActivityID[*req.CloseActivityID] = msg
	}
	f.all = append(f.all, msg)
	return msg, nil
}

// fakeStatusStore is an in-memory user_sync_status table plus run audit log
type fakeStatusStore struct {
	statuses map[uuid.UUID]*repository.UserSyncStatus
	setErr   error
	getErr   error
	startErr error

	transitions []repository.SyncStatus
	runs        []repository.CompleteRunResult
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{statuses: make(map[uuid.UUID]*repository.UserSyncStatus)}
}

func (f *fakeStatusStore) Get(ctx context.Context, userID uuid.UUID) (*repository.UserSyncStatus, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if st, ok := f.statuses[userID]; ok {
		return st, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeStatusStore) Set(ctx context.Context, userID uuid.UUID, status repository.SyncStatus) (*repository.UserSyncStatus, error) {
	if f.setErr != nil {
		return nil, f.setErr
	}
	st := &repository.UserSyncStatus{UserID: userID, Status: status, UpdatedAt: time.Now()}
	if prev, ok := f.statuses[userID]; ok {
		st.LastSyncedAt = prev.LastSyncedAt
	}
	f.statuses[userID] = st
	f.transitions = append(f.transitions, status)
	return st, nil
}

func (f *fakeStatusStore) MarkCompleted(ctx context.Context, userID uuid.UUID, syncedAt time.Time) (*repository.UserSyncStatus, error) {
	st := &repository.UserSyncStatus{
		UserID:       userID,
		Status:       repository.SyncStatusCompleted,
		LastSyncedAt: &syncedAt,
		UpdatedAt:    time.Now(),
	}
	f.statuses[userID] = st
	f.transitions = append(f.transitions, repository.SyncStatusCompleted)
	return st, nil
}

func (f *fakeStatusStore) StartRun(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	if f.startErr != nil {
		return uuid.Nil, f.startErr
	}
	return uuid.New(), nil
}

func (f *fakeStatusStore) CompleteRun(ctx context.Context, runID uuid.UUID, result repository.CompleteRunResult) error {
	f.runs = append(f.runs, result)
	return nil
}
