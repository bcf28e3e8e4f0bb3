package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"essaygenius/internal/domain"
	"essaygenius/internal/domain/model"
	"essaygenius/internal/domain/ports/adapter"
	"essaygenius/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memJobRepo is a small in-memory implementation used by unit tests.
type memJobRepo struct {
	mu     sync.Mutex
	store  map[string]*model.Job
	stages []string // stage labels in write order
	crErr  error

	progressLog []int
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: make(map[string]*model.Job)}
}

func (m *memJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	if m.crErr != nil {
		return m.crErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.store[job.ID] = &cp
	return nil
}

func (m *memJobRepo) Find(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) FetchAndMarkProcessing(ctx context.Context) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.store {
		if j.Status == model.JobStatusPending {
			j.Status = model.JobStatusProcessing
			cp := *j
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memJobRepo) SetStage(ctx context.Context, tx repository.Tx, id, stage string, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.SetStage(stage, progress)
	m.stages = append(m.stages, stage)
	m.progressLog = append(m.progressLog, j.Progress)
	return nil
}

func (m *memJobRepo) Complete(ctx context.Context, tx repository.Tx, id string, result json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Terminal() {
		return domain.ErrJobTerminal
	}
	j.Complete(result)
	return nil
}

func (m *memJobRepo) Fail(ctx context.Context, tx repository.Tx, id, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if j.Terminal() {
		return domain.ErrJobTerminal
	}
	j.Fail(message)
	return nil
}

type memProfileRepo struct {
	mu    sync.Mutex
	store map[string]*model.UserProfile
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{store: make(map[string]*model.UserProfile)}
}

func (m *memProfileRepo) Find(ctx context.Context, tx repository.Tx, userID string) (*model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProfileRepo) CreateIfAbsent(ctx context.Context, tx repository.Tx, userID, email string, initialCredits int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[userID]; ok {
		return nil
	}
	m.store[userID] = &model.UserProfile{ID: userID, Email: email, Credits: initialCredits, CreatedAt: time.Now()}
	return nil
}

func (m *memProfileRepo) Debit(ctx context.Context, tx repository.Tx, userID string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[userID]
	if !ok || p.Credits < amount {
		return 0, domain.ErrInsufficientCredits
	}
	p.Credits -= amount
	return p.Credits, nil
}

func (m *memProfileRepo) Credit(ctx context.Context, tx repository.Tx, userID string, amount int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[userID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	p.Credits += amount
	return p.Credits, nil
}

type memPaperRepo struct {
	mu    sync.Mutex
	store map[string]*model.Paper
	seq   int
}

func newMemPaperRepo() *memPaperRepo {
	return &memPaperRepo{store: make(map[string]*model.Paper)}
}

func (m *memPaperRepo) Save(ctx context.Context, tx repository.Tx, p *model.Paper) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		m.seq++
		p.ID = fmt.Sprintf("paper-%d", m.seq)
	}
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPaperRepo) Find(ctx context.Context, tx repository.Tx, id string) (*model.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPaperRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Paper
	for _, p := range m.store {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPaperRepo) Delete(ctx context.Context, tx repository.Tx, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok || p.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

type memPaymentRepo struct {
	mu    sync.Mutex
	store map[string]*model.Payment
	// stalePending makes FindBySessionID report pending even after the
	// row has succeeded, like a reader racing a concurrent redelivery.
	stalePending bool
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{store: make(map[string]*model.Payment)}
}

func (m *memPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = fmt.Sprintf("pay-%d", len(m.store)+1)
	}
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *memPaymentRepo) FindBySessionID(ctx context.Context, tx repository.Tx, sessionID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.store {
		if p.SessionID == sessionID {
			cp := *p
			if m.stalePending {
				cp.Status = model.PaymentStatusPending
			}
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memPaymentRepo) MarkSucceeded(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.store[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if p.Status != model.PaymentStatusPending {
		return false, nil
	}
	p.Status = model.PaymentStatusSucceeded
	return true, nil
}

// memLocker tracks held locks in memory.
type memLocker struct {
	mu   sync.Mutex
	held map[string]string // key -> token
	seq  int
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]string)}
}

func (m *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.held[key]; ok {
		return "", domain.ErrLockHeld
	}
	m.seq++
	token := fmt.Sprintf("token-%d", m.seq)
	m.held[key] = token
	return token, nil
}

func (m *memLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

func (m *memLocker) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
}

func (m *memLocker) locked(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[key]
	return ok
}

// memTxManager runs the function directly; the fakes ignore tx handles.
type memTxManager struct{}

func (memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// scriptedAI lets each test drive adapter responses per call.
type scriptedAI struct {
	chatFunc     func(model string, messages []adapter.Message) (string, error)
	chatJSONFunc func(model string, messages []adapter.Message, out any) error
	embedFunc    func(text string) ([]float32, error)
}

func (s *scriptedAI) CountTokens(ctx context.Context, model string, messages []adapter.Message) (int, error) {
	return 42, nil
}

func (s *scriptedAI) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	if s.chatFunc != nil {
		return s.chatFunc(model, messages)
	}
	return "scripted response", nil
}

func (s *scriptedAI) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	text, err := s.Chat(ctx, model, messages)
	return text, adapter.Usage{}, err
}

func (s *scriptedAI) ChatJSON(ctx context.Context, model string, messages []adapter.Message, out any) error {
	if s.chatJSONFunc != nil {
		return s.chatJSONFunc(model, messages, out)
	}
	return json.Unmarshal([]byte(`{}`), out)
}

func (s *scriptedAI) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedFunc != nil {
		return s.embedFunc(text)
	}
	v := make([]float32, 4)
	for i, r := range text {
		v[i%4] += float32(r)
	}
	return v, nil
}

// memStore records uploads in memory.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = b
	return nil
}

func (m *memStore) PresignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return "", domain.ErrNotFound
	}
	return "https://store.local/" + path, nil
}

func (m *memStore) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, path)
	return nil
}

// stubGateway satisfies adapter.PaymentGateway for payment tests.
type stubGateway struct {
	sessions int
	parseErr error
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) CreateCheckoutSession(ctx context.Context, userID string, quantity int) (*adapter.CheckoutSession, error) {
	g.sessions++
	id := fmt.Sprintf("cs_test_%d", g.sessions)
	return &adapter.CheckoutSession{ID: id, URL: "https://checkout.local/" + id}, nil
}

func (g *stubGateway) ParseWebhook(payload []byte, signatureHeader string) (*adapter.WebhookEvent, error) {
	if g.parseErr != nil {
		return nil, g.parseErr
	}
	var ev adapter.WebhookEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
