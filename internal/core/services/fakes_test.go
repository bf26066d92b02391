package services_test

import (
	"context"
	"sync"
	"time"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/ports"
)

// sentEvent captures one envelope queued on a fake client.
type sentEvent struct {
	eventType string
	payload   any
}

type fakeClient struct {
	mu       sync.Mutex
	id       string
	identity domain.Identity
	events   []sentEvent
	sendErr  error
}

func newFakeClient(id string, identity domain.Identity) *fakeClient {
	return &fakeClient{id: id, identity: identity}
}

func (c *fakeClient) ID() string                { return c.id }
func (c *fakeClient) Identity() domain.Identity { return c.identity }

func (c *fakeClient) Send(eventType string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.events = append(c.events, sentEvent{eventType: eventType, payload: payload})
	return nil
}

func (c *fakeClient) SendRaw(data []byte) error {
	return c.Send("raw", data)
}

func (c *fakeClient) sent() []sentEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sentEvent, len(c.events))
	copy(out, c.events)
	return out
}

// fakeRegistry records membership mutations and broadcasts.
type fakeRegistry struct {
	mu         sync.Mutex
	joins      []domain.RoundID
	leaves     int
	broadcasts []sentEvent
}

func (r *fakeRegistry) Join(client ports.Client, roundID domain.RoundID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joins = append(r.joins, roundID)
}

func (r *fakeRegistry) Leave(client ports.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaves++
}

func (r *fakeRegistry) Broadcast(ctx context.Context, roundID domain.RoundID, eventType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, sentEvent{eventType: eventType, payload: payload})
}

func (r *fakeRegistry) LocalMembers(roundID domain.RoundID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.joins)
}

func (r *fakeRegistry) broadcastTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.broadcasts))
	for _, b := range r.broadcasts {
		out = append(out, b.eventType)
	}
	return out
}

// stubInsightRepo wraps recorded inserts with injectable failures.
type stubInsightRepo struct {
	mu        sync.Mutex
	insertErr error
	listErr   error
	inserted  []*domain.Insight
	stored    []*domain.Insight
}

func (r *stubInsightRepo) Insert(ctx context.Context, insight *domain.Insight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, insight)
	return nil
}

func (r *stubInsightRepo) ListSince(ctx context.Context, roundID domain.RoundID, since time.Time) ([]*domain.Insight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]*domain.Insight, 0)
	for _, in := range r.stored {
		if in.RoundID == roundID {
			out = append(out, in)
		}
	}
	return out, nil
}

// stubAlertRepo records promoted alerts with injectable failures.
type stubAlertRepo struct {
	mu        sync.Mutex
	insertErr error
	ackErr    error
	inserted  []*domain.FraudAlert
	acked     []domain.FraudAlertID
}

func (r *stubAlertRepo) Insert(ctx context.Context, alert *domain.FraudAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, alert)
	return nil
}

func (r *stubAlertRepo) GetByID(ctx context.Context, id domain.FraudAlertID) (*domain.FraudAlert, error) {
	return nil, domain.ErrAlertNotFound
}

func (r *stubAlertRepo) ListByRound(ctx context.Context, roundID domain.RoundID) ([]*domain.FraudAlert, error) {
	return nil, nil
}

func (r *stubAlertRepo) Acknowledge(ctx context.Context, id domain.FraudAlertID, by domain.UserID, falsePositive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ackErr != nil {
		return r.ackErr
	}
	r.acked = append(r.acked, id)
	return nil
}

// stubRoundRepo returns one fixed round or an injected error.
type stubRoundRepo struct {
	round *domain.Round
	err   error
}

func (r *stubRoundRepo) GetByID(ctx context.Context, id domain.RoundID) (*domain.Round, error) {
	if r.err != nil {
		return nil, r.err
	}
	if r.round == nil || r.round.ID != id {
		return nil, domain.ErrRoundNotFound
	}
	copied := *r.round
	return &copied, nil
}

// stubMediaLog records appended fragments with an injectable failure.
type stubMediaLog struct {
	mu        sync.Mutex
	appendErr error
	appended  []*domain.MediaFragment
}

func (l *stubMediaLog) Append(ctx context.Context, fragment *domain.MediaFragment) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.appendErr != nil {
		return l.appendErr
	}
	copied := *fragment
	l.appended = append(l.appended, &copied)
	return nil
}

// stubAnalysisGateway records forwarded media.
type stubAnalysisGateway struct {
	mu         sync.Mutex
	submitErr  error
	frames     int
	audioCalls int
}

func (g *stubAnalysisGateway) SubmitFrame(ctx context.Context, roundID domain.RoundID, frameB64 string, timestampMs int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.frames++
	return g.submitErr
}

func (g *stubAnalysisGateway) SubmitAudio(ctx context.Context, roundID domain.RoundID, audioB64 string, timestampMs int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.audioCalls++
	return g.submitErr
}

func (g *stubAnalysisGateway) ProbeHealth(ctx context.Context, dependency string) error {
	return nil
}

func (g *stubAnalysisGateway) Dependencies() []string {
	return []string{"fraud"}
}
