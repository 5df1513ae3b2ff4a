package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

// In-memory fakes

type fakeRepo struct {
	profiles  map[uuid.UUID]Profile
	offerings map[uuid.UUID]Offering
	bookings  map[uuid.UUID]Booking

	// invoked between the read and the CAS write, to simulate a lost race
	beforeUpdate func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		profiles:  map[uuid.UUID]Profile{},
		offerings: map[uuid.UUID]Offering{},
		bookings:  map[uuid.UUID]Booking{},
	}
}

func (r *fakeRepo) GetProfileByID(_ context.Context, id uuid.UUID) (*Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return &p, nil
}

func (r *fakeRepo) GetOfferingByID(_ context.Context, id uuid.UUID) (*Offering, error) {
	o, ok := r.offerings[id]
	if !ok {
		return nil, ErrOfferingNotFound
	}
	return &o, nil
}

func (r *fakeRepo) GetBookingByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return &b, nil
}

func (r *fakeRepo) FindOverlapping(_ context.Context, providerID uuid.UUID, start, end time.Time) ([]Booking, error) {
	var out []Booking
	for _, b := range r.bookings {
		if b.ProviderID != providerID {
			continue
		}
		if b.Status != StatusPending && b.Status != StatusConfirmed {
			continue
		}
		if b.StartTime.Before(end) && start.Before(b.EndTime) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateBooking(_ context.Context, b *Booking) (*Booking, error) {
	stored := *b
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.bookings[stored.ID] = stored
	return &stored, nil
}

func (r *fakeRepo) UpdateBookingStatus(_ context.Context, id uuid.UUID, from, to Status, upd StatusUpdate) (*Booking, error) {
	if r.beforeUpdate != nil {
		r.beforeUpdate()
	}
	b, ok := r.bookings[id]
	if !ok || b.Status != from {
		return nil, ErrBookingNotFound
	}
	b.Status = to
	if upd.CancellationReason != nil {
		b.CancellationReason = *upd.CancellationReason
	}
	if upd.CancellationNotes != nil {
		b.CancellationNotes = *upd.CancellationNotes
	}
	if upd.CancellationFee != nil {
		fee := *upd.CancellationFee
		b.CancellationFee = &fee
	}
	b.UpdatedAt = time.Now()
	r.bookings[id] = b
	return &b, nil
}

func (r *fakeRepo) MarkReviewed(_ context.Context, id uuid.UUID) (*Booking, error) {
	b, ok := r.bookings[id]
	if !ok || b.Status != StatusCompleted || b.HasReview {
		return nil, ErrBookingNotFound
	}
	b.HasReview = true
	r.bookings[id] = b
	return &b, nil
}

func (r *fakeRepo) ListByCustomer(_ context.Context, customerID uuid.UUID, f ListFilter) ([]Booking, error) {
	var out []Booking
	for _, b := range r.bookings {
		if b.CustomerID == customerID && (f.Status == "" || b.Status == f.Status) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListByProvider(_ context.Context, providerID uuid.UUID, f ListFilter) ([]Booking, error) {
	var out []Booking
	for _, b := range r.bookings {
		if b.ProviderID == providerID && (f.Status == "" || b.Status == f.Status) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeRepo) FindConfirmedStartingBetween(_ context.Context, from, to time.Time) ([]Booking, error) {
	var out []Booking
	for _, b := range r.bookings {
		if b.Status == StatusConfirmed && !b.StartTime.Before(from) && b.StartTime.Before(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

type passLocker struct{}

func (passLocker) WithLock(ctx context.Context, _ string, _ uuid.UUID, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type captureSink struct {
	events []Event
	fail   bool
}

func (s *captureSink) Append(_ context.Context, ev Event) error {
	if s.fail {
		return fmt.Errorf("sink unavailable")
	}
	s.events = append(s.events, ev)
	return nil
}

// Fixture

type fixture struct {
	svc      *Service
	repo     *fakeRepo
	sink     *captureSink
	now      time.Time
	customer Actor
	provider Actor
	offering Offering
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakeRepo()
	sink := &captureSink{}
	svc := NewService(repo, passLocker{}, sink, DefaultFeePolicy())

	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	customerID := uuid.New()
	providerID := uuid.New()
	repo.profiles[customerID] = Profile{ID: customerID, Name: "Ada", Role: RoleCustomer, Contact: "ada@example.com"}
	repo.profiles[providerID] = Profile{ID: providerID, Name: "Bea", Role: RoleProvider, Contact: "bea@example.com"}

	offeringID := uuid.New()
	off := Offering{
		ID:         offeringID,
		ProviderID: providerID,
		Title:      "Deep Tissue Massage",
		Price:      10000,
		Duration:   time.Hour,
	}
	repo.offerings[offeringID] = off

	return &fixture{
		svc:      svc,
		repo:     repo,
		sink:     sink,
		now:      now,
		customer: Actor{ProfileID: customerID, Role: RoleCustomer},
		provider: Actor{ProfileID: providerID, Role: RoleProvider},
		offering: off,
	}
}

func (f *fixture) seedBooking(t *testing.T, status Status, startTime time.Time) *Booking {
	t.Helper()
	b := Booking{
		ID:         uuid.New(),
		CustomerID: f.customer.ProfileID,
		ProviderID: f.provider.ProfileID,
		OfferingID: f.offering.ID,
		StartTime:  startTime,
		EndTime:    startTime.Add(f.offering.Duration),
		Status:     status,
		Price:      f.offering.Price,
	}
	f.repo.bookings[b.ID] = b
	return &b
}

func (f *fixture) eventsOfType(eventType string) []Event {
	var out []Event
	for _, ev := range f.sink.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// Create

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	start := f.now.Add(48 * time.Hour)

	b, err := f.svc.Create(context.Background(), f.customer, f.offering.ID, start, "first visit")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if b.Status != StatusPending {
		t.Fatalf("expected pending, got %s", b.Status)
	}
	if b.Price != 10000 {
		t.Fatalf("expected price snapshot 10000, got %d", b.Price)
	}
	if !b.EndTime.Equal(start.Add(time.Hour)) {
		t.Fatalf("expected end time derived from duration, got %s", b.EndTime)
	}

	created := f.eventsOfType(EventBookingCreated)
	if len(created) != 1 {
		t.Fatalf("expected 1 created event, got %d", len(created))
	}
	if created[0].ServiceName != "Deep Tissue Massage" {
		t.Fatalf("event missing service name: %+v", created[0])
	}
	if created[0].ProviderContact != "bea@example.com" {
		t.Fatalf("event missing provider contact: %+v", created[0])
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	start := f.now.Add(48 * time.Hour)
	f.seedBooking(t, StatusConfirmed, start.Add(30*time.Minute))

	_, err := f.svc.Create(context.Background(), f.customer, f.offering.ID, start, "")
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestCreateIgnoresCancelledOverlap(t *testing.T) {
	f := newFixture(t)
	start := f.now.Add(48 * time.Hour)
	cancelled := f.seedBooking(t, StatusCancelled, start)
	_ = cancelled

	if _, err := f.svc.Create(context.Background(), f.customer, f.offering.ID, start, ""); err != nil {
		t.Fatalf("cancelled booking should not block the slot: %v", err)
	}
}

func TestCreateUnknownOffering(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.customer, uuid.New(), f.now.Add(time.Hour), "")
	if !errors.Is(err, ErrOfferingNotFound) {
		t.Fatalf("expected ErrOfferingNotFound, got %v", err)
	}
}

func TestCreateProviderRoleRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.provider, f.offering.ID, f.now.Add(time.Hour), "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

// Approve / Decline

func TestApprove(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusPending, f.now.Add(48*time.Hour))

	updated, err := f.svc.Approve(context.Background(), f.provider, b.ID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if updated.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", updated.Status)
	}

	confirmed := f.eventsOfType(EventBookingConfirmed)
	if len(confirmed) != 1 {
		t.Fatalf("expected exactly 1 confirmed event, got %d", len(confirmed))
	}
	if confirmed[0].CustomerContact != "ada@example.com" {
		t.Fatalf("confirmed event missing customer contact: %+v", confirmed[0])
	}
}

func TestApproveByCustomerRejected(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusPending, f.now.Add(48*time.Hour))

	_, err := f.svc.Approve(context.Background(), f.customer, b.ID)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if f.repo.bookings[b.ID].Status != StatusPending {
		t.Fatal("booking must be unchanged after rejected approve")
	}
}

func TestDecline(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusPending, f.now.Add(48*time.Hour))

	updated, err := f.svc.Decline(context.Background(), f.provider, b.ID)
	if err != nil {
		t.Fatalf("Decline failed: %v", err)
	}
	if updated.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}
	if updated.CancellationReason != DeclineReason {
		t.Fatalf("expected decline reason, got %q", updated.CancellationReason)
	}
	if updated.CancellationFee != nil {
		t.Fatalf("decline must not charge a fee, got %d", *updated.CancellationFee)
	}
}

// Cancel

func TestCancelOutsideCutoff(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusConfirmed, f.now.Add(30*time.Hour))

	updated, err := f.svc.Cancel(context.Background(), f.customer, b.ID, "travel plans changed", "")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if updated.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}
	if updated.CancellationFee == nil || *updated.CancellationFee != 0 {
		t.Fatalf("expected fee 0, got %v", updated.CancellationFee)
	}
}

func TestCancelInsideCutoff(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusConfirmed, f.now.Add(10*time.Hour))

	updated, err := f.svc.Cancel(context.Background(), f.customer, b.ID, "sick", "sorry")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if updated.CancellationFee == nil || *updated.CancellationFee != 5000 {
		t.Fatalf("expected fee 5000, got %v", updated.CancellationFee)
	}
	if updated.CancellationNotes != "sorry" {
		t.Fatalf("expected cancellation notes, got %q", updated.CancellationNotes)
	}
}

func TestCancelFromPending(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusPending, f.now.Add(48*time.Hour))

	updated, err := f.svc.Cancel(context.Background(), f.customer, b.ID, "changed my mind", "")
	if err != nil {
		t.Fatalf("Cancel from pending failed: %v", err)
	}
	if updated.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}
}

func TestCancelRequiresReason(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusConfirmed, f.now.Add(48*time.Hour))

	_, err := f.svc.Cancel(context.Background(), f.customer, b.ID, "", "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCancelByProviderRejected(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusConfirmed, f.now.Add(48*time.Hour))

	_, err := f.svc.Cancel(context.Background(), f.provider, b.ID, "reason", "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestCancelFeeUsesSnapshottedPrice(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusConfirmed, f.now.Add(10*time.Hour))

	// Provider doubles the offering price after the booking was made.
	off := f.repo.offerings[f.offering.ID]
	off.Price = 20000
	f.repo.offerings[f.offering.ID] = off

	updated, err := f.svc.Cancel(context.Background(), f.customer, b.ID, "sick", "")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if updated.Price != 10000 {
		t.Fatalf("booking price must stay snapshotted, got %d", updated.Price)
	}
	if *updated.CancellationFee != 5000 {
		t.Fatalf("fee must be computed from the snapshot, got %d", *updated.CancellationFee)
	}
}

// Complete / no-show

func TestCompleteBeforeStartRejected(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusConfirmed, f.now.Add(2*time.Hour))

	_, err := f.svc.Complete(context.Background(), f.provider, b.ID)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
	if f.repo.bookings[b.ID].Status != StatusConfirmed {
		t.Fatal("booking must be unchanged")
	}
}

func TestCompleteAfterStart(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusConfirmed, f.now.Add(-2*time.Hour))

	updated, err := f.svc.Complete(context.Background(), f.provider, b.ID)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if updated.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}
}

func TestNoShow(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusConfirmed, f.now.Add(-2*time.Hour))

	updated, err := f.svc.MarkNoShow(context.Background(), f.provider, b.ID)
	if err != nil {
		t.Fatalf("MarkNoShow failed: %v", err)
	}
	if updated.Status != StatusNoShow {
		t.Fatalf("expected no_show, got %s", updated.Status)
	}
	if updated.CancellationReason != NoShowReason {
		t.Fatalf("expected no-show reason, got %q", updated.CancellationReason)
	}

	// No-show notifies with a cancelled-class event.
	if len(f.eventsOfType(EventBookingCancelled)) != 1 {
		t.Fatal("expected a cancelled-class event for no-show")
	}
}

func TestNoShowBeforeStartRejected(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusConfirmed, f.now.Add(time.Hour))

	_, err := f.svc.MarkNoShow(context.Background(), f.provider, b.ID)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}

// Transition legality matrix

func TestTerminalStatesAreImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ops := map[string]func(b *Booking) error{
		"approve": func(b *Booking) error {
			_, err := f.svc.Approve(ctx, f.provider, b.ID)
			return err
		},
		"decline": func(b *Booking) error {
			_, err := f.svc.Decline(ctx, f.provider, b.ID)
			return err
		},
		"cancel": func(b *Booking) error {
			_, err := f.svc.Cancel(ctx, f.customer, b.ID, "reason", "")
			return err
		},
		"complete": func(b *Booking) error {
			_, err := f.svc.Complete(ctx, f.provider, b.ID)
			return err
		},
		"no-show": func(b *Booking) error {
			_, err := f.svc.MarkNoShow(ctx, f.provider, b.ID)
			return err
		},
	}

	for _, status := range []Status{StatusCompleted, StatusCancelled, StatusNoShow} {
		for name, op := range ops {
			b := f.seedBooking(t, status, f.now.Add(-2*time.Hour))
			if err := op(b); !errors.Is(err, ErrIllegalTransition) {
				t.Fatalf("%s from %s: expected ErrIllegalTransition, got %v", name, status, err)
			}
			if f.repo.bookings[b.ID].Status != status {
				t.Fatalf("%s from %s: stored status changed", name, status)
			}
		}
	}
}

func TestPendingRejectsCompleteAndNoShow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.seedBooking(t, StatusPending, f.now.Add(-2*time.Hour))
	if _, err := f.svc.Complete(ctx, f.provider, b.ID); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("complete from pending: expected ErrIllegalTransition, got %v", err)
	}
	if _, err := f.svc.MarkNoShow(ctx, f.provider, b.ID); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("no-show from pending: expected ErrIllegalTransition, got %v", err)
	}
}

func TestConfirmedRejectsApproveAndDecline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.seedBooking(t, StatusConfirmed, f.now.Add(48*time.Hour))
	if _, err := f.svc.Approve(ctx, f.provider, b.ID); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("approve from confirmed: expected ErrIllegalTransition, got %v", err)
	}
	if _, err := f.svc.Decline(ctx, f.provider, b.ID); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("decline from confirmed: expected ErrIllegalTransition, got %v", err)
	}
}

// Concurrency and dispatch

func TestLostRaceSurfacesAsConflict(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusPending, f.now.Add(48*time.Hour))

	// Another caller flips the row between our read and our write.
	f.repo.beforeUpdate = func() {
		stored := f.repo.bookings[b.ID]
		if stored.Status == StatusPending {
			stored.Status = StatusConfirmed
			f.repo.bookings[b.ID] = stored
		}
		f.repo.beforeUpdate = nil
	}

	_, err := f.svc.Approve(context.Background(), f.provider, b.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestEventSinkFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(t)
	f.sink.fail = true
	b := f.seedBooking(t, StatusPending, f.now.Add(48*time.Hour))

	updated, err := f.svc.Approve(context.Background(), f.provider, b.ID)
	if err != nil {
		t.Fatalf("Approve must succeed even when the sink is down: %v", err)
	}
	if updated.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", updated.Status)
	}
}

// Reviews

func TestMarkReviewed(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusCompleted, f.now.Add(-48*time.Hour))

	updated, err := f.svc.MarkReviewed(context.Background(), f.customer, b.ID)
	if err != nil {
		t.Fatalf("MarkReviewed failed: %v", err)
	}
	if !updated.HasReview {
		t.Fatal("expected has_review set")
	}

	if _, err := f.svc.MarkReviewed(context.Background(), f.customer, b.ID); !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed on second review, got %v", err)
	}
}

func TestMarkReviewedRequiresCompleted(t *testing.T) {
	f := newFixture(t)
	b := f.seedBooking(t, StatusConfirmed, f.now.Add(-48*time.Hour))

	if _, err := f.svc.MarkReviewed(context.Background(), f.customer, b.ID); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition, got %v", err)
	}
}
