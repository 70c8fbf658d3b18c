package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"consultline/database/repository/memory"
	sessionRepo "consultline/database/repository/session"
	"consultline/models"
	"consultline/services/media"
	"consultline/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Session
}

func (p *recordingPublisher) Publish(s models.Session) {
	p.mu.Lock()
	p.events = append(p.events, s)
	p.mu.Unlock()
}

type recordingScheduler struct {
	mu  sync.Mutex
	ats map[string][]time.Time
}

func (r *recordingScheduler) ScheduleExpiry(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ats[id] = append(r.ats[id], at)
	return nil
}

type fixture struct {
	engine *DefaultSessionEngine
	store  *memory.Store
	clock  *fakeClock
	pub    *recordingPublisher
	sched  *recordingScheduler
	guest  models.Identity
	prac   models.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := &fakeClock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	minter, err := media.NewJWTMinter("app-test", "cert-test", time.Hour)
	if err != nil {
		t.Fatalf("minter: %v", err)
	}
	f := &fixture{
		store: store,
		clock: clock,
		pub:   &recordingPublisher{},
		sched: &recordingScheduler{ats: map[string][]time.Time{}},
	}
	f.engine = &DefaultSessionEngine{
		Sessions:      store.Sessions(),
		Practitioners: store.Practitioners(),
		Profiles:      store.Profiles(),
		Reviews:       store.Reviews(),
		Minter:        minter,
		Publisher:     f.pub,
		Expiry:        f.sched,
		Timing:        Timing{WaitingTimeout: 2 * time.Minute, LiveGrace: 30 * time.Second, MaxLiveSeconds: 7200},
		Now:           clock.Now,
		Logger:        zap.NewNop(),
	}
	f.guest = f.addGuest(t, "Grace")
	f.prac = f.addPractitioner(t, "Dr. Pax", true)
	return f
}

func (f *fixture) addGuest(t *testing.T, name string) models.Identity {
	t.Helper()
	id := uuid.NewString()
	if err := f.store.Profiles().Create(context.Background(), &models.Profile{ID: id, Role: models.RoleGuest, DisplayName: name}); err != nil {
		t.Fatal(err)
	}
	return models.Identity{UserID: id, Role: models.RoleGuest}
}

func (f *fixture) addPractitioner(t *testing.T, name string, online bool) models.Identity {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()
	if err := f.store.Profiles().Create(ctx, &models.Profile{ID: id, Role: models.RolePractitioner, DisplayName: name}); err != nil {
		t.Fatal(err)
	}
	if err := f.store.Practitioners().Create(ctx, &models.Practitioner{UserID: id, IsOnline: online}); err != nil {
		t.Fatal(err)
	}
	return models.Identity{UserID: id, Role: models.RolePractitioner}
}

func (f *fixture) start(t *testing.T) *models.Session {
	t.Helper()
	s, err := f.engine.Start(context.Background(), f.guest, StartRequest{PractitionerID: f.prac.UserID, LiveSeconds: 600})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s
}

func (f *fixture) practitioner(t *testing.T) *models.Practitioner {
	t.Helper()
	p, err := f.store.Practitioners().GetByID(context.Background(), f.prac.UserID)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func wantKind(t *testing.T, err error, kind utils.ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("err = nil, want %v", kind)
	}
	if got := utils.KindOf(err); got != kind {
		t.Fatalf("err = %v (%v), want %v", err, got, kind)
	}
}

func TestHappyPathGoesLive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	s := f.start(t)
	if s.Phase != models.PhaseWaiting {
		t.Fatalf("phase = %s, want waiting", s.Phase)
	}
	if s.AgoraChannel != channelFor(s.ID) || len(s.AgoraChannel) != 17 {
		t.Fatalf("channel = %q", s.AgoraChannel)
	}
	if p := f.practitioner(t); !p.InService || p.ActiveSessionID != s.ID {
		t.Fatalf("practitioner not reserved: %+v", p)
	}

	if _, err := f.engine.Acknowledge(ctx, f.prac, s.ID); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	got, err := f.engine.MarkReady(ctx, f.prac, s.ID, models.ParticipantPractitioner)
	if err != nil {
		t.Fatalf("MarkReady(practitioner): %v", err)
	}
	if got.Phase != models.PhaseWaiting {
		t.Fatalf("phase after one ready = %s", got.Phase)
	}

	f.clock.Advance(10 * time.Second)
	got, err = f.engine.MarkReady(ctx, f.guest, s.ID, models.ParticipantGuest)
	if err != nil {
		t.Fatalf("MarkReady(guest): %v", err)
	}
	if got.Phase != models.PhaseLive || got.LiveStartedAt == nil {
		t.Fatalf("session = %+v, want live", got)
	}
	wantExpiry := f.clock.Now().Add(600*time.Second + 30*time.Second)
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("ExpiresAt = %v, want %v", got.ExpiresAt, wantExpiry)
	}
	if ats := f.sched.ats[s.ID]; len(ats) != 2 || !ats[1].Equal(wantExpiry) {
		t.Fatalf("scheduled expiries = %v", ats)
	}
	if n := len(f.pub.events); n != 4 {
		t.Fatalf("published %d events, want 4", n)
	}
}

func TestReadyOrderDoesNotMatter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.start(t)

	if _, err := f.engine.Acknowledge(ctx, f.prac, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.MarkReady(ctx, f.guest, s.ID, models.ParticipantGuest); err != nil {
		t.Fatal(err)
	}
	got, err := f.engine.MarkReady(ctx, f.prac, s.ID, models.ParticipantPractitioner)
	if err != nil {
		t.Fatal(err)
	}
	if got.Phase != models.PhaseLive {
		t.Fatalf("phase = %s, want live", got.Phase)
	}
}

func TestAcceptAfterGuestReadyGoesLive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.start(t)

	if _, err := f.engine.MarkReady(ctx, f.guest, s.ID, models.ParticipantGuest); err != nil {
		t.Fatal(err)
	}
	got, err := f.engine.Accept(ctx, f.prac, s.ID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if !got.AcknowledgedPractitioner || !got.ReadyPractitioner || got.Phase != models.PhaseLive {
		t.Fatalf("session = %+v, want acknowledged, ready and live", got)
	}
}

func TestPractitionerReadyRequiresAcknowledge(t *testing.T) {
	f := newFixture(t)
	s := f.start(t)

	_, err := f.engine.MarkReady(context.Background(), f.prac, s.ID, models.ParticipantPractitioner)
	wantKind(t, err, utils.KindInvalidState)
}

func TestParticipantMarksOtherSideReady(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.start(t)

	_, err := f.engine.MarkReady(ctx, f.guest, s.ID, models.ParticipantPractitioner)
	wantKind(t, err, utils.KindInvalidState)

	if _, err := f.engine.Acknowledge(ctx, f.prac, s.ID); err != nil {
		t.Fatalf("Acknowledge: %v", err)
	}
	if _, err := f.engine.MarkReady(ctx, f.guest, s.ID, models.ParticipantGuest); err != nil {
		t.Fatalf("MarkReady(guest): %v", err)
	}
	got, err := f.engine.MarkReady(ctx, f.guest, s.ID, models.ParticipantPractitioner)
	if err != nil {
		t.Fatalf("MarkReady(practitioner) by guest: %v", err)
	}
	if got.Phase != models.PhaseLive {
		t.Fatalf("phase = %q, want live", got.Phase)
	}
}

func TestPractitionerMarksGuestReady(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.start(t)

	got, err := f.engine.MarkReady(ctx, f.prac, s.ID, models.ParticipantGuest)
	if err != nil {
		t.Fatalf("MarkReady(guest) by practitioner: %v", err)
	}
	if !got.ReadyGuest || got.Phase != models.PhaseWaiting {
		t.Fatalf("session = %+v, want guest ready and waiting", got)
	}
}

func TestRoleChecks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.start(t)
	stranger := f.addGuest(t, "Stranger")

	tests := []struct {
		name string
		call func() error
		kind utils.ErrorKind
	}{
		{"guest accept", func() error { _, err := f.engine.Accept(ctx, f.guest, s.ID); return err }, utils.KindForbidden},
		{"guest acknowledge", func() error { _, err := f.engine.Acknowledge(ctx, f.guest, s.ID); return err }, utils.KindForbidden},
		{"guest reject", func() error { _, err := f.engine.Reject(ctx, f.guest, s.ID); return err }, utils.KindForbidden},
		{"stranger end", func() error { _, err := f.engine.End(ctx, stranger, s.ID); return err }, utils.KindForbidden},
		{"stranger ready", func() error {
			_, err := f.engine.MarkReady(ctx, stranger, s.ID, models.ParticipantGuest)
			return err
		}, utils.KindForbidden},
		{"stranger get", func() error { _, err := f.engine.Get(ctx, stranger, s.ID); return err }, utils.KindForbidden},
		{"bad who", func() error { _, err := f.engine.MarkReady(ctx, f.guest, s.ID, "observer"); return err }, utils.KindValidation},
		{"unknown session", func() error { _, err := f.engine.End(ctx, f.guest, uuid.NewString()); return err }, utils.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantKind(t, tt.call(), tt.kind)
		})
	}
}

func TestEndIsIdempotentAndReleases(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.start(t)

	first, err := f.engine.End(ctx, f.guest, s.ID)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if first.Phase != models.PhaseEnded || first.EndReason != models.EndCompleted || first.EndedAt == nil {
		t.Fatalf("session = %+v, want ended", first)
	}
	if p := f.practitioner(t); p.InService {
		t.Fatal("practitioner still in service after End")
	}

	f.clock.Advance(time.Minute)
	second, err := f.engine.End(ctx, f.prac, s.ID)
	if err != nil {
		t.Fatalf("second End: %v", err)
	}
	if !second.EndedAt.Equal(*first.EndedAt) || second.Version != first.Version {
		t.Fatalf("second End changed the session: %+v vs %+v", second, first)
	}
}

func TestTerminalSessionRejectsTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.start(t)
	if _, err := f.engine.End(ctx, f.prac, s.ID); err != nil {
		t.Fatal(err)
	}

	_, err := f.engine.MarkReady(ctx, f.guest, s.ID, models.ParticipantGuest)
	wantKind(t, err, utils.KindInvalidState)
	_, err = f.engine.Acknowledge(ctx, f.prac, s.ID)
	wantKind(t, err, utils.KindInvalidState)
	_, err = f.engine.Accept(ctx, f.prac, s.ID)
	wantKind(t, err, utils.KindInvalidState)
	_, err = f.engine.Reject(ctx, f.prac, s.ID)
	wantKind(t, err, utils.KindInvalidState)

	got, err := f.engine.Get(ctx, f.guest, s.ID)
	if err != nil || got.Session.Phase != models.PhaseEnded || got.Session.ReadyGuest {
		t.Fatalf("Get = %+v, %v", got, err)
	}
}

func TestRejectReleasesPractitioner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.start(t)

	got, err := f.engine.Reject(ctx, f.prac, s.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if got.Phase != models.PhaseEnded || got.EndReason != models.EndRejected {
		t.Fatalf("session = %+v, want rejected", got)
	}
	if f.practitioner(t).InService {
		t.Fatal("practitioner still in service")
	}

	// A new guest can now reach the practitioner.
	other := f.addGuest(t, "Next")
	if _, err := f.engine.Start(ctx, other, StartRequest{PractitionerID: f.prac.UserID, LiveSeconds: 60}); err != nil {
		t.Fatalf("Start after reject: %v", err)
	}
}

func TestStartValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	offline := f.addPractitioner(t, "Offline", false)

	tests := []struct {
		name   string
		caller models.Identity
		req    StartRequest
		kind   utils.ErrorKind
	}{
		{"zero seconds", f.guest, StartRequest{PractitionerID: f.prac.UserID, LiveSeconds: 0}, utils.KindValidation},
		{"negative seconds", f.guest, StartRequest{PractitionerID: f.prac.UserID, LiveSeconds: -5}, utils.KindValidation},
		{"too long", f.guest, StartRequest{PractitionerID: f.prac.UserID, LiveSeconds: 7201}, utils.KindValidation},
		{"missing practitioner id", f.guest, StartRequest{LiveSeconds: 60}, utils.KindValidation},
		{"practitioner caller", offline, StartRequest{PractitionerID: f.prac.UserID, LiveSeconds: 60}, utils.KindForbidden},
		{"unknown practitioner", f.guest, StartRequest{PractitionerID: uuid.NewString(), LiveSeconds: 60}, utils.KindNotFound},
		{"offline practitioner", f.guest, StartRequest{PractitionerID: offline.UserID, LiveSeconds: 60}, utils.KindInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Start(ctx, tt.caller, tt.req)
			wantKind(t, err, tt.kind)
		})
	}
	if f.practitioner(t).InService {
		t.Fatal("failed starts reserved the practitioner")
	}
}

func TestStartWhileBusy(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	other := f.addGuest(t, "Second")

	_, err := f.engine.Start(context.Background(), other, StartRequest{PractitionerID: f.prac.UserID, LiveSeconds: 60})
	wantKind(t, err, utils.KindInvalidState)
}

func TestConcurrentStartSingleWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const n = 16
	guests := make([]models.Identity, n)
	for i := range guests {
		guests[i] = f.addGuest(t, "g")
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.Start(ctx, guests[i], StartRequest{PractitionerID: f.prac.UserID, LiveSeconds: 60})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case utils.KindOf(err) != utils.KindInvalidState:
			t.Fatalf("loser err = %v, want InvalidState", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want 1", wins)
	}
	sessions, _ := f.store.Sessions().ListByPractitioner(ctx, f.prac.UserID)
	if len(sessions) != 1 {
		t.Fatalf("stored sessions = %d, want 1", len(sessions))
	}
}

func TestConcurrentReadyNeverLosesTransition(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		s := f.start(t)
		if _, err := f.engine.Acknowledge(ctx, f.prac, s.ID); err != nil {
			t.Fatal(err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.engine.MarkReady(ctx, f.guest, s.ID, models.ParticipantGuest)
		}()
		go func() {
			defer wg.Done()
			_, _ = f.engine.MarkReady(ctx, f.prac, s.ID, models.ParticipantPractitioner)
		}()
		wg.Wait()

		got, err := f.store.Sessions().GetByID(ctx, s.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Phase != models.PhaseLive {
			t.Fatalf("iteration %d: phase = %s, want live", i, got.Phase)
		}
	}
}

func TestLazyExpiryOfWaitingSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.start(t)

	if got, err := f.engine.Expire(ctx, s.ID); err != nil || got.Phase != models.PhaseWaiting {
		t.Fatalf("early Expire = %+v, %v", got, err)
	}

	f.clock.Advance(2*time.Minute + time.Second)
	detail, err := f.engine.Get(ctx, f.guest, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if detail.Session.Phase != models.PhaseEnded || detail.Session.EndReason != models.EndExpired {
		t.Fatalf("session = %+v, want expired", detail.Session)
	}
	if f.practitioner(t).InService {
		t.Fatal("expired session still holds the practitioner")
	}

	_, err = f.engine.Accept(ctx, f.prac, s.ID)
	wantKind(t, err, utils.KindInvalidState)
}

func TestSweepDueEndsOverdueLiveSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.start(t)
	if _, err := f.engine.Accept(ctx, f.prac, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.MarkReady(ctx, f.guest, s.ID, models.ParticipantGuest); err != nil {
		t.Fatal(err)
	}

	f.clock.Advance(600*time.Second + 29*time.Second)
	if n, err := f.engine.SweepDue(ctx); err != nil || n != 0 {
		t.Fatalf("SweepDue before deadline = %d, %v", n, err)
	}
	f.clock.Advance(time.Second)
	if n, err := f.engine.SweepDue(ctx); err != nil || n != 1 {
		t.Fatalf("SweepDue after deadline = %d, %v", n, err)
	}
	got, _ := f.store.Sessions().GetByID(ctx, s.ID)
	if got.EndReason != models.EndExpired {
		t.Fatalf("end reason = %q, want expired", got.EndReason)
	}
}

func TestMediaToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.start(t)

	_, err := f.engine.MediaToken(ctx, f.guest, s.ID)
	wantKind(t, err, utils.KindInvalidState)

	if _, err := f.engine.Accept(ctx, f.prac, s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.engine.MarkReady(ctx, f.guest, s.ID, models.ParticipantGuest); err != nil {
		t.Fatal(err)
	}

	grant, err := f.engine.MediaToken(ctx, f.guest, s.ID)
	if err != nil {
		t.Fatalf("MediaToken: %v", err)
	}
	if grant.UID != "guest-"+f.guest.UserID || grant.Channel != s.AgoraChannel {
		t.Fatalf("grant = %+v", grant)
	}

	pgrant, err := f.engine.MediaTokenForChannel(ctx, f.prac, s.AgoraChannel, "practitioner-"+f.prac.UserID)
	if err != nil {
		t.Fatalf("MediaTokenForChannel: %v", err)
	}
	if pgrant.UID != "practitioner-"+f.prac.UserID {
		t.Fatalf("uid = %q", pgrant.UID)
	}

	_, err = f.engine.MediaTokenForChannel(ctx, f.prac, s.AgoraChannel, "guest-"+f.guest.UserID)
	wantKind(t, err, utils.KindForbidden)
	_, err = f.engine.MediaTokenForChannel(ctx, f.addGuest(t, "x"), s.AgoraChannel, "")
	wantKind(t, err, utils.KindForbidden)
	_, err = f.engine.MediaTokenForChannel(ctx, f.guest, "snope", "")
	wantKind(t, err, utils.KindNotFound)
}

func TestListForPractitioner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.start(t)
	if _, err := f.engine.End(ctx, f.guest, first.ID); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(time.Minute)
	second := f.start(t)

	list, err := f.engine.ListForPractitioner(ctx, f.prac, "")
	if err != nil {
		t.Fatalf("ListForPractitioner: %v", err)
	}
	if len(list) != 2 || list[0].Session.ID != second.ID || list[1].Session.ID != first.ID {
		t.Fatalf("list order wrong: %+v", list)
	}
	if list[0].Guest == nil || list[0].Guest.DisplayName != "Grace" {
		t.Fatalf("guest profile not joined: %+v", list[0].Guest)
	}

	_, err = f.engine.ListForPractitioner(ctx, f.guest, "")
	wantKind(t, err, utils.KindForbidden)
	_, err = f.engine.ListForPractitioner(ctx, f.prac, uuid.NewString())
	wantKind(t, err, utils.KindForbidden)
}

func TestGetJoinsProfilesAndRating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.start(t)
	if err := f.store.Practitioners().UpdateRating(ctx, f.prac.UserID, 4.5, 2, f.clock.Now()); err != nil {
		t.Fatal(err)
	}

	detail, err := f.engine.Get(ctx, f.prac, s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if detail.Guest == nil || detail.Practitioner == nil {
		t.Fatalf("profiles missing: %+v", detail)
	}
	if detail.Rating != 4.5 || detail.ReviewCount != 2 || detail.Review != nil {
		t.Fatalf("detail = %+v", detail)
	}
}

// failingUpdates rejects every Update with a store error.
type failingUpdates struct {
	sessionRepo.SessionRepository
}

func (failingUpdates) Update(context.Context, string, sessionRepo.MutateFunc) (*models.Session, error) {
	return nil, errors.New("write concern timeout")
}

func TestListForPractitionerLogsExpiryFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.start(t)

	core, logs := observer.New(zapcore.WarnLevel)
	f.engine.Logger = zap.New(core)
	f.engine.Sessions = failingUpdates{f.store.Sessions()}
	f.clock.Advance(3 * time.Minute)

	list, err := f.engine.ListForPractitioner(ctx, f.prac, "")
	if err != nil {
		t.Fatalf("ListForPractitioner: %v", err)
	}
	if len(list) != 1 || list[0].Session.ID != s.ID || list[0].Session.Phase != models.PhaseWaiting {
		t.Fatalf("list = %+v, want the unexpired waiting session", list)
	}
	entries := logs.FilterMessage("failed to expire session").All()
	if len(entries) != 1 {
		t.Fatalf("warn entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["sessionId"]; got != s.ID {
		t.Fatalf("logged sessionId = %v, want %s", got, s.ID)
	}
}
