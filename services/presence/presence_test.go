package presence

import (
	"context"
	"testing"
	"time"

	"consultline/database/repository/memory"
	"consultline/models"
	"consultline/utils"
)

func newPresence(t *testing.T) (*DefaultPresenceService, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	for _, p := range []struct {
		id     string
		online bool
		rating float64
	}{{"p1", false, 4.2}, {"p2", true, 4.9}, {"p3", true, 3.1}} {
		if err := store.Profiles().Create(ctx, &models.Profile{ID: p.id, Role: models.RolePractitioner, DisplayName: p.id}); err != nil {
			t.Fatal(err)
		}
		if err := store.Practitioners().Create(ctx, &models.Practitioner{UserID: p.id, IsOnline: p.online, Rating: p.rating}); err != nil {
			t.Fatal(err)
		}
	}
	return &DefaultPresenceService{Practitioners: store.Practitioners(), Profiles: store.Profiles()}, store
}

func TestSetOnline(t *testing.T) {
	ctx := context.Background()
	svc, _ := newPresence(t)
	p1 := models.Identity{UserID: "p1", Role: models.RolePractitioner}

	status, err := svc.SetOnline(ctx, p1, true)
	if err != nil || !status.IsOnline || status.InService {
		t.Fatalf("SetOnline = %+v, %v", status, err)
	}
	got, err := svc.GetStatus(ctx, "p1")
	if err != nil || !got.IsOnline {
		t.Fatalf("GetStatus = %+v, %v", got, err)
	}

	if _, err := svc.SetOnline(ctx, models.Identity{UserID: "g1", Role: models.RoleGuest}, true); !utils.IsKind(err, utils.KindForbidden) {
		t.Fatalf("guest toggle err = %v", err)
	}
	if _, err := svc.GetStatus(ctx, "missing"); !utils.IsKind(err, utils.KindNotFound) {
		t.Fatalf("missing err = %v", err)
	}
}

func TestCannotGoOfflineInService(t *testing.T) {
	ctx := context.Background()
	svc, store := newPresence(t)
	if err := store.Sessions().CreateReserving(ctx, &models.Session{ID: "s1", PractitionerID: "p2"}, time.Now()); err != nil {
		t.Fatal(err)
	}

	_, err := svc.SetOnline(ctx, models.Identity{UserID: "p2", Role: models.RolePractitioner}, false)
	if !utils.IsKind(err, utils.KindInvalidState) {
		t.Fatalf("err = %v, want InvalidState", err)
	}
	status, _ := svc.GetStatus(ctx, "p2")
	if !status.IsOnline || !status.InService {
		t.Fatalf("status = %+v, want online and in service", status)
	}
}

func TestListOrdersByRating(t *testing.T) {
	svc, _ := newPresence(t)

	online, err := svc.List(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(online) != 2 || online[0].ID != "p2" || online[1].ID != "p3" {
		t.Fatalf("online = %+v", online)
	}
	all, _ := svc.List(context.Background(), false)
	if len(all) != 3 {
		t.Fatalf("all = %d, want 3", len(all))
	}
}
