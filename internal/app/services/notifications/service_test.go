package notifications

import (
	"context"
	"testing"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/notification"
	"github.com/pulsedesk/pulsedesk/internal/app/domain/user"
	"github.com/pulsedesk/pulsedesk/internal/app/storage/memory"
)

func TestNotifyAndRead(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	n, err := svc.Notify(ctx, "u1", "", "Invoice paid", "INV-1 was settled")
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if n.Type != notification.TypeInfo {
		t.Fatalf("type = %s, want info default", n.Type)
	}

	count, err := svc.UnreadCount(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("unread = %d, want 1", count)
	}

	if _, err := svc.MarkRead(ctx, "u1", n.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	count, _ = svc.UnreadCount(ctx, "u1")
	if count != 0 {
		t.Fatalf("unread = %d, want 0", count)
	}
}

func TestMarkReadEnforcesOwnership(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	n, err := svc.Notify(ctx, "u1", notification.TypeTask, "Task due", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MarkRead(ctx, "u2", n.ID); err == nil {
		t.Fatal("expected ownership error")
	}
}

func TestListUnreadOnly(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	a, _ := svc.Notify(ctx, "u1", "", "first", "")
	if _, err := svc.Notify(ctx, "u1", "", "second", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.MarkRead(ctx, "u1", a.ID); err != nil {
		t.Fatal(err)
	}

	unread, err := svc.List(ctx, "u1", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(unread) != 1 || unread[0].Title != "second" {
		t.Fatalf("unexpected unread list: %+v", unread)
	}

	all, _ := svc.List(ctx, "u1", false)
	if len(all) != 2 {
		t.Fatalf("all = %d entries, want 2", len(all))
	}
}

func TestDigestRunOnce(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	active, err := store.CreateUser(ctx, user.User{Email: "a@example.com", Name: "A", Active: true})
	if err != nil {
		t.Fatal(err)
	}
	inactive, err := store.CreateUser(ctx, user.User{Email: "b@example.com", Name: "B", Active: false})
	if err != nil {
		t.Fatal(err)
	}
	quiet, err := store.CreateUser(ctx, user.User{Email: "c@example.com", Name: "C", Active: true})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Notify(ctx, active.ID, "", "pending", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Notify(ctx, inactive.ID, "", "pending", ""); err != nil {
		t.Fatal(err)
	}

	NewDigestScheduler(svc, store, nil).RunOnce(ctx)

	digests, err := svc.List(ctx, active.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, n := range digests {
		if n.Type == notification.TypeDigest {
			found = true
		}
	}
	if !found {
		t.Fatal("active user with unread items should receive a digest")
	}

	for _, id := range []string{inactive.ID, quiet.ID} {
		list, _ := svc.List(ctx, id, false)
		for _, n := range list {
			if n.Type == notification.TypeDigest {
				t.Fatalf("user %s should not receive a digest", id)
			}
		}
	}
}
