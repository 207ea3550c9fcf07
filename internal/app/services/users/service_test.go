package users

import (
	"context"
	"testing"

	"github.com/pulsedesk/pulsedesk/internal/app/domain/user"
	"github.com/pulsedesk/pulsedesk/internal/app/storage/memory"
)

func TestRegisterNormalizesEmail(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	u, err := svc.Register(ctx, "  Dev@Example.COM ", "Dev")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "dev@example.com" {
		t.Fatalf("email = %q", u.Email)
	}
	if u.Role != user.RoleMember || !u.Active {
		t.Fatalf("unexpected defaults: %+v", u)
	}

	if _, err := svc.Register(ctx, "dev@example.com", "Other"); err == nil {
		t.Fatal("expected duplicate email error")
	}
	if _, err := svc.Register(ctx, "not-an-email", "X"); err == nil {
		t.Fatal("expected invalid email error")
	}
}

func TestSetRole(t *testing.T) {
	svc := New(memory.New(), nil)
	ctx := context.Background()

	u, err := svc.Register(ctx, "admin@example.com", "Admin")
	if err != nil {
		t.Fatal(err)
	}

	u, err = svc.SetRole(ctx, u.ID, "admin")
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
	if u.Role != user.RoleAdmin {
		t.Fatalf("role = %s", u.Role)
	}

	if _, err := svc.SetRole(ctx, u.ID, "overlord"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestRecordAndRecentActivity(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)
	ctx := context.Background()

	u, err := svc.Register(ctx, "dev@example.com", "Dev")
	if err != nil {
		t.Fatal(err)
	}

	svc.Record(ctx, u.ID, "completed task", "ship the release")
	svc.Record(ctx, u.ID, "paid invoice", "INV-1")

	feed, err := svc.RecentActivity(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(feed) != 2 {
		t.Fatalf("feed length = %d", len(feed))
	}
	// Newest first.
	if feed[0].Action != "paid invoice" {
		t.Fatalf("feed order wrong: %+v", feed)
	}
	if feed[0].UserName != "Dev" {
		t.Fatalf("user name not resolved: %+v", feed[0])
	}
}

func TestRecordUnknownUserDoesNotPanic(t *testing.T) {
	svc := New(memory.New(), nil)
	svc.Record(context.Background(), "ghost", "did something", "")
}
