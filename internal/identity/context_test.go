package identity

import (
	"context"
	"testing"
)

func TestWithUserIDAndUserIDFromContext(t *testing.T) {
	ctx := context.Background()
	ctx = WithUserID(ctx, "user_2abc")

	got, ok := UserIDFromContext(ctx)
	if !ok {
		t.Fatalf("expected user id to be present")
	}
	if got != "user_2abc" {
		t.Fatalf("expected user_2abc, got %s", got)
	}
}

func TestUserIDFromContextMissing(t *testing.T) {
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("expected no user id on empty context")
	}
}

func TestUserIDFromContextEmptyString(t *testing.T) {
	ctx := WithUserID(context.Background(), "")
	if _, ok := UserIDFromContext(ctx); ok {
		t.Fatal("expected empty user id to be treated as absent")
	}
}
