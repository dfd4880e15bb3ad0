package auth

import (
	"context"
	"testing"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{PartnerID: "p1", TokenID: "tok"}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.PartnerID != "p1" {
		t.Errorf("PartnerID = %q, want %q", got.PartnerID, "p1")
	}
	if got.TokenID != "tok" {
		t.Errorf("TokenID = %q, want %q", got.TokenID, "tok")
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestPartnerIDHelper(t *testing.T) {
	if PartnerID(context.Background()) != "" {
		t.Error("expected empty partner id without auth")
	}
	ctx := WithAuth(context.Background(), AuthContext{PartnerID: "p2"})
	if got := PartnerID(ctx); got != "p2" {
		t.Errorf("PartnerID = %q, want %q", got, "p2")
	}
}
