package social

import (
	"context"
	"testing"

	"github.com/hikarium/go-shop-fulfillment/internal/dynamotest"
)

const table = "shares-test"

func newStore(t *testing.T) (*Store, *dynamotest.Fake) {
	t.Helper()
	fake := dynamotest.New()
	fake.CreateTable(table, "share_id", "")
	return NewStore(fake, table), fake
}

func TestRecordShare(t *testing.T) {
	store, fake := newStore(t)
	ctx := context.Background()

	share, err := store.RecordShare(ctx, "p-1", "twitter", "u-1")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if share.ShareID == "" {
		t.Fatal("expected a share id")
	}
	if share.ProductID != "p-1" || share.Platform != "twitter" || share.UserID != "u-1" {
		t.Fatalf("unexpected share: %+v", share)
	}
	if fake.Len(table) != 1 {
		t.Fatalf("table has %d rows, want 1", fake.Len(table))
	}
}

func TestRecordShare_Anonymous(t *testing.T) {
	store, _ := newStore(t)
	share, err := store.RecordShare(context.Background(), "p-1", "copy_link", "")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if share.UserID != "" {
		t.Fatalf("expected empty user id, got %q", share.UserID)
	}
}

func TestStatsByProduct(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	for _, p := range []string{"twitter", "twitter", "line"} {
		if _, err := store.RecordShare(ctx, "p-1", p, ""); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if _, err := store.RecordShare(ctx, "p-other", "twitter", ""); err != nil {
		t.Fatalf("record: %v", err)
	}

	counts, err := store.StatsByProduct(ctx, "p-1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if counts["twitter"] != 2 || counts["line"] != 1 {
		t.Fatalf("counts = %v, want twitter:2 line:1", counts)
	}
	if len(counts) != 2 {
		t.Fatalf("counts include foreign products: %v", counts)
	}
}

func TestStatsByProduct_NoShares(t *testing.T) {
	store, _ := newStore(t)
	counts, err := store.StatsByProduct(context.Background(), "p-unshared")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(counts) != 0 {
		t.Fatalf("expected empty counts, got %v", counts)
	}
}
