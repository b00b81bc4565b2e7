package cartchannel

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/rdelrosario/sari-pos/pkg/logger"
	"github.com/rdelrosario/sari-pos/pkg/types"
)

func testChannel() *Channel {
	return &Channel{log: logger.New(logger.Options{ServiceName: "test", Output: io.Discard})}
}

func TestDecodeCartUpdate(t *testing.T) {
	payload, err := json.Marshal(envelope{Version: 4, Cart: &types.Cart{
		StaffID: "staff-1",
		Version: 4,
		Lines: []types.CartLine{
			{ItemID: "sku-cola", Name: "Coke Sakto", Quantity: 2, UnitPriceCents: 2000},
		},
	}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	cart, ok := testChannel().decode(context.Background(), string(payload))
	if !ok {
		t.Fatal("expected payload to decode")
	}
	if cart.Version != 4 || len(cart.Lines) != 1 || cart.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected cart: %+v", cart)
	}
}

func TestDecodeTombstone(t *testing.T) {
	payload, err := json.Marshal(envelope{Cleared: true, Version: 9})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	cart, ok := testChannel().decode(context.Background(), string(payload))
	if !ok {
		t.Fatal("expected tombstone to decode")
	}
	if !cart.Empty() || cart.Version != 9 {
		t.Fatalf("tombstone must yield a versioned empty cart, got %+v", cart)
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	if _, ok := testChannel().decode(context.Background(), "{not json"); ok {
		t.Fatal("malformed payload must be dropped")
	}
	if _, ok := testChannel().decode(context.Background(), "{}"); ok {
		t.Fatal("empty envelope must be dropped")
	}
}
