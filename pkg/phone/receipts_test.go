package phone

import (
	"testing"

	"phonesim/pkg/models"
)

func youMsg(state string) models.Message {
	return models.Message{From: models.SelfName, Text: "hi", Receipt: &models.Receipt{State: state}}
}

func TestNormalizeReceiptCoercesJunk(t *testing.T) {
	r := NormalizeReceipt(&models.Receipt{State: "banana", DeliveredTS: 99})
	if r.State != models.ReceiptSent || r.DeliveredTS != 0 || r.ReadTS != 0 {
		t.Fatalf("expected fresh sent receipt; got %+v", r)
	}
	r = NormalizeReceipt(nil)
	if r.State != models.ReceiptSent {
		t.Fatalf("expected sent for nil; got %+v", r)
	}
}

func TestAdvanceThreadReceiptsIsMonotonic(t *testing.T) {
	th := &models.Thread{Messages: []models.Message{
		youMsg(models.ReceiptSent),
		youMsg(models.ReceiptRead),
		{From: "Jake", Text: "yo"},
	}}

	if n := AdvanceThreadReceipts(th, models.ReceiptDelivered, 100); n != 1 {
		t.Fatalf("expected 1 change; got %d", n)
	}
	if th.Messages[0].Receipt.State != models.ReceiptDelivered || th.Messages[0].Receipt.DeliveredTS != 100 {
		t.Fatalf("unexpected receipt %+v", th.Messages[0].Receipt)
	}
	// already read stays read
	if th.Messages[1].Receipt.State != models.ReceiptRead {
		t.Fatalf("read receipt regressed: %+v", th.Messages[1].Receipt)
	}

	if n := AdvanceThreadReceipts(th, models.ReceiptRead, 200); n != 1 {
		t.Fatalf("expected 1 change; got %d", n)
	}
	r := th.Messages[0].Receipt
	if r.State != models.ReceiptRead || r.DeliveredTS != 100 || r.ReadTS != 200 {
		t.Fatalf("delivered timestamp overwritten: %+v", r)
	}

	// idempotent second pass
	if n := AdvanceThreadReceipts(th, models.ReceiptRead, 300); n != 0 {
		t.Fatalf("expected no changes; got %d", n)
	}
	if th.Messages[0].Receipt.ReadTS != 200 {
		t.Fatalf("read timestamp overwritten: %+v", th.Messages[0].Receipt)
	}
}

func TestAdvanceSkipsNonPlayerMessages(t *testing.T) {
	th := &models.Thread{Messages: []models.Message{{From: "Jake", Text: "yo"}}}
	if n := AdvanceThreadReceipts(th, models.ReceiptRead, 1); n != 0 {
		t.Fatalf("expected no changes; got %d", n)
	}
	if th.Messages[0].Receipt != nil {
		t.Fatalf("receipt appeared on inbound message")
	}
}
