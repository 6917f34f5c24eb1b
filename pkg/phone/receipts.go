package phone

import "phonesim/pkg/models"

// NormalizeReceipt coerces unknown or malformed receipt data to a safe
// default. Only the three known states are accepted; anything else becomes
// a fresh "sent" receipt.
func NormalizeReceipt(raw *models.Receipt) models.Receipt {
	if raw == nil {
		return models.Receipt{State: models.ReceiptSent}
	}
	switch raw.State {
	case models.ReceiptSent, models.ReceiptDelivered, models.ReceiptRead:
		return *raw
	}
	return models.Receipt{State: models.ReceiptSent}
}

// AdvanceThreadReceipts idempotently upgrades every player-authored
// message's receipt toward the target state ("delivered" or "read").
// Receipts never regress and transition timestamps are set at most once.
// Returns the number of receipts that changed.
func AdvanceThreadReceipts(t *models.Thread, target string, now int64) int {
	if target != models.ReceiptDelivered && target != models.ReceiptRead {
		return 0
	}
	changed := 0
	for i := range t.Messages {
		m := &t.Messages[i]
		if m.From != models.SelfName || m.Receipt == nil {
			continue
		}
		r := NormalizeReceipt(m.Receipt)
		if models.ReceiptAtLeast(r.State, target) {
			*m.Receipt = r
			continue
		}
		if r.DeliveredTS == 0 {
			r.DeliveredTS = now
		}
		if target == models.ReceiptRead && r.ReadTS == 0 {
			r.ReadTS = now
		}
		r.State = target
		*m.Receipt = r
		changed++
	}
	return changed
}
