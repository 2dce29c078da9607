package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

const ledgerPrefix = "ledger"

// LedgerEntry records the fingerprint of one decision.
type LedgerEntry struct {
	DecisionID  string    `json:"decision_id"`
	CycleID     string    `json:"cycle_id"`
	SKU         string    `json:"sku"`
	Hash        string    `json:"hash"`
	NotarizedAt time.Time `json:"notarized_at"`
}

// Notary writes tamper-evident fingerprints of decisions to object storage.
type Notary struct {
	store ObjectStorage
	now   func() time.Time
}

func NewNotary(store ObjectStorage) *Notary {
	return &Notary{store: store, now: time.Now}
}

// Notarize fingerprints d and uploads the ledger entry.
func (n *Notary) Notarize(ctx context.Context, d domain.Decision) (*LedgerEntry, error) {
	hash, err := Fingerprint(d)
	if err != nil {
		return nil, err
	}

	entry := &LedgerEntry{
		DecisionID:  d.ID,
		CycleID:     d.CycleID,
		SKU:         d.SKU,
		Hash:        hash,
		NotarizedAt: n.now().UTC(),
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode ledger entry: %w", err)
	}
	if err := n.store.UploadObject(ctx, LedgerKey(d), payload); err != nil {
		return nil, err
	}
	return entry, nil
}

// Verify reports whether d still matches its ledger entry. A decision that
// was never notarized returns ErrObjectNotFound.
func (n *Notary) Verify(ctx context.Context, d domain.Decision) (bool, error) {
	payload, err := n.store.GetObject(ctx, LedgerKey(d))
	if err != nil {
		return false, err
	}

	var entry LedgerEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return false, fmt.Errorf("decode ledger entry: %w", err)
	}
	if entry.DecisionID != d.ID {
		return false, errors.New("ledger entry belongs to another decision")
	}

	hash, err := Fingerprint(d)
	if err != nil {
		return false, err
	}
	return hash == entry.Hash, nil
}

// LedgerKey is ledger/YYYY/MM/DD/<cycle_id>/<sku>.json, dated by the
// decision's creation time in UTC.
func LedgerKey(d domain.Decision) string {
	day := d.CreatedAt.UTC().Format("2006/01/02")
	return path.Join(ledgerPrefix, day, d.CycleID, d.SKU+".json")
}

// Fingerprint is the hex SHA-256 of the decision's canonical JSON. A
// generated summary appended to the reasoning does not change it.
func Fingerprint(d domain.Decision) (string, error) {
	d.Reasoning = d.BaseReasoning()
	d.CreatedAt = d.CreatedAt.UTC()

	// struct field order makes the encoding stable
	payload, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode decision: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
