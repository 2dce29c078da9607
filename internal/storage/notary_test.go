package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/restock-engine/internal/domain"
)

func sampleDecision() domain.Decision {
	supplier := "SUP-A"
	return domain.Decision{
		ID:                   "5b7e9f0e-0000-5000-8000-000000000001",
		CycleID:              "cycle-42",
		SKU:                  "NB-010",
		ActionType:           domain.ActionRestock,
		Priority:             domain.PriorityHigh,
		RecommendedQuantity:  240,
		SupplierID:           &supplier,
		EstimatedCost:        540,
		ConfidenceScore:      0.9,
		ApprovalStatus:       domain.ApprovalAutoApproved,
		ExpectedDeliveryDays: 8,
		Reasoning:            "Classification: HIGH (rule 3: stock covers less than 1.5x lead time).",
		CreatedAt:            time.Date(2025, 7, 4, 23, 30, 0, 0, time.FixedZone("UTC+7", 7*3600)),
	}
}

func TestLedgerKey(t *testing.T) {
	// 23:30 at UTC+7 is 16:30 UTC on the same day
	assert.Equal(t, "ledger/2025/07/04/cycle-42/NB-010.json", LedgerKey(sampleDecision()))
}

func TestFingerprint(t *testing.T) {
	d := sampleDecision()
	base, err := Fingerprint(d)
	require.NoError(t, err)
	assert.Len(t, base, 64)

	t.Run("ignores generated summary", func(t *testing.T) {
		enriched := d
		enriched.Reasoning += domain.SummaryMarker + "Notebook demand peaks in July."
		got, err := Fingerprint(enriched)
		require.NoError(t, err)
		assert.Equal(t, base, got)
	})

	t.Run("ignores time zone", func(t *testing.T) {
		utc := d
		utc.CreatedAt = d.CreatedAt.UTC()
		got, err := Fingerprint(utc)
		require.NoError(t, err)
		assert.Equal(t, base, got)
	})

	t.Run("changes with the quantity", func(t *testing.T) {
		tampered := d
		tampered.RecommendedQuantity = 2400
		got, err := Fingerprint(tampered)
		require.NoError(t, err)
		assert.NotEqual(t, base, got)
	})
}

func TestNotary_NotarizeAndVerify(t *testing.T) {
	store := NewMemoryStorage()
	n := NewNotary(store)
	n.now = func() time.Time { return time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	d := sampleDecision()

	entry, err := n.Notarize(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, d.ID, entry.DecisionID)
	assert.Equal(t, "NB-010", entry.SKU)

	objects, err := store.ListObjects(ctx, "ledger/2025/07/04/")
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, LedgerKey(d), objects[0].Key)

	ok, err := n.Verify(ctx, d)
	require.NoError(t, err)
	assert.True(t, ok)

	d.EstimatedCost = 1
	ok, err = n.Verify(ctx, d)
	require.NoError(t, err)
	assert.False(t, ok)

	other := sampleDecision()
	other.SKU = "UNKNOWN"
	_, err = n.Verify(ctx, other)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		in         string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{"https://s3.example.com", false, "s3.example.com", true},
		{"http://minio:9000", true, "minio:9000", false},
		{"minio:9000", true, "minio:9000", true},
		{"//minio:9000", false, "minio:9000", false},
	}
	for _, tt := range tests {
		host, secure := splitEndpoint(tt.in, tt.useSSL)
		assert.Equal(t, tt.wantHost, host, tt.in)
		assert.Equal(t, tt.wantSecure, secure, tt.in)
	}
}

func TestNewMinioClient_Validation(t *testing.T) {
	_, err := NewMinioClient(MinioConfig{})
	assert.ErrorContains(t, err, "endpoint")
	_, err = NewMinioClient(MinioConfig{Endpoint: "minio:9000"})
	assert.ErrorContains(t, err, "credentials")
	_, err = NewMinioClient(MinioConfig{Endpoint: "minio:9000", AccessKey: "a", SecretKey: "b"})
	assert.ErrorContains(t, err, "bucket")

	c, err := NewMinioClient(MinioConfig{Endpoint: "http://minio:9000", AccessKey: "a", SecretKey: "b", Bucket: "ledger"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}
