package approval_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agentops/gatekeeper/model/approval"
)

func TestCodecRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	request := &approval.Request{
		GateID:      "g1",
		WorkspaceID: "ws1",
		UserID:      "u1",
		RequestType: approval.TypeExternalPost,
		RiskLevel:   approval.RiskHigh,
		Status:      approval.StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}

	data, err := approval.Encode(request)
	assert.NoError(t, err)

	// Stored documents stay flat with a schema version alongside the
	// record's own fields.
	var doc map[string]interface{}
	assert.NoError(t, json.Unmarshal(data, &doc))
	assert.EqualValues(t, float64(approval.SchemaVersion), doc["v"])
	assert.EqualValues(t, "g1", doc["gate_id"])

	decoded := &approval.Request{}
	assert.NoError(t, approval.Decode(data, decoded))
	assert.EqualValues(t, request, decoded)
}

func TestDecodeLegacyDocument(t *testing.T) {
	legacy := []byte(`{"gate_id":"g2","status":"approved"}`)
	decoded := &approval.Request{}
	assert.NoError(t, approval.Decode(legacy, decoded))
	assert.EqualValues(t, "g2", decoded.GateID)
	assert.EqualValues(t, approval.StatusApproved, decoded.Status)
}

func TestDecodeRejectsNewerSchema(t *testing.T) {
	future := []byte(`{"v":99,"gate_id":"g3"}`)
	err := approval.Decode(future, &approval.Request{})
	assert.ErrorIs(t, err, approval.ErrCorruptRecord)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	err := approval.Decode([]byte("not json"), &approval.Request{})
	assert.ErrorIs(t, err, approval.ErrCorruptRecord)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, approval.StatusPending.Terminal())
	assert.True(t, approval.StatusApproved.Terminal())
	assert.True(t, approval.StatusRejected.Terminal())
	assert.True(t, approval.StatusExpired.Terminal())
}

func TestRiskOrdering(t *testing.T) {
	assert.True(t, approval.RiskCritical.AtLeast(approval.RiskHigh))
	assert.True(t, approval.RiskHigh.AtLeast(approval.RiskHigh))
	assert.False(t, approval.RiskMedium.AtLeast(approval.RiskHigh))
	assert.False(t, approval.RiskLevel("bogus").AtLeast(approval.RiskLow))
}

func TestTruncatePreview(t *testing.T) {
	long := make([]byte, approval.PreviewLimit+50)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, approval.TruncatePreview(string(long)), approval.PreviewLimit)
	assert.EqualValues(t, "short", approval.TruncatePreview("short"))
}
