package qr

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-booking/internal/models"
)

func TestGenerateEncryptedQR(t *testing.T) {
	generator := NewGenerator("gate-secret")

	ticket := models.Ticket{
		ID:         "ticket-1",
		EventID:    "event-1",
		UserID:     "user-1",
		SeatNumber: 7,
		Type:       models.TypeVIP,
		Status:     models.TicketSold,
		Price:      50,
	}

	png, err := generator.GenerateEncryptedQR(ticket)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
	// PNG magic bytes
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestPayloadRoundTrip(t *testing.T) {
	generator := NewGenerator("gate-secret")

	ticket := models.Ticket{
		ID:      "ticket-1",
		EventID: "event-1",
		UserID:  "user-1",
		Status:  models.TicketSold,
	}

	payload, err := encryptAES(mustJSON(t, ticket), generator.secret)
	require.NoError(t, err)

	decoded, err := generator.DecryptPayload(payload)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, decoded.ID)
	assert.Equal(t, ticket.UserID, decoded.UserID)
	assert.Equal(t, models.TicketSold, decoded.Status)
}

func TestDecryptRejectsWrongSecret(t *testing.T) {
	issuer := NewGenerator("gate-secret")
	forger := NewGenerator("other-secret")

	payload, err := encryptAES(mustJSON(t, models.Ticket{ID: "ticket-1"}), issuer.secret)
	require.NoError(t, err)

	decoded, err := forger.DecryptPayload(payload)
	if err == nil {
		// CFB decryption with the wrong key yields garbage, not an error;
		// the payload must no longer parse as the original ticket.
		assert.NotEqual(t, "ticket-1", decoded.ID)
	}
}

func mustJSON(t *testing.T, ticket models.Ticket) []byte {
	t.Helper()
	data, err := json.Marshal(ticket)
	require.NoError(t, err)
	return data
}
