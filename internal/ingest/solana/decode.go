package solana

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"strings"

	"github.com/gagliardetto/solana-go"
)

const programDataPrefix = "Program data: "

// Anchor event layouts emitted by the payment processor program. Both start
// with the 8-byte discriminator followed by the payer pubkey and a u64 amount;
// the token event additionally carries a timestamp and the token mint.
const (
	minPaymentEventLen    = 72
	minSolPaymentEventLen = 56
)

// eventDiscriminator computes the 8-byte Anchor discriminator for an event:
// sha256 of the qualified event name, truncated.
func eventDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("event:" + name))
	return sum[:8]
}

var (
	paymentEventDiscriminator    = eventDiscriminator("PaymentEvent")
	solPaymentEventDiscriminator = eventDiscriminator("SolPaymentEvent")
)

type paymentEvent struct {
	User   string
	Amount uint64
	// Native distinguishes a SOL-denominated payment from an LTAI token one.
	Native bool
}

// extractPaymentEvent scans program log lines for a payment event emitted by
// the processor. Malformed or truncated lines are skipped, not fatal; the
// first decodable event wins.
func extractPaymentEvent(logMessages []string) *paymentEvent {
	for _, msg := range logMessages {
		if !strings.HasPrefix(msg, programDataPrefix) {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(msg[len(programDataPrefix):])
		if err != nil {
			continue
		}
		switch {
		case hasDiscriminator(data, paymentEventDiscriminator):
			if len(data) < minPaymentEventLen {
				continue
			}
			return decodeEventBody(data, false)
		case hasDiscriminator(data, solPaymentEventDiscriminator):
			if len(data) < minSolPaymentEventLen {
				continue
			}
			return decodeEventBody(data, true)
		}
	}
	return nil
}

func hasDiscriminator(data, discriminator []byte) bool {
	return len(data) >= 8 && string(data[:8]) == string(discriminator)
}

func decodeEventBody(data []byte, native bool) *paymentEvent {
	offset := 8
	user := solana.PublicKeyFromBytes(data[offset : offset+32])
	offset += 32
	amount := binary.LittleEndian.Uint64(data[offset : offset+8])
	return &paymentEvent{
		User:   user.String(),
		Amount: amount,
		Native: native,
	}
}
