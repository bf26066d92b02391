package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateInsightID generates a unique insight ID.
func GenerateInsightID() string {
	return uuid.NewString()
}

// GenerateAlertID generates a unique fraud alert ID.
func GenerateAlertID() string {
	return uuid.NewString()
}

// GenerateConnectionID generates a unique connection ID.
func GenerateConnectionID() string {
	return fmt.Sprintf("conn_%d_%s", time.Now().UnixNano(), randomHex(4))
}

// GenerateInstanceID generates a unique relay instance ID.
func GenerateInstanceID() string {
	return fmt.Sprintf("relay_%s", randomHex(6))
}

// GenerateRequestID generates a unique request ID.
func GenerateRequestID() string {
	return fmt.Sprintf("req_%d_%s", time.Now().UnixNano(), randomHex(4))
}

func randomHex(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}
