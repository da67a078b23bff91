package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// ResultSigner produces HMAC-SHA256 signatures over persisted risk
// analysis results so tampering with stored scores is detectable.
type ResultSigner struct {
	secret []byte
}

// NewResultSigner creates a signer from a base64-encoded secret.
func NewResultSigner(secretBase64 string) (*ResultSigner, error) {
	secret, err := base64.StdEncoding.DecodeString(secretBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode HMAC secret: %w", err)
	}
	if len(secret) == 0 {
		return nil, fmt.Errorf("HMAC secret is empty")
	}
	return &ResultSigner{secret: secret}, nil
}

// HMAC creates an HMAC-SHA256 signature over arbitrary data.
func (s *ResultSigner) HMAC(data string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyHMAC verifies an HMAC signature in constant time.
func (s *ResultSigner) VerifyHMAC(data, signature string) bool {
	expected := s.HMAC(data)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignResult signs the critical fields of a risk analysis result.
func (s *ResultSigner) SignResult(analysisID, documentID string, riskScore float64, riskLevel, timestamp string) string {
	data := fmt.Sprintf("%s|%s|%.2f|%s|%s", analysisID, documentID, riskScore, riskLevel, timestamp)
	return s.HMAC(data)
}

// VerifyResult verifies a stored result's signature.
func (s *ResultSigner) VerifyResult(analysisID, documentID string, riskScore float64, riskLevel, timestamp, signature string) bool {
	data := fmt.Sprintf("%s|%s|%.2f|%s|%s", analysisID, documentID, riskScore, riskLevel, timestamp)
	return s.VerifyHMAC(data, signature)
}

// MaskPII masks personally identifiable information for logging
func MaskPII(value string, piiType string) string {
	if len(value) == 0 {
		return ""
	}

	switch piiType {
	case "email":
		return maskEmail(value)
	case "phone":
		return maskPhone(value)
	case "account":
		return maskAccount(value)
	case "name":
		return maskName(value)
	default:
		return "***MASKED***"
	}
}

func maskEmail(email string) string {
	if len(email) < 3 {
		return "***"
	}
	atIdx := -1
	for i, c := range email {
		if c == '@' {
			atIdx = i
			break
		}
	}
	if atIdx <= 0 {
		return "***"
	}
	return string(email[0]) + "***" + email[atIdx:]
}

func maskPhone(phone string) string {
	if len(phone) < 4 {
		return "****"
	}
	return phone[:2] + "***" + phone[len(phone)-4:]
}

func maskAccount(account string) string {
	if len(account) < 4 {
		return "****"
	}
	return "****" + account[len(account)-4:]
}

func maskName(name string) string {
	if len(name) < 2 {
		return "***"
	}
	return string(name[0]) + "***"
}
