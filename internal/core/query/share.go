package query

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/solatis/queryforge/internal/types"
)

// Share token format: qf-v1-<share_id>-<signature>
// share_id: 32 hex chars (UUIDv7 without hyphens)
// signature: 64 hex chars, HMAC-SHA256 over share_id and template_id
//
// The signature gates the lookup: a token that fails HMAC verification is
// rejected before expiry or revocation state is consulted, so probing
// returns the same error for forged and nonexistent tokens.

// ParseShareToken extracts the share ID and signature from a token.
// Returns ErrShareInvalidFormat if the shape doesn't match.
func ParseShareToken(token string) (shareID types.ShareID, signature string, err error) {
	parts := strings.Split(token, "-")
	if len(parts) != 4 || parts[0] != "qf" || parts[1] != "v1" {
		return "", "", ErrShareInvalidFormat
	}

	id := parts[2]
	sig := parts[3]

	if len(id) != 32 || len(sig) != 64 {
		return "", "", ErrShareInvalidFormat
	}
	for _, c := range id + sig {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", "", ErrShareInvalidFormat
		}
	}

	return types.ShareID(id), sig, nil
}

// computeShareSignature computes the HMAC-SHA256 signature binding a
// share ID to the template it grants access to.
func computeShareSignature(secret []byte, shareID types.ShareID, templateID string) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(shareID))
	h.Write([]byte{0})
	h.Write([]byte(templateID))
	return hex.EncodeToString(h.Sum(nil))
}

// CreateShare issues a share token for a tenant's template, valid for
// ttl. The token is returned once; only its ID and signing secret ID are
// persisted.
func (s *Service) CreateShare(tenant string, templateID types.TemplateID, ttl time.Duration) (string, *Share, error) {
	if s.store == nil {
		return "", nil, ErrNoStore
	}
	if len(s.secrets) == 0 {
		return "", nil, fmt.Errorf("no share signing secrets configured (set QF_SHARE_SECRET)")
	}

	// Template must exist and belong to the tenant before a token is issued
	if _, err := s.store.GetTemplate(tenant, templateID); err != nil {
		return "", nil, err
	}

	// Pick any configured secret; all are valid for verification
	var secretID string
	var secret []byte
	for id, sec := range s.secrets {
		secretID, secret = id, sec
		break
	}

	now := s.now().UTC()
	sh := &Share{
		ID:         types.NewShareID(),
		TemplateID: string(templateID),
		Tenant:     tenant,
		SecretID:   secretID,
		CreatedAt:  now.Format(time.RFC3339),
		ExpiresAt:  now.Add(ttl).Format(time.RFC3339),
	}

	if err := s.store.insertShare(sh); err != nil {
		return "", nil, err
	}

	sig := computeShareSignature(secret, sh.ID, sh.TemplateID)
	return fmt.Sprintf("qf-v1-%s-%s", sh.ID, sig), sh, nil
}

// VerifyShare validates a share token and returns the template it grants
// access to. Checks run in order: format, record existence, signature
// (constant-time), revocation, expiry.
func (s *Service) VerifyShare(token string) (*Template, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}

	shareID, sig, err := ParseShareToken(token)
	if err != nil {
		return nil, err
	}

	sh, err := s.store.getShare(shareID)
	if err != nil {
		return nil, err
	}

	secret, ok := s.secrets[sh.SecretID]
	if !ok {
		// Secret rotated out from under an issued token
		return nil, ErrShareUnknownSecret
	}

	expected := computeShareSignature(secret, sh.ID, sh.TemplateID)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return nil, ErrShareSignatureInvalid
	}

	if sh.Revoked != 0 {
		return nil, ErrShareRevoked
	}

	expiresAt, err := time.Parse(time.RFC3339, sh.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("malformed expiry on share token: %w", err)
	}
	if !s.now().UTC().Before(expiresAt) {
		return nil, ErrShareExpired
	}

	return s.store.GetTemplate(sh.Tenant, types.TemplateID(sh.TemplateID))
}
