package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/craftwerk/portfolio-backend/internal/models"
)

var (
	// ErrRefreshInvalid covers unknown, revoked and expired refresh
	// tokens alike: the response must not reveal which it was.
	ErrRefreshInvalid = errors.New("invalid refresh token")
)

const refreshTokenSize = 32

// Service owns both token kinds. Secret signs access tokens; refresh
// tokens are opaque and never signed.
type Service struct {
	DB         *gorm.DB
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Pair is what login and refresh hand back to the transport layer.
type Pair struct {
	AccessToken   string
	AccessExpiry  time.Time
	RefreshToken  string
	RefreshExpiry time.Time
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IssuePair signs a fresh access token and creates a new stored
// refresh token for the user. Used on login.
func (s *Service) IssuePair(ctx context.Context, user *models.User) (*Pair, error) {
	access, accessExp, err := s.SignAccess(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, err
	}

	raw, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	refreshExp := time.Now().Add(s.RefreshTTL)
	row := models.RefreshToken{
		TokenHash: hashToken(raw),
		UserID:    user.ID,
		ExpiresAt: refreshExp,
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}

	return &Pair{
		AccessToken:   access,
		AccessExpiry:  accessExp,
		RefreshToken:  raw,
		RefreshExpiry: refreshExp,
	}, nil
}

// Rotate exchanges a presented refresh token for a new pair. The whole
// revoke-old/create-new step runs in one transaction so a replayed
// token can never win a race against its own rotation.
func (s *Service) Rotate(ctx context.Context, raw string) (*Pair, error) {
	var pair *Pair

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored models.RefreshToken
		if err := tx.Where("token_hash = ?", hashToken(raw)).First(&stored).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRefreshInvalid
			}
			return err
		}
		if stored.Revoked || time.Now().After(stored.ExpiresAt) {
			return ErrRefreshInvalid
		}

		var user models.User
		if err := tx.First(&user, stored.UserID).Error; err != nil {
			return err
		}

		if err := revokeLive(tx, stored.ID); err != nil {
			return err
		}

		access, accessExp, err := s.SignAccess(user.ID, user.Username, user.Email)
		if err != nil {
			return err
		}
		newRaw, err := newRefreshToken()
		if err != nil {
			return err
		}
		refreshExp := time.Now().Add(s.RefreshTTL)
		if err := tx.Create(&models.RefreshToken{
			TokenHash: hashToken(newRaw),
			UserID:    user.ID,
			ExpiresAt: refreshExp,
		}).Error; err != nil {
			return err
		}

		pair = &Pair{
			AccessToken:   access,
			AccessExpiry:  accessExp,
			RefreshToken:  newRaw,
			RefreshExpiry: refreshExp,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// revokeLive flips revoked only if the row is still live. The guard
// matters under concurrent rotation: two transactions can both read
// revoked=false, but only the first update matches the predicate and
// the loser rolls back instead of minting a second replacement.
func revokeLive(tx *gorm.DB, id uint) error {
	res := tx.Model(&models.RefreshToken{}).
		Where("id = ? AND revoked = ?", id, false).
		Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRefreshInvalid
	}
	return nil
}

// Revoke marks the presented token revoked. Revocation is terminal;
// revoking an already revoked token is a no-op.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	res := s.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(raw)).
		Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRefreshInvalid
	}
	return nil
}

// RevokeAllForUser kills every live refresh token of a user, e.g.
// after a password change.
func (s *Service) RevokeAllForUser(ctx context.Context, userID uint) error {
	return s.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}

func formatUserID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseUserID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	return uint(id), err
}
