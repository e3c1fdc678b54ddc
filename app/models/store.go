package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is one merchant installation of the widget.
type Store struct {
	ID               string     `gorm:"type:char(36);primaryKey" json:"id"`
	Name             string     `gorm:"type:varchar(150)" json:"name" validate:"required,min=1,max=150"`
	Domain           string     `gorm:"type:varchar(255)" json:"domain" validate:"max=255"`
	ShopifyDomain    string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"shopify_domain" validate:"required,fqdn,max=255"`
	Plan             string     `gorm:"type:varchar(20);not null;default:'Free'" json:"plan"`
	MaxLeads         int64      `gorm:"not null;default:50" json:"max_leads"`
	TotalLeads       int64      `gorm:"not null;default:0" json:"total_leads"`
	Installed        bool       `gorm:"not null;default:false" json:"installed"`
	InstalledAt      *time.Time `json:"installed_at"`
	APIKeyHash       string     `gorm:"type:char(64);index;default:''" json:"-"`
	APIKeyPrefix     string     `gorm:"type:varchar(20);default:''" json:"api_key_prefix"`
	APIKeyCreatedAt  *time.Time `json:"api_key_created_at"`
	APIKeyLastUsedAt *time.Time `json:"api_key_last_used_at"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not set one and normalizes the domain.
func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.ShopifyDomain = strings.ToLower(strings.TrimSpace(s.ShopifyDomain))
	return nil
}

var apiKeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

const apiKeyPrefix = "bac_"

// HasActiveAPIKey reports whether the store has a dashboard API key configured
func (s *Store) HasActiveAPIKey() bool {
	return s != nil && s.APIKeyHash != ""
}

// IssueAPIKey generates a new dashboard API key, sets the metadata on the struct and
// returns the raw secret. Callers must persist the store afterwards.
func (s *Store) IssueAPIKey() (string, error) {
	rawKey, prefix, hash, err := generateAPIKeyMaterial()
	if err != nil {
		return "", err
	}
	now := time.Now()
	s.APIKeyHash = hash
	s.APIKeyPrefix = prefix
	s.APIKeyCreatedAt = &now
	s.APIKeyLastUsedAt = nil
	return rawKey, nil
}

// RevokeAPIKey clears the stored API key metadata.
func (s *Store) RevokeAPIKey() {
	s.APIKeyHash = ""
	s.APIKeyPrefix = ""
	s.APIKeyCreatedAt = nil
	s.APIKeyLastUsedAt = nil
}

// HashAPIKey returns the SHA-256 hash for the provided API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

func generateAPIKeyMaterial() (string, string, string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", err
	}
	rawKey := apiKeyPrefix + strings.ToLower(apiKeyEncoding.EncodeToString(b))
	if len(rawKey) < 12 {
		return "", "", "", fmt.Errorf("api key generation failed: key too short")
	}
	prefix := rawKey[:min(len(rawKey), 16)]
	return rawKey, prefix, HashAPIKey(rawKey), nil
}
