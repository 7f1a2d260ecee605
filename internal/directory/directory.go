// Package directory is a read-only user store backed by a YAML file. It serves as
// the UserProvider and CredentialVerifier of the serve binary.
package directory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/panelcore"
)

// dummyHash keeps unknown-email logins as slow as wrong-password logins.
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z7bdqPpHgN1Lxc3FqK5g9s9e")

type userEntry struct {
	ID           string `yaml:"id"`
	Email        string `yaml:"email"`
	Name         string `yaml:"name"`
	Role         string `yaml:"role"`
	UnitID       string `yaml:"unit_id"`
	Status       string `yaml:"status"`
	PasswordHash string `yaml:"password_hash"`
}

type file struct {
	Users []userEntry `yaml:"users"`
}

// Directory holds users in memory, indexed by id and lowercase email.
type Directory struct {
	mu      sync.RWMutex
	byID    map[string]panelcore.UserRecord
	byEmail map[string]string
}

// Load reads a YAML users file.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML users document.
func Parse(data []byte) (*Directory, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode users file: %w", err)
	}

	records := make([]panelcore.UserRecord, 0, len(f.Users))
	for _, u := range f.Users {
		status := panelcore.Status(strings.ToLower(u.Status))
		if status == "" {
			status = panelcore.StatusActive
		}
		records = append(records, panelcore.UserRecord{
			User: panelcore.User{
				ID:     u.ID,
				Email:  u.Email,
				Name:   u.Name,
				Role:   panelcore.Role(u.Role),
				UnitID: u.UnitID,
				Status: status,
			},
			PasswordHash: u.PasswordHash,
		})
	}
	return New(records)
}

// New builds a Directory from records. IDs and emails must be unique.
func New(records []panelcore.UserRecord) (*Directory, error) {
	d := &Directory{
		byID:    make(map[string]panelcore.UserRecord, len(records)),
		byEmail: make(map[string]string, len(records)),
	}
	for _, rec := range records {
		if rec.ID == "" || rec.Email == "" {
			return nil, errors.New("user id and email are required")
		}
		switch rec.Status {
		case panelcore.StatusActive, panelcore.StatusSuspended:
		default:
			return nil, fmt.Errorf("user %s: unknown status %q", rec.ID, rec.Status)
		}
		if rec.Role != panelcore.RoleUnrestricted && rec.UnitID == "" {
			return nil, fmt.Errorf("user %s: role %s requires a unit", rec.ID, rec.Role)
		}
		email := strings.ToLower(rec.Email)
		if _, dup := d.byID[rec.ID]; dup {
			return nil, fmt.Errorf("duplicate user id %s", rec.ID)
		}
		if _, dup := d.byEmail[email]; dup {
			return nil, fmt.Errorf("duplicate email %s", rec.Email)
		}
		d.byID[rec.ID] = rec
		d.byEmail[email] = rec.ID
	}
	return d, nil
}

// GetUserByID implements panelcore.UserProvider.
func (d *Directory) GetUserByID(_ context.Context, userID string) (*panelcore.UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.byID[userID]
	if !ok {
		return nil, panelcore.ErrUserNotFound
	}
	return &rec, nil
}

// VerifyCredentials implements panelcore.CredentialVerifier.
func (d *Directory) VerifyCredentials(_ context.Context, email, password string) (string, error) {
	d.mu.RLock()
	id, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	rec := d.byID[id]
	d.mu.RUnlock()

	if !ok || rec.PasswordHash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return "", panelcore.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		return "", panelcore.ErrInvalidCredentials
	}
	return rec.ID, nil
}

// Len returns the number of users.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

// HashPassword returns a bcrypt hash suitable for password_hash.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
