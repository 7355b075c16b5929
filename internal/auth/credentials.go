// Package auth holds the family login credentials and the in-process
// session manager. This is a home deployment for six known people, so
// credentials are seeded rather than self-service.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// User is one login identity. The member id doubles as the username and
// matches the id in the family roster.
type User struct {
	ID          string
	DisplayName string
	Avatar      string

	passwordHash string
}

// Credentials validates family logins against the seeded user set.
type Credentials struct {
	users map[string]User
}

// SeedCredentials builds the fixed family user set. Default passwords are
// "<username>2025"; they are meant to be easy for the kids to remember,
// not to survive a determined attacker on the LAN.
func SeedCredentials() *Credentials {
	seed := []struct {
		id, name, avatar string
	}{
		{"santosh", "Santosh Gupta", "👨‍💼"},
		{"maryne", "Maryne Gupta", "👩‍💼"},
		{"aditya", "Aditya Gupta", "👦"},
		{"avinav", "Avinav Gupta", "👦"},
		{"sushma", "Sushma Potlapally", "👩‍🦰"},
		{"meghna", "Meghna Potlapally", "👧"},
	}

	users := make(map[string]User, len(seed))
	for _, u := range seed {
		users[u.id] = User{
			ID:           u.id,
			DisplayName:  u.name,
			Avatar:       u.avatar,
			passwordHash: hashPassword(u.id + "2025"),
		}
	}
	return &Credentials{users: users}
}

// Authenticate checks a username and password pair. The comparison runs
// over hex digests in constant time.
func (c *Credentials) Authenticate(username, password string) (User, bool) {
	user, ok := c.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return User{}, false
	}
	given := hashPassword(password)
	if subtle.ConstantTimeCompare([]byte(given), []byte(user.passwordHash)) != 1 {
		return User{}, false
	}
	return user, true
}

// Lookup returns the seeded user for a member id.
func (c *Credentials) Lookup(id string) (User, bool) {
	user, ok := c.users[id]
	return user, ok
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
