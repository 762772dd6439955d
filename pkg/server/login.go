package server

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
)

// ErrBadLogin is returned for an unknown player or a wrong password.
var ErrBadLogin = errors.New("invalid credentials")

// ParseConnect parses a login-screen command into (command, user, password).
// Handles: "connect name password" and "connect \"long name\" password".
func ParseConnect(msg string) (command, user, password string) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "", "", ""
	}

	// Split into command and rest
	parts := strings.SplitN(msg, " ", 2)
	command = strings.ToLower(parts[0])
	if len(parts) < 2 {
		return command, "", ""
	}

	rest := strings.TrimSpace(parts[1])
	if rest == "" {
		return command, "", ""
	}

	// Handle quoted names (for names with spaces)
	if rest[0] == '"' {
		end := strings.Index(rest[1:], "\"")
		if end >= 0 {
			user = rest[1 : end+1]
			password = strings.TrimSpace(rest[end+2:])
			return
		}
	}

	// Standard: name password
	parts = strings.SplitN(rest, " ", 2)
	user = parts[0]
	if len(parts) > 1 {
		password = strings.TrimSpace(parts[1])
	}
	return
}

// HashPassword returns the bcrypt hash stored in Player.PassHash.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CheckPassword verifies a password against the player's stored bcrypt hash.
func CheckPassword(p *gamedb.Player, password string) bool {
	if p == nil || p.PassHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(p.PassHash), []byte(password)) == nil
}

// Authenticate looks up a player by name and checks the password.
func Authenticate(db *gamedb.Database, name, password string) (*gamedb.Player, error) {
	p := db.LookupPlayer(name)
	if p == nil || !CheckPassword(p, password) {
		return nil, ErrBadLogin
	}
	return p, nil
}

// WelcomeText is the default welcome screen shown to new connections.
const WelcomeText = `
   ___                        _     ___            _
  | _ \___ __ _ __ _ ___ _ _ | |_  | _ ) __ _ _ _ | |__
  |   / -_) _' / _' / -_) ' \|  _| | _ \/ _' | ' \| / /
  |_|_\___\__,_\__, \___|_||_|\__| |___/\__,_|_||_|_\_\
               |___/

"connect <name> <password>" to connect to your character.
"WHO" to see who is connected.
"QUIT" to disconnect.

`
