package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// maxNumberedUsernames is how many _N suffixes are tried before hashing.
const maxNumberedUsernames = 5

// baseUsername derives a username from a display name: lowercase, only
// [a-z0-9_] kept, spaces become underscores. It falls back to the email
// local part and then to "user".
func baseUsername(name, email string) string {
	if u := sanitizeUsername(name); u != "" {
		return u
	}
	local, _, _ := strings.Cut(email, "@")
	if u := sanitizeUsername(local); u != "" {
		return u
	}
	return "user"
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), "_")
}

// usernameCandidates lists the names tried in order after the base.
func usernameCandidates(base, email string) []string {
	out := make([]string, 0, maxNumberedUsernames+2)
	out = append(out, base)
	for i := 1; i <= maxNumberedUsernames; i++ {
		out = append(out, fmt.Sprintf("%s_%d", base, i))
	}
	sum := sha256.Sum256([]byte(email))
	out = append(out, base+"_"+hex.EncodeToString(sum[:])[:6])
	return out
}

func (n *steps) uniqueUsername(ctx context.Context, name, email string) (string, error) {
	base := baseUsername(name, email)
	for _, candidate := range usernameCandidates(base, email) {
		taken, err := n.repos.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return base + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8], nil
}
