package ballroom

import (
	"crypto/rand"
	"image/color"
	"math"
	"math/big"
	"strings"
)

const idChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// JoinParams are produced once by whatever collects the player's name and
// room, and consumed by NewSession.
type JoinParams struct {
	SessionID string
	Name      string
	Room      string
}

// NewJoinParams sanitizes a raw name and room, generating a session id.
func NewJoinParams(name, room string) JoinParams {
	id := RandomID(SessionIDLength)
	return JoinParams{
		SessionID: id,
		Name:      SanitizeName(name, DefaultName(id)),
		Room:      SanitizeRoom(room),
	}
}

func DefaultName(id string) string {
	return "Player-" + id
}

// RandomID draws n characters from an alphabet without lookalike glyphs.
func RandomID(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(idChars)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			idx = big.NewInt(int64(i % len(idChars)))
		}
		b[i] = idChars[idx.Int64()]
	}
	return string(b)
}

// SanitizeName trims and truncates to MaxNameLength runes, falling back when
// nothing is left.
func SanitizeName(name, fallback string) string {
	r := []rune(strings.TrimSpace(name))
	if len(r) > MaxNameLength {
		r = r[:MaxNameLength]
	}
	out := strings.TrimSpace(string(r))
	if out == "" {
		return fallback
	}
	return out
}

// SanitizeRoom lowercases and keeps only [a-z0-9_-], at most MaxRoomLength
// characters, falling back to "lobby".
func SanitizeRoom(room string) string {
	var sb strings.Builder
	for _, c := range strings.ToLower(room) {
		if sb.Len() >= MaxRoomLength {
			break
		}
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			sb.WriteRune(c)
		}
	}
	if sb.Len() == 0 {
		return "lobby"
	}
	return sb.String()
}

// ColorFromID hashes an id to a hue and returns a saturated colour for it.
func ColorFromID(id string) color.RGBA {
	h := 0
	for _, c := range []byte(id) {
		h = (h*31 + int(c)) % 360
	}
	return hslToRGBA(float64(h)/360, 0.7, 0.58)
}

func hslToRGBA(h, s, l float64) color.RGBA {
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	ch := func(t float64) uint8 {
		t = t - math.Floor(t)
		var v float64
		switch {
		case t < 1.0/6:
			v = p + (q-p)*6*t
		case t < 0.5:
			v = q
		case t < 2.0/3:
			v = p + (q-p)*(2.0/3-t)*6
		default:
			v = p
		}
		return uint8(math.Round(v * 255))
	}
	return color.RGBA{R: ch(h + 1.0/3), G: ch(h), B: ch(h - 1.0/3), A: 255}
}
