package utils

import "github.com/google/uuid"

// CreateToken returns an opaque 64-hex-char random token.
func CreateToken() string {
	first, err := uuid.NewRandom()
	if err != nil {
		return ""
	}

	second, err := uuid.NewRandom()
	if err != nil {
		return ""
	}

	return stripHyphens(first.String()) + stripHyphens(second.String())
}

func stripHyphens(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
