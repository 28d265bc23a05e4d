package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Acme":                      "acme",
		"Acme Corp, Inc.":           "acme-corp-inc",
		"  --Hello   World--  ":     "hello-world",
		"Ünïcode Trading":           "n-code-trading",
		"123 Numbers":               "123-numbers",
		"!!!":                       "",
		strings.Repeat("abc ", 30): strings.TrimRight(strings.Repeat("abc-", 13), "-")[:50],
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got := Slugify(in)
			assert.Equal(t, want, got)
			assert.LessOrEqual(t, len(got), 50)
		})
	}
}

func TestSlugify_NoTrailingDashAfterTruncate(t *testing.T) {
	name := strings.Repeat("a", 49) + " b"
	assert.Equal(t, strings.Repeat("a", 49), Slugify(name))
}

func TestGenerateTemporaryPassword(t *testing.T) {
	const allowed = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789!@#$%"

	seen := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		pw, err := GenerateTemporaryPassword()
		require.NoError(t, err)
		assert.Len(t, pw, 12)

		digits, symbols := 0, 0
		for _, r := range pw {
			assert.Contains(t, allowed, string(r))
			switch {
			case strings.ContainsRune("23456789", r):
				digits++
			case strings.ContainsRune("!@#$%", r):
				symbols++
			}
		}
		assert.Equal(t, 2, digits)
		assert.Equal(t, 2, symbols)
		seen[pw] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("S3cure!pass")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 12, cost)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("S3cure!pass")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("wrong")))
}
