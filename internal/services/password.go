package services

import (
	"regexp"
	"strings"

	"github.com/sethvargo/go-password/password"
	"golang.org/x/crypto/bcrypt"
)

const (
	temporaryPasswordLength = 12
	passwordHashCost        = 12
	maxSlugLength           = 50
)

// Ambiguous glyphs (0/O, 1/l/I) are left out so the password can be read
// off an email and typed.
var passwordGenerator = mustPasswordGenerator()

func mustPasswordGenerator() *password.Generator {
	gen, err := password.NewGenerator(&password.GeneratorInput{
		LowerLetters: "abcdefghijkmnopqrstuvwxyz",
		UpperLetters: "ABCDEFGHJKLMNPQRSTUVWXYZ",
		Digits:       "23456789",
		Symbols:      "!@#$%",
	})
	if err != nil {
		panic(err)
	}
	return gen
}

// GenerateTemporaryPassword returns a random 12 character password with at
// least two digits and two symbols.
func GenerateTemporaryPassword() (string, error) {
	return passwordGenerator.Generate(temporaryPasswordLength, 2, 2, false, true)
}

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name, collapses every run of non alphanumerics into a
// single dash and trims the result to 50 characters.
func Slugify(name string) string {
	slug := slugUnsafe.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	return slug
}
