package orgs

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"

	"github.com/platinummonkey/taskboard/pkg/validation"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var codePattern = regexp.MustCompile(`^[A-Z0-9]+$`)

// codeTag names the organization code rule in validate struct tags
const codeTag = "orgcode"

var validate = validation.New(validation.Rule{
	Tag:     codeTag,
	Valid:   validCode,
	Message: fmt.Sprintf("must be %d to %d letters or digits", MinCodeLength, MaxCodeLength),
})

func validCode(code string) bool {
	return len(code) >= MinCodeLength && len(code) <= MaxCodeLength && codePattern.MatchString(code)
}

// NormalizeCode trims and uppercases a user supplied organization code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCode checks the length and alphabet of a normalized code
func ValidateCode(code string) error {
	return validate.Field("organizationCode", code, codeTag)
}

// GenerateCode returns a random code of GeneratedCodeLength characters
func GenerateCode() (string, error) {
	b := make([]byte, GeneratedCodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate organization code: %w", err)
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}
