package domain

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxIdentityLength is the longest display name accepted, in runes.
const MaxIdentityLength = 20

var validate = validator.New()

type identity struct {
	Username string `validate:"required,max=20"`
}

// NormalizeIdentity trims a candidate display name and checks it is 1-20 runes long.
func NormalizeIdentity(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrEmptyIdentity
	}
	if err := validate.Struct(identity{Username: name}); err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidIdentity, name, err)
	}
	return name, nil
}
