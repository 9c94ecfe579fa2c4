package validator

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-version"
)

// All returns the first non-nil error.
func All(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Every returns all non-nil errors joined, or nil.
func Every(errs ...error) error {
	return errors.Join(errs...)
}

type Validatable interface {
	Validate() error
}

func Each[T Validatable](items []T) error {
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

func Map[T any](items []T, f func(T, string) error, description string) error {
	for i, item := range items {
		if err := f(item, fmt.Sprintf("%s[%d]", description, i)); err != nil {
			return err
		}
	}
	return nil
}

// MapDict applies f to every entry in key order.
func MapDict[T any](items map[string]T, f func(string, T) error, description string) error {
	keys := make([]string, 0, len(items))
	for key := range items {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if err := f(key, items[key]); err != nil {
			return fmt.Errorf("%s: %w", description, err)
		}
	}
	return nil
}

func NotEmpty(field, description string) error {
	if field == "" {
		return fmt.Errorf("%s must not be empty", description)
	}
	return nil
}

func NoDuplicates[T comparable](slice []T, description string) error {
	seen := make(map[T]struct{})
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			return fmt.Errorf("%s contains duplicate value: %v", description, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

func SliceHasElements[T comparable](slice []T, allowed []T, description string) error {
	for _, v := range slice {
		if err := MatchesAllowed(v, allowed, description); err != nil {
			return err
		}
	}
	return nil
}

func MatchesAllowed[T comparable](field T, allowed []T, description string) error {
	if !slices.Contains(allowed, field) {
		return fmt.Errorf("%s must be one of %v, got %v", description, allowed, field)
	}
	return nil
}

func HasNoDirectives(field string, description string) error {
	if strings.Contains(field, "{{") || strings.Contains(field, "{%") || strings.Contains(field, "{#") {
		return fmt.Errorf("%s must not contain template directives", description)
	}
	return nil
}

// RequiredKeys checks that every required key is present.
func RequiredKeys(present, required []string, description string) error {
	var missing []string
	for _, k := range required {
		if !slices.Contains(present, k) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s is missing required keys: %s", description, strings.Join(missing, ", "))
	}
	return nil
}

// Version checks that field is a version string such as "1.2" or "v2.0.1-rc1".
func Version(field, description string) error {
	if _, err := version.NewVersion(field); err != nil {
		return fmt.Errorf("%s: %w", description, err)
	}
	return nil
}

func NonNegative(n int, description string) error {
	if n < 0 {
		return fmt.Errorf("%s must not be negative, got %d", description, n)
	}
	return nil
}
