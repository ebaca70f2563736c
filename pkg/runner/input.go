package runner

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Limits bounds what one turn request may carry. Zero fields use DefaultLimits.
type Limits struct {
	MaxQueryBytes  int
	MaxUserIDBytes int
}

// DefaultLimits applies to every transport unless configured otherwise.
var DefaultLimits = Limits{MaxQueryBytes: 4096, MaxUserIDBytes: 128}

var (
	ErrEmptyQuery     = errors.New("query is required")
	ErrQueryTooLarge  = errors.New("query exceeds maximum allowed size")
	ErrInvalidUTF8    = errors.New("input contains invalid UTF-8 sequences")
	ErrInvalidUserID  = errors.New("invalid user id")
	ErrUserIDTooLarge = errors.New("user id exceeds maximum allowed size")
)

func (l Limits) withDefaults() Limits {
	if l.MaxQueryBytes <= 0 {
		l.MaxQueryBytes = DefaultLimits.MaxQueryBytes
	}
	if l.MaxUserIDBytes <= 0 {
		l.MaxUserIDBytes = DefaultLimits.MaxUserIDBytes
	}
	return l
}

// CleanQuery rejects oversized or malformed queries, strips control characters
// other than newline, tab and carriage return, and trims surrounding space.
// The size limit applies to the raw query.
func (l Limits) CleanQuery(query string) (string, error) {
	l = l.withDefaults()
	if len(query) > l.MaxQueryBytes {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrQueryTooLarge, len(query), l.MaxQueryBytes)
	}
	if !utf8.ValidString(query) {
		return "", ErrInvalidUTF8
	}

	query = strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, query))
	if query == "" {
		return "", ErrEmptyQuery
	}
	return query, nil
}

// CheckUserID accepts an empty id (transports pick their own default) or a
// single printable token within the size limit. User ids end up in tickets
// and log lines, so whitespace and control characters are refused.
func (l Limits) CheckUserID(id string) error {
	l = l.withDefaults()
	if len(id) > l.MaxUserIDBytes {
		return fmt.Errorf("%w: size=%d limit=%d", ErrUserIDTooLarge, len(id), l.MaxUserIDBytes)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%w: %w", ErrInvalidUserID, ErrInvalidUTF8)
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return fmt.Errorf("%w: %q", ErrInvalidUserID, id)
		}
	}
	return nil
}

// Clean validates req and returns it with a cleaned query.
func (l Limits) Clean(req domain.TurnRequest) (domain.TurnRequest, error) {
	query, err := l.CleanQuery(req.Query)
	if err != nil {
		return req, err
	}
	if err := l.CheckUserID(req.UserID); err != nil {
		return req, err
	}
	req.Query = query
	return req, nil
}
