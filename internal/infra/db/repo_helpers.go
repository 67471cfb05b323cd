package db

import "errors"

var errDBUnavailable = errors.New("db unavailable")

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
