package utils

import (
	"fmt"
	"regexp"
)

// RedactClientID redacts client id so it can be logged for audit without
// exposing the full identifier.
func RedactClientID(clientID string) string {
	return redact(clientID, "$1##### REDACTED #####$3")
}

func redact(src, repl string) string {
	r, _ := regexp.Compile("^(\\S{4})(\\S|\\s)*(\\S{4})$")
	return r.ReplaceAllString(src, repl)
}

// ValidateAPIVersion validates the api-version query value is of the
// `yyyy-mm-dd` form, optionally with a `-preview` suffix.
func ValidateAPIVersion(apiVersion string) error {
	isValid := regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(-preview)?$`).MatchString
	if !isValid(apiVersion) {
		return fmt.Errorf("invalid api-version: %q, must match yyyy-mm-dd with an optional -preview suffix", apiVersion)
	}
	return nil
}

// ValidateLocation validates the ARM location path segment. Locations are
// lowercase alphanumeric region names such as `westeurope`.
func ValidateLocation(location string) error {
	isValid := regexp.MustCompile(`^[a-z0-9]+$`).MatchString
	if !isValid(location) {
		return fmt.Errorf("invalid location: %q, must be a lowercase alphanumeric region name", location)
	}
	return nil
}
