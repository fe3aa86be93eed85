package utils

import (
	"testing"
)

func TestRedactClientID(t *testing.T) {
	tests := []struct {
		name     string
		clientID string
		expected string
	}{
		{
			name:     "should redact client id",
			clientID: "aabc0000-a83v-9h4m-000j-2c0a66b0c1f9",
			expected: "aabc##### REDACTED #####c1f9",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			actual := RedactClientID(test.clientID)
			if actual != test.expected {
				t.Fatalf("expected: %s, got %s", test.expected, actual)
			}
		})
	}
}

func TestValidateAPIVersion(t *testing.T) {
	tests := []struct {
		name        string
		apiVersion  string
		expectedErr bool
	}{
		{
			name:        "invalid api version 0",
			apiVersion:  "notaversion",
			expectedErr: true,
		},
		{
			name:        "invalid api version 1",
			apiVersion:  "2020-11",
			expectedErr: true,
		},
		{
			name:        "valid stable api version",
			apiVersion:  "2020-11-01",
			expectedErr: false,
		},
		{
			name:        "valid preview api version",
			apiVersion:  "2021-02-01-preview",
			expectedErr: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := ValidateAPIVersion(test.apiVersion)
			actualErr := err != nil
			if actualErr != test.expectedErr {
				t.Fatalf("expected error: %v, got error: %v", test.expectedErr, err)
			}
		})
	}
}

func TestValidateLocation(t *testing.T) {
	tests := []struct {
		name        string
		location    string
		expectedErr bool
	}{
		{
			name:        "invalid location with path separator",
			location:    "westeurope/extra",
			expectedErr: true,
		},
		{
			name:        "invalid empty location",
			location:    "",
			expectedErr: true,
		},
		{
			name:        "valid location",
			location:    "westeurope",
			expectedErr: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := ValidateLocation(test.location)
			actualErr := err != nil
			if actualErr != test.expectedErr {
				t.Fatalf("expected error: %v, got error: %v", test.expectedErr, err)
			}
		})
	}
}
