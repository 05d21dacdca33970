package config

import (
	"fmt"
	"os"
)

// Credentials holds the database connection secrets the gateway never
// stores in a YAML file or accepts on a command line: the DSN, user,
// and password the reference/Oracle session factory dials with.
type Credentials struct {
	DSN      string
	User     string
	Password string
}

// LoadCredentials reads ORACLEGUARD_DB_DSN, ORACLEGUARD_DB_USER, and
// ORACLEGUARD_DB_PASSWORD from the process environment. A missing user
// or password is a fatal startup error: the gateway never falls back
// to an unauthenticated connection, and it never logs the values it
// reads here.
func LoadCredentials() (Credentials, error) {
	creds := Credentials{
		DSN:      os.Getenv("ORACLEGUARD_DB_DSN"),
		User:     os.Getenv("ORACLEGUARD_DB_USER"),
		Password: os.Getenv("ORACLEGUARD_DB_PASSWORD"),
	}

	if creds.User == "" {
		return Credentials{}, fmt.Errorf("ORACLEGUARD_DB_USER is required and was not set")
	}
	if creds.Password == "" {
		return Credentials{}, fmt.Errorf("ORACLEGUARD_DB_PASSWORD is required and was not set")
	}

	return creds, nil
}
