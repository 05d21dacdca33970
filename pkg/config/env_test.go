package config

import "testing"

func TestLoadCredentialsRequiresUser(t *testing.T) {
	t.Setenv("ORACLEGUARD_DB_DSN", "oracle://host:1521/ORCL")
	t.Setenv("ORACLEGUARD_DB_USER", "")
	t.Setenv("ORACLEGUARD_DB_PASSWORD", "secret")

	if _, err := LoadCredentials(); err == nil {
		t.Fatal("expected error when ORACLEGUARD_DB_USER is unset")
	}
}

func TestLoadCredentialsRequiresPassword(t *testing.T) {
	t.Setenv("ORACLEGUARD_DB_DSN", "oracle://host:1521/ORCL")
	t.Setenv("ORACLEGUARD_DB_USER", "gateway")
	t.Setenv("ORACLEGUARD_DB_PASSWORD", "")

	if _, err := LoadCredentials(); err == nil {
		t.Fatal("expected error when ORACLEGUARD_DB_PASSWORD is unset")
	}
}

func TestLoadCredentialsSucceedsWithAllFieldsSet(t *testing.T) {
	t.Setenv("ORACLEGUARD_DB_DSN", "oracle://host:1521/ORCL")
	t.Setenv("ORACLEGUARD_DB_USER", "gateway")
	t.Setenv("ORACLEGUARD_DB_PASSWORD", "secret")

	creds, err := LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if creds.User != "gateway" || creds.Password != "secret" {
		t.Errorf("creds = %+v, want user=gateway password=secret", creds)
	}
}
