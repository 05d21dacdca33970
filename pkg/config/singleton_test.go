package config

import "testing"

func TestSetConfigAndGetConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	SetConfig(cfg)

	got := GetConfig()
	if got != cfg {
		t.Error("GetConfig did not return the config set by SetConfig")
	}
}

func TestMustGetConfigPanicsWhenUnset(t *testing.T) {
	SetConfig(nil)

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when config is unset")
		}
	}()
	MustGetConfig()
}

func TestMustGetConfigReturnsSetConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	SetConfig(cfg)

	if got := MustGetConfig(); got != cfg {
		t.Error("MustGetConfig did not return the config set by SetConfig")
	}
}
