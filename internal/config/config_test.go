package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Port == "" {
		t.Fatalf("expected default port")
	}
	if cfg.Address() != ":"+cfg.Port {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
	if cfg.ProductCacheTTL <= 0 {
		t.Fatalf("expected positive cache ttl")
	}
}

func TestValidateSecurityRejectsShortSecret(t *testing.T) {
	cfg := Config{AuthSecret: "short"}
	if err := cfg.ValidateSecurity(); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
	cfg.AuthSecret = strings.Repeat("s", 32)
	if err := cfg.ValidateSecurity(); err != nil {
		t.Fatalf("expected 32-char secret to pass, got %v", err)
	}
}

func TestCompanyProfileFromConfig(t *testing.T) {
	cfg := Config{CompanyName: "Warung Makmur", CompanyTaxID: "01.234"}
	company := cfg.Company()
	if company.Name != "Warung Makmur" || company.TaxID != "01.234" {
		t.Fatalf("unexpected company profile: %+v", company)
	}
	if company.Address != "" {
		t.Fatalf("expected empty address to stay empty")
	}
}
