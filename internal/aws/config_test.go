package aws

import (
	"context"
	"testing"
)

func TestSettingsFromEnv_DefaultRegion(t *testing.T) {
	t.Setenv("AWS_ENDPOINT_OVERRIDE", "")
	t.Setenv("AWS_REGION", "")

	s := SettingsFromEnv()
	if s.Region != defaultRegion {
		t.Fatalf("expected default region %q, got %s", defaultRegion, s.Region)
	}
	if s.Local() {
		t.Fatalf("no endpoint override means real AWS")
	}
}

func TestLoadAWSConfig_LocalStack(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_ENDPOINT_OVERRIDE", " http://localhost:4566 ")
	t.Setenv("AWS_ACCESS_KEY_ID", "")

	s := SettingsFromEnv()
	if s.Endpoint != "http://localhost:4566" || !s.Local() {
		t.Fatalf("endpoint override not picked up: %q", s.Endpoint)
	}

	cfg, err := LoadAWSConfig(context.Background(), s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Region != "eu-west-1" {
		t.Fatalf("region mismatch, got %s", cfg.Region)
	}
	creds, err := cfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve credentials: %v", err)
	}
	if creds.AccessKeyID != localAccessKey {
		t.Fatalf("expected emulator credentials, got %q", creds.AccessKeyID)
	}
}
