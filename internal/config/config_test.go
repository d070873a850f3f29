package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	s, err := Load("/nonexistent/path.json", Overrides{})
	if err != nil {
		t.Fatalf("unexpected error loading defaults: %v", err)
	}
	if s.TagWriterBackend != "meta-json" {
		t.Fatalf("expected default backend meta-json, got %s", s.TagWriterBackend)
	}
	if s.PlanConflictPolicy != "FAIL" {
		t.Fatalf("expected default conflict policy FAIL, got %s", s.PlanConflictPolicy)
	}
}

func TestLoadRejectsUnimplementedConflictPolicy(t *testing.T) {
	_, err := Load("/nonexistent/path.json", Overrides{PlanConflictPolicy: "RENAME"})
	if err == nil {
		t.Fatal("expected RENAME conflict policy to be rejected as unimplemented")
	}
}

func TestLoadRejectsUnknownConflictPolicy(t *testing.T) {
	_, err := Load("/nonexistent/path.json", Overrides{PlanConflictPolicy: "SHRUG"})
	if err == nil {
		t.Fatal("expected an unknown conflict policy to be rejected")
	}
}

func TestOverrideWinsOverDefault(t *testing.T) {
	s, err := Load("/nonexistent/path.json", Overrides{TagWriterBackend: "mutagen"})
	if err != nil {
		t.Fatal(err)
	}
	if s.TagWriterBackend != "mutagen" {
		t.Fatalf("expected CLI override to win, got %s", s.TagWriterBackend)
	}
}

func TestSettingsHashIsolatesStages(t *testing.T) {
	a := Settings{TagWriterBackend: "meta-json", IdentifyScoringVersion: "v1", PlanConflictPolicy: "FAIL"}
	b := a
	b.TagWriterBackend = "mutagen"

	if SettingsHash(a, StageIdentify) != SettingsHash(b, StageIdentify) {
		t.Fatal("identify stage hash must not depend on tag_writer_backend")
	}
	if SettingsHash(a, StageApply) == SettingsHash(b, StageApply) {
		t.Fatal("apply stage hash must depend on tag_writer_backend")
	}
}
