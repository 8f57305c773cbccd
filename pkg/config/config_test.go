package config

import (
	"reflect"
	"testing"
)

func TestLoadDomainLists(t *testing.T) {
	tests := []struct {
		name    string
		include string
		want    []string
	}{
		{"unset", "", nil},
		{"single", "sec.gov", []string{"sec.gov"}},
		{"trims and drops empties", " sec.gov , reuters.com ,,", []string{"sec.gov", "reuters.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("INCLUDE_DOMAINS", tt.include)
			cfg := Load()
			if !reflect.DeepEqual(cfg.IncludeDomains, tt.want) {
				t.Errorf("IncludeDomains = %v, want %v", cfg.IncludeDomains, tt.want)
			}
		})
	}
}

func TestLoadExcludeDomains(t *testing.T) {
	t.Setenv("EXCLUDE_DOMAINS", "pinterest.com,quora.com")
	cfg := Load()
	want := []string{"pinterest.com", "quora.com"}
	if !reflect.DeepEqual(cfg.ExcludeDomains, want) {
		t.Errorf("ExcludeDomains = %v, want %v", cfg.ExcludeDomains, want)
	}
}

func TestLoadProfilesDir(t *testing.T) {
	t.Setenv("PROFILES_DIR", "")
	if got := Load().ProfilesDir; got != "profiles" {
		t.Errorf("ProfilesDir = %q, want default", got)
	}

	t.Setenv("PROFILES_DIR", "/etc/researcher/profiles")
	if got := Load().ProfilesDir; got != "/etc/researcher/profiles" {
		t.Errorf("ProfilesDir = %q, want override", got)
	}
}
