package server

import (
	"testing"

	"github.com/mikeboe/company-researcher/pkg/research"
)

func TestServiceProfileFor(t *testing.T) {
	acme := &research.Profile{Name: "Acme Corp", Ticker: "ACME"}
	svc := &Service{Profiles: map[string]*research.Profile{"acme corp": acme}}

	tests := []struct {
		name    string
		subject string
		want    *research.Profile
	}{
		{"exact case", "acme corp", acme},
		{"mixed case", "Acme Corp", acme},
		{"no match", "Globex", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.profileFor(tt.subject); got != tt.want {
				t.Errorf("profileFor(%q) = %v, want %v", tt.subject, got, tt.want)
			}
		})
	}
}

func TestServiceProfileForWithoutProfiles(t *testing.T) {
	svc := &Service{}
	if got := svc.profileFor("Acme Corp"); got != nil {
		t.Errorf("profileFor with no profiles = %v, want nil", got)
	}
}
