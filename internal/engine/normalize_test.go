package engine

import (
	"reflect"
	"testing"
)

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Spotify ABO", "spotifyabo"},
		{"SPOTIFY-ABO", "spotifyabo"},
		{"  spotify.abo  ", "spotifyabo"},
		{"Disney+ order #42", "disneyorder42"},
		{"***", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeDescription(tt.input); got != tt.want {
				t.Errorf("NormalizeDescription(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDeriveProviderName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain description", "Netflix subscription", "Netflix"},
		{"uppercase token", "SPOTIFY ABO", "Spotify"},
		{"punctuation stripped", "Disney+ order", "Disney"},
		{"leading digits skipped", "1Password subscription", "Password"},
		{"no letters falls back to title case", "  1234 5678 ", "1234 5678"},
		{"fallback keeps internal spacing", " 1234  5678 ", "1234  5678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveProviderName(tt.input); got != tt.want {
				t.Errorf("DeriveProviderName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestClassifyEmail(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		body    string
		want    []string
	}{
		{
			name:    "renewal keyword in body",
			subject: "Your subscription",
			body:    "It is time to renew your plan.",
			want:    []string{TagRenewalNotice},
		},
		{
			name:    "swedish renewal keyword",
			subject: "Dags att förnya",
			body:    "",
			want:    []string{TagRenewalNotice},
		},
		{
			name:    "price increase in body",
			subject: "Pricing update",
			body:    "Your plan moves to a higher rate.",
			want:    []string{TagPriceIncrease},
		},
		{
			name:    "both signals",
			subject: "Renewal and price increase",
			body:    "",
			want:    []string{TagRenewalNotice, TagPriceIncrease},
		},
		{
			name:    "no signal",
			subject: "Welcome",
			body:    "Thanks for signing up.",
			want:    nil,
		},
		{
			name:    "subject and body are matched as one text",
			subject: "About your price",
			body:    "increase coming next month",
			want:    []string{TagPriceIncrease},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyEmail(tt.subject, tt.body)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ClassifyEmail(%q, %q) = %v, want %v", tt.subject, tt.body, got, tt.want)
			}
		})
	}
}
