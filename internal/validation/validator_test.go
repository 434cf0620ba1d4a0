package validation

import (
	"strings"
	"testing"
)

func TestValidateRow(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name          string
		components    Components
		wantIndexable bool
		wantQuality   string
		wantIssue     string
	}{
		{
			name: "complete address",
			components: Components{
				Street:   "23 Willoughby Road",
				Suburb:   "Crows Nest",
				State:    "NSW",
				Postcode: "2065",
			},
			wantIndexable: true,
			wantQuality:   "GOOD",
		},
		{
			name: "missing postcode still indexable",
			components: Components{
				Street: "23 Willoughby Road",
				Suburb: "Crows Nest",
				State:  "NSW",
			},
			wantIndexable: true,
			wantQuality:   "FAIR",
		},
		{
			name: "blank street",
			components: Components{
				Suburb:   "Crows Nest",
				State:    "NSW",
				Postcode: "2065",
			},
			wantIndexable: false,
			wantQuality:   "POOR",
			wantIssue:     "street is blank",
		},
		{
			name: "blank suburb",
			components: Components{
				Street:   "23 Willoughby Road",
				State:    "NSW",
				Postcode: "2065",
			},
			wantIndexable: false,
			wantIssue:     "suburb is blank",
		},
		{
			name: "blank state",
			components: Components{
				Street:   "23 Willoughby Road",
				Suburb:   "Crows Nest",
				Postcode: "2065",
			},
			wantIndexable: false,
			wantIssue:     "state is blank",
		},
		{
			name: "bad postcode is advisory only",
			components: Components{
				Street:   "23 Willoughby Road",
				Suburb:   "Crows Nest",
				State:    "NSW",
				Postcode: "20650",
			},
			wantIndexable: true,
			wantIssue:     "postcode is not four digits",
		},
		{
			name: "unrecognised state token noted",
			components: Components{
				Street:   "23 Willoughby Road",
				Suburb:   "Crows Nest",
				State:    "XYZ",
				Postcode: "2065",
			},
			wantIndexable: true,
			wantIssue:     "unrecognised state token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rv := validator.ValidateRow(tt.components)

			if rv.Indexable != tt.wantIndexable {
				t.Errorf("Indexable = %v, want %v for %s", rv.Indexable, tt.wantIndexable, tt.components)
			}

			if tt.wantQuality != "" && rv.Quality != tt.wantQuality {
				t.Errorf("Quality = %s, want %s", rv.Quality, tt.wantQuality)
			}

			if tt.wantIssue != "" {
				found := false
				for _, issue := range rv.Issues {
					if strings.Contains(issue, tt.wantIssue) {
						found = true
					}
				}
				if !found {
					t.Errorf("Expected an issue containing %q, got %v", tt.wantIssue, rv.Issues)
				}
			}

			t.Logf("Result: %s", rv.String())
		})
	}
}

func TestCheckPostcode(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		input string
		want  bool
	}{
		{"2065", true},
		{"", true},
		{"  2065 ", true},
		{"206", false},
		{"20650", false},
		{"2O65", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := validator.CheckPostcode(tt.input); got.Valid != tt.want {
				t.Errorf("CheckPostcode(%q).Valid = %v, want %v", tt.input, got.Valid, tt.want)
			}
		})
	}
}

func TestQualityBuckets(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name       string
		components Components
		want       string
	}{
		{
			name: "full signal",
			components: Components{
				Street: "100 Pacific Highway", Suburb: "North Sydney", State: "NSW", Postcode: "2060",
			},
			want: "GOOD",
		},
		{
			name:       "short street with context",
			components: Components{Street: "1 X St", Suburb: "Sydney", State: "NSW", Postcode: "2000"},
			want:       "FAIR",
		},
		{
			name:       "placeholder street",
			components: Components{Street: "N/A", Suburb: "Sydney", State: "NSW", Postcode: "2000"},
			want:       "POOR",
		},
		{
			name:       "street alone",
			components: Components{Street: "1 X St"},
			want:       "POOR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validator.Quality(tt.components); got != tt.want {
				t.Errorf("Quality(%s) = %s, want %s", tt.components, got, tt.want)
			}
		})
	}
}
