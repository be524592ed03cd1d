package domain

import (
	"errors"
	"testing"
)

func TestPropertySchemaValidate(t *testing.T) {
	schema := &PropertySchema{
		Required: []PropertyDef{
			{Name: "hostname", Type: "string", Pattern: `^[a-z0-9-]+$`},
		},
		Optional: []PropertyDef{
			{Name: "cpu_cores", Type: "number"},
			{Name: "tier", Enum: []string{"gold", "silver"}},
			{Name: "managed", Type: "bool"},
		},
	}

	tests := []struct {
		name    string
		props   map[string]any
		wantErr bool
	}{
		{"valid minimal", map[string]any{"hostname": "web-01"}, false},
		{"valid full", map[string]any{"hostname": "web-01", "cpu_cores": float64(8), "tier": "gold", "managed": true}, false},
		{"missing required", map[string]any{"cpu_cores": float64(8)}, true},
		{"pattern violation", map[string]any{"hostname": "Web 01"}, true},
		{"wrong type", map[string]any{"hostname": "web-01", "cpu_cores": "eight"}, true},
		{"enum violation", map[string]any{"hostname": "web-01", "tier": "platinum"}, true},
		{"bool violation", map[string]any{"hostname": "web-01", "managed": "yes"}, true},
		{"unknown properties pass through", map[string]any{"hostname": "web-01", "anything": []any{1, 2}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.Validate(tt.props)
			if tt.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNilSchemaAcceptsEverything(t *testing.T) {
	var schema *PropertySchema
	if err := schema.Validate(map[string]any{"whatever": 1}); err != nil {
		t.Fatalf("nil schema must accept any properties, got %v", err)
	}
}

func TestValidStatus(t *testing.T) {
	if !ValidStatus(StatusActive, nil) {
		t.Fatal("Active must be in the default set")
	}
	if ValidStatus("Exploded", nil) {
		t.Fatal("unknown status must be rejected")
	}
	narrowed := []EntityStatus{StatusPlanned, StatusActive}
	if ValidStatus(StatusMaintenance, narrowed) {
		t.Fatal("narrowed set must exclude Maintenance")
	}
	if !ValidStatus(StatusPlanned, narrowed) {
		t.Fatal("narrowed set must include Planned")
	}
}

func TestPageOf(t *testing.T) {
	tests := []struct {
		total, limit, offset int
		wantPage, wantPages  int
	}{
		{0, 10, 0, 1, 0},
		{25, 10, 0, 1, 3},
		{25, 10, 20, 3, 3},
		{5, 0, 0, 1, 1},
	}
	for _, tt := range tests {
		page, pages := PageOf(tt.total, tt.limit, tt.offset)
		if page != tt.wantPage || pages != tt.wantPages {
			t.Fatalf("PageOf(%d, %d, %d) = (%d, %d), want (%d, %d)",
				tt.total, tt.limit, tt.offset, page, pages, tt.wantPage, tt.wantPages)
		}
	}
}
