package entity

import "testing"

func TestSystemConfigBoolValue(t *testing.T) {
	tests := []struct {
		value   string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"1", true, false},
		{"YES", true, false},
		{" on ", true, false},
		{"false", false, false},
		{"0", false, false},
		{"off", false, false},
		{"maybe", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := SystemConfig{Value: tt.value}.BoolValue()
			if (err != nil) != tt.wantErr {
				t.Fatalf("BoolValue(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("BoolValue(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestSystemConfigDecimalValue(t *testing.T) {
	got, err := SystemConfig{Value: "5000.00"}.DecimalValue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 500000 {
		t.Errorf("DecimalValue = %d, want 500000", got)
	}

	if _, err := (SystemConfig{Value: "cinco mil"}).DecimalValue(); err == nil {
		t.Error("expected error for non-numeric decimal")
	}
	if _, err := (SystemConfig{Value: "--5000"}).DecimalValue(); err == nil {
		t.Error("expected error for doubled sign")
	}
}

func TestSystemConfigIntValue(t *testing.T) {
	got, err := SystemConfig{Value: " 10 "}.IntValue()
	if err != nil || got != 10 {
		t.Errorf("IntValue = %d, %v; want 10, nil", got, err)
	}

	if _, err := (SystemConfig{Value: "10.5"}).IntValue(); err == nil {
		t.Error("expected error for fractional integer")
	}
}
