package models

import (
	"strings"
	"testing"
)

func TestParseResourceCSV(t *testing.T) {
	csvData := strings.Join([]string{
		"name,type,quantity,available,status,location,description",
		"Camioneta Norte,vehiculo,2,true,available,Monterrey,4x4",
		"Bomba de muestreo,equipo,5,,,Almacen,",
		"Ing. Perez,personal,1,false,maintenance,,",
	}, "\n")

	inputs, err := ParseResourceCSV([]byte(csvData))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(inputs) != 3 {
		t.Fatalf("got %d rows, want 3", len(inputs))
	}

	first := inputs[0]
	if first.Name != "Camioneta Norte" || first.Type != ResourceTypeVehiculo || first.Quantity != 2 {
		t.Errorf("unexpected first row: %+v", first)
	}
	if first.Location != "Monterrey" || first.Description != "4x4" {
		t.Errorf("unexpected first row extras: %+v", first)
	}

	second := inputs[1]
	if second.Quantity != 5 || second.Available == nil || !*second.Available || second.Status != ResourceStatusAvailable {
		t.Errorf("defaults not applied: %+v", second)
	}

	third := inputs[2]
	if third.Available == nil || *third.Available || third.Status != ResourceStatusMaintenance {
		t.Errorf("unexpected third row: %+v", third)
	}
}

func TestParseResourceCSVWithoutHeader(t *testing.T) {
	inputs, err := ParseResourceCSV([]byte("Camioneta,vehiculo,1\n"))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(inputs) != 1 || inputs[0].Name != "Camioneta" {
		t.Fatalf("unexpected rows: %+v", inputs)
	}
}

func TestParseResourceCSVRejectsBadRows(t *testing.T) {
	cases := []struct {
		name string
		csv  string
	}{
		{"unknown type", "Camioneta,nave,1\n"},
		{"negative quantity", "Camioneta,vehiculo,-1\n"},
		{"bad available flag", "Camioneta,vehiculo,1,maybe\n"},
		{"bad status", "Camioneta,vehiculo,1,true,broken\n"},
		{"missing name", ",vehiculo,1\n"},
		{"empty file", ""},
		{"header only", "name,type\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseResourceCSV([]byte(tc.csv)); err == nil {
				t.Errorf("expected error for %q", tc.csv)
			}
		})
	}
}
