package aireview

import (
	"strings"
	"testing"
)

const testReadme = `# Requisitos OIT

Los documentos deben cumplir:

- Identificador unico de la orden
- Cronograma de actividades
- Responsable designado
* Equipo de proteccion personal
1. Procedimiento de muestreo
`

func TestParseRequirements(t *testing.T) {
	requirements := ParseRequirements(testReadme)
	if len(requirements) != 5 {
		t.Fatalf("got %d requirements, want 5: %v", len(requirements), requirements)
	}
	if requirements[0] != "Identificador unico de la orden" {
		t.Errorf("first requirement = %q", requirements[0])
	}
	if requirements[4] != "Procedimiento de muestreo" {
		t.Errorf("numbered bullet not parsed: %q", requirements[4])
	}
}

func TestEvaluateComplianceAllPass(t *testing.T) {
	document := "Identificador OIT-1. Cronograma adjunto. Responsable: Ing. Lopez. Equipo completo. Procedimiento aprobado."
	result := EvaluateCompliance(testReadme, document)
	if result.Status != StatusCheck || result.FailedCount != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestEvaluateComplianceThresholds(t *testing.T) {
	// two failures: alerta
	document := "Identificador OIT-1. Cronograma adjunto. Responsable: Ing. Lopez."
	result := EvaluateCompliance(testReadme, document)
	if result.FailedCount != 2 {
		t.Fatalf("failed count = %d, want 2", result.FailedCount)
	}
	if result.Status != StatusAlerta {
		t.Errorf("status = %q, want alerta", result.Status)
	}

	// everything fails: error
	result = EvaluateCompliance(testReadme, "documento vacio")
	if result.Status != StatusError {
		t.Errorf("status = %q, want error", result.Status)
	}
}

func TestEvaluateComplianceCaseInsensitive(t *testing.T) {
	result := EvaluateCompliance("- Cronograma de actividades", "CRONOGRAMA adjunto")
	if result.FailedCount != 0 {
		t.Errorf("case-insensitive match failed: %+v", result)
	}
}

func TestRenderComplianceReport(t *testing.T) {
	result := EvaluateCompliance(testReadme, "Identificador OIT-1")
	report := RenderComplianceReport("oit-1.pdf", result)

	if !strings.Contains(report, "oit-1.pdf") {
		t.Error("report missing document name")
	}
	if !strings.Contains(report, "[OK] Identificador unico de la orden") {
		t.Error("report missing passed check")
	}
	if !strings.Contains(report, "[FALTA]") {
		t.Error("report missing failed checks")
	}
}
