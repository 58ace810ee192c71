package aireview

import (
	"fmt"
	"strings"
)

// expected sections of a well-formed OIT document
var requiredKeywords = []struct {
	keyword string
	label   string
}{
	{"identificador", "identificador de la orden"},
	{"fecha", "fecha de la visita"},
	{"alcance", "alcance del trabajo"},
	{"requisito", "requisitos aplicables"},
	{"firma", "firma del responsable"},
}

// HeuristicReview grades a document by scanning for the sections every
// OIT must carry. Deterministic: the same text always yields the same
// verdict.
func HeuristicReview(text string) ReviewResult {
	lower := strings.ToLower(text)

	result := ReviewResult{
		Alerts:   []string{},
		Missing:  []string{},
		Evidence: []string{},
	}

	for _, required := range requiredKeywords {
		if strings.Contains(lower, required.keyword) {
			result.Evidence = append(result.Evidence, "contiene "+required.label)
		} else {
			result.Missing = append(result.Missing, required.label)
			result.Alerts = append(result.Alerts, "no se encontro "+required.label)
		}
	}

	switch missing := len(result.Missing); {
	case missing == 0:
		result.Status = StatusCheck
		result.Summary = "Revision heuristica: el documento contiene todas las secciones esperadas."
	case missing <= 2:
		result.Status = StatusAlerta
		result.Summary = fmt.Sprintf("Revision heuristica: faltan %d secciones esperadas.", missing)
	default:
		result.Status = StatusError
		result.Summary = fmt.Sprintf("Revision heuristica: faltan %d secciones esperadas.", missing)
	}

	return result
}

// RecommendResources proposes a starting resource request set from the
// document text. Field visits need transport; sampling needs equipment
// and consumables; an inspector always goes.
func RecommendResources(text string) []Recommendation {
	lower := strings.ToLower(text)

	recommendations := []Recommendation{
		{Type: "personal", Quantity: 1, Reason: "todo trabajo de inspeccion requiere un inspector"},
	}

	if strings.Contains(lower, "campo") || strings.Contains(lower, "visita") || strings.Contains(lower, "sitio") {
		recommendations = append(recommendations, Recommendation{
			Type: "vehiculo", Quantity: 1, Reason: "el documento menciona trabajo en campo",
		})
	}
	if strings.Contains(lower, "muestreo") || strings.Contains(lower, "muestra") {
		recommendations = append(recommendations,
			Recommendation{Type: "equipo", Quantity: 1, Reason: "el documento menciona muestreo"},
			Recommendation{Type: "insumo", Quantity: 1, Reason: "el muestreo consume insumos"},
		)
	}
	if strings.Contains(lower, "laboratorio") || strings.Contains(lower, "analisis") {
		recommendations = append(recommendations, Recommendation{
			Type: "equipo", Quantity: 1, Reason: "el documento menciona analisis de laboratorio",
		})
	}

	return recommendations
}
