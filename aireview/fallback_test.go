package aireview

import "testing"

func TestHeuristicReviewComplete(t *testing.T) {
	result := HeuristicReview(completeDocument)
	if result.Status != StatusCheck {
		t.Errorf("status = %q, want check", result.Status)
	}
	if len(result.Missing) != 0 {
		t.Errorf("missing = %v", result.Missing)
	}
	if len(result.Evidence) != 5 {
		t.Errorf("evidence count = %d, want 5", len(result.Evidence))
	}
}

func TestHeuristicReviewGrading(t *testing.T) {
	// two sections missing: alerta
	partial := "Identificador: OIT-9. Fecha: hoy. Alcance: bodega."
	result := HeuristicReview(partial)
	if result.Status != StatusAlerta {
		t.Errorf("status = %q, want alerta (missing %v)", result.Status, result.Missing)
	}

	// more than two missing: error
	result = HeuristicReview("texto sin secciones")
	if result.Status != StatusError {
		t.Errorf("status = %q, want error", result.Status)
	}
	if len(result.Missing) != 5 {
		t.Errorf("missing count = %d, want 5", len(result.Missing))
	}
}

func TestHeuristicReviewDeterministic(t *testing.T) {
	a := HeuristicReview(completeDocument)
	b := HeuristicReview(completeDocument)
	if a.Status != b.Status || len(a.Evidence) != len(b.Evidence) {
		t.Error("same input produced different verdicts")
	}
}

func TestRecommendResources(t *testing.T) {
	recommendations := RecommendResources("Visita de campo con muestreo de agua")

	types := map[string]bool{}
	for _, rec := range recommendations {
		types[rec.Type] = true
	}
	for _, want := range []string{"personal", "vehiculo", "equipo", "insumo"} {
		if !types[want] {
			t.Errorf("missing recommendation type %q in %v", want, recommendations)
		}
	}

	// bare text still recommends an inspector
	minimal := RecommendResources("revision documental")
	if len(minimal) != 1 || minimal[0].Type != "personal" {
		t.Errorf("unexpected minimal recommendations: %+v", minimal)
	}
}
