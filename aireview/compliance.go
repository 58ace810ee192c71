package aireview

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// RequirementCheck is one README requirement matched against a document.
type RequirementCheck struct {
	Requirement string `json:"requirement"`
	Keyword     string `json:"keyword"`
	Passed      bool   `json:"passed"`
}

// ComplianceResult grades a document against a requirement bundle.
type ComplianceResult struct {
	Status      string             `json:"status"`
	FailedCount int                `json:"failed_count"`
	Checks      []RequirementCheck `json:"checks"`
}

var bulletPattern = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+(.+)$`)

// spanish filler words that make poor match keys
var stopwords = map[string]bool{
	"debe": true, "deben": true, "tener": true, "contar": true,
	"para": true, "con": true, "una": true, "las": true, "los": true,
	"del": true, "que": true, "todo": true, "toda": true, "cada": true,
	"este": true, "esta": true, "ser": true, "estar": true,
}

// ParseRequirements extracts the bullet items of a markdown README.
func ParseRequirements(readme string) []string {
	var requirements []string
	for _, line := range strings.Split(readme, "\n") {
		if match := bulletPattern.FindStringSubmatch(line); match != nil {
			requirement := strings.TrimSpace(match[1])
			if requirement != "" {
				requirements = append(requirements, requirement)
			}
		}
	}
	return requirements
}

// firstKeyword picks the first meaningful word of a requirement.
func firstKeyword(requirement string) string {
	cleaned := strings.ToLower(requirement)
	cleaned = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == ' ' || r > 127 {
			return r
		}
		return ' '
	}, cleaned)

	for _, word := range strings.Fields(cleaned) {
		if len([]rune(word)) >= 4 && !stopwords[word] {
			return word
		}
	}
	return ""
}

// EvaluateCompliance checks each README requirement's keyword against
// the document text. Grading: 0 failures check, up to 2 alerta, more
// than 2 error.
func EvaluateCompliance(readme string, documentText string) ComplianceResult {
	lowerDoc := strings.ToLower(documentText)

	result := ComplianceResult{Checks: []RequirementCheck{}}
	for _, requirement := range ParseRequirements(readme) {
		keyword := firstKeyword(requirement)
		passed := keyword != "" && strings.Contains(lowerDoc, keyword)
		if !passed {
			result.FailedCount++
		}
		result.Checks = append(result.Checks, RequirementCheck{
			Requirement: requirement,
			Keyword:     keyword,
			Passed:      passed,
		})
	}

	switch {
	case result.FailedCount == 0:
		result.Status = StatusCheck
	case result.FailedCount <= 2:
		result.Status = StatusAlerta
	default:
		result.Status = StatusError
	}
	return result
}

// RenderComplianceReport is the plain-text artifact stored next to the
// document.
func RenderComplianceReport(documentName string, result ComplianceResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "REPORTE DE CUMPLIMIENTO\n")
	fmt.Fprintf(&b, "Documento: %s\n", documentName)
	fmt.Fprintf(&b, "Generado: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Resultado: %s (%d requisitos sin evidencia)\n\n", result.Status, result.FailedCount)

	for _, check := range result.Checks {
		mark := "OK"
		if !check.Passed {
			mark = "FALTA"
		}
		fmt.Fprintf(&b, "[%s] %s\n", mark, check.Requirement)
	}
	return b.String()
}
