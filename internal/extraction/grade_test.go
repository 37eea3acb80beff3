package extraction

import (
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestGrade(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		failed     bool
		want       domain.ExtractionQualityLevel
	}{
		{"perfect", 100, false, domain.QualityExcellent},
		{"excellent boundary", 90, false, domain.QualityExcellent},
		{"good", 89.9, false, domain.QualityGood},
		{"good boundary", 70, false, domain.QualityGood},
		{"fair", 69.99, false, domain.QualityFair},
		{"fair boundary", 50, false, domain.QualityFair},
		{"poor", 49, false, domain.QualityPoor},
		{"zero without failure", 0, false, domain.QualityPoor},
		{"failed", 0, true, domain.QualityFailed},
		{"failed flag ignored above zero", 95, true, domain.QualityExcellent},
		{"negative clamped", -5, true, domain.QualityFailed},
		{"above range clamped", 140, false, domain.QualityExcellent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Grade(tt.confidence, tt.failed)
			if q.QualityLevel != tt.want {
				t.Errorf("expected %s, got %s", tt.want, q.QualityLevel)
			}
			if q.Notes == "" {
				t.Error("expected a note")
			}
			if q.ConfidenceScore < 0 || q.ConfidenceScore > 100 {
				t.Errorf("confidence %v out of range", q.ConfidenceScore)
			}
		})
	}
}

func TestGradeNotes(t *testing.T) {
	if got := Grade(92, false).Notes; got != "High quality text extraction - ready for analysis" {
		t.Errorf("unexpected note %q", got)
	}
	if got := Grade(10, false).Notes; got != "Poor text extraction - consider uploading a clearer image" {
		t.Errorf("unexpected note %q", got)
	}
}

func TestGradeExtraction(t *testing.T) {
	q := GradeExtraction(domain.Extraction{Confidence: 98, BlockCount: 4, MediaType: MediaTypeDOCX})
	if q.QualityLevel != domain.QualityExcellent || q.TextBlocks != 4 || q.MediaType != MediaTypeDOCX {
		t.Errorf("unexpected quality %+v", q)
	}
}
