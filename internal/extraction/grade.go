// Package extraction turns uploaded documents into text and grades how
// trustworthy that text is.
package extraction

import "github.com/opensource-finance/harrier/internal/domain"

var qualityNotes = map[domain.ExtractionQualityLevel]string{
	domain.QualityExcellent: "High quality text extraction - ready for analysis",
	domain.QualityGood:      "Good text extraction - minor quality issues detected",
	domain.QualityFair:      "Fair text extraction - some text may need manual review",
	domain.QualityPoor:      "Poor text extraction - consider uploading a clearer image",
	domain.QualityFailed:    "Text extraction failed - the document could not be read",
}

// Grade maps an extraction confidence (0-100) to a quality tier.
// A zero confidence with the failed flag set is always graded failed.
// The grade is descriptive only and never feeds the fraud score.
func Grade(confidence float64, failed bool) domain.ExtractionQuality {
	if confidence != confidence || confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	var level domain.ExtractionQualityLevel
	switch {
	case failed && confidence == 0:
		level = domain.QualityFailed
	case confidence >= 90:
		level = domain.QualityExcellent
	case confidence >= 70:
		level = domain.QualityGood
	case confidence >= 50:
		level = domain.QualityFair
	default:
		level = domain.QualityPoor
	}

	return domain.ExtractionQuality{
		ConfidenceScore: confidence,
		QualityLevel:    level,
		Notes:           qualityNotes[level],
	}
}

// GradeExtraction grades an extraction and carries over its block count
// and media type.
func GradeExtraction(e domain.Extraction) domain.ExtractionQuality {
	q := Grade(e.Confidence, e.Failed)
	q.TextBlocks = e.BlockCount
	q.MediaType = e.MediaType
	return q
}
