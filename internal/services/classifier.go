package services

import (
	"net/http"
	"path/filepath"
	"strings"
)

const WasteTypeMixed = "mixed"

// Classification is a waste type guess with a confidence in [0, 1]
type Classification struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

type Classifier interface {
	Classify(filename string, image []byte) Classification
}

// Checked in order; the first type with the most hits wins
var wasteKeywords = []struct {
	wasteType string
	keywords  []string
}{
	{"hazardous", []string{"battery", "batteries", "chemical", "paint", "oil", "asbestos", "syringe", "toxic"}},
	{"electronic", []string{"electronic", "ewaste", "e-waste", "phone", "laptop", "computer", "tv", "monitor", "cable"}},
	{"plastic", []string{"plastic", "bottle", "bag", "wrapper", "pet", "container", "straw"}},
	{"glass", []string{"glass", "jar", "window", "shard"}},
	{"metal", []string{"metal", "can", "tin", "aluminium", "aluminum", "scrap", "steel"}},
	{"paper", []string{"paper", "cardboard", "carton", "newspaper", "box"}},
	{"organic", []string{"organic", "food", "garden", "leaves", "branch", "compost", "green"}},
	{"construction", []string{"construction", "rubble", "brick", "concrete", "debris", "tile"}},
}

// KeywordClassifier guesses a waste type from the words in an image filename
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify matches filename tokens against known keywords. When image bytes
// are supplied but do not look like an image, the guess gets zero confidence.
func (c *KeywordClassifier) Classify(filename string, image []byte) Classification {
	if len(image) > 0 && !strings.HasPrefix(http.DetectContentType(image), "image/") {
		return Classification{Type: WasteTypeMixed, Confidence: 0}
	}

	tokens := tokenize(filename)
	bestType, bestHits := WasteTypeMixed, 0
	for _, group := range wasteKeywords {
		hits := 0
		for _, kw := range group.keywords {
			if tokens[kw] {
				hits++
			}
		}
		if hits > bestHits {
			bestType, bestHits = group.wasteType, hits
		}
	}

	if bestHits == 0 {
		return Classification{Type: WasteTypeMixed, Confidence: 0.3}
	}

	confidence := 0.6 + 0.1*float64(bestHits-1)
	if confidence > 0.95 {
		confidence = 0.95
	}
	return Classification{Type: bestType, Confidence: confidence}
}

func tokenize(filename string) map[string]bool {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	fields := strings.FieldsFunc(base, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-')
	})

	tokens := make(map[string]bool, len(fields))
	for _, f := range fields {
		tokens[f] = true
		for _, part := range strings.Split(f, "-") {
			if part != "" {
				tokens[part] = true
			}
		}
	}
	return tokens
}
