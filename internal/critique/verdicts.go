package critique

import (
	_ "embed"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed verdicts.yaml
var verdictsYAML []byte

// Score bands, lowest first.
const (
	BandVeryPoor         = "veryPoor"
	BandPoor             = "poor"
	BandBelowAverage     = "belowAverage"
	BandBelowAveragePlus = "belowAveragePlus"
	BandAverage          = "average"
	BandAboveAverage     = "aboveAverage"
	BandGood             = "good"
	BandVeryGood         = "veryGood"
	BandExcellent        = "excellent"
	BandPerfect          = "perfect"
)

var bands = []string{
	BandVeryPoor, BandPoor, BandBelowAverage, BandBelowAveragePlus, BandAverage,
	BandAboveAverage, BandGood, BandVeryGood, BandExcellent, BandPerfect,
}

// Band maps a score to its ten-point band: 0-10, 11-20, ..., 91-100.
func Band(score int) string {
	switch {
	case score >= 91:
		return BandPerfect
	case score >= 81:
		return BandExcellent
	case score >= 71:
		return BandVeryGood
	case score >= 61:
		return BandGood
	case score >= 51:
		return BandAboveAverage
	case score >= 41:
		return BandAverage
	case score >= 31:
		return BandBelowAveragePlus
	case score >= 21:
		return BandBelowAverage
	case score >= 11:
		return BandPoor
	default:
		return BandVeryPoor
	}
}

// Verdicts is the per-language verdict catalogue.
type Verdicts struct {
	catalogue map[string]map[string][]string

	mu  sync.Mutex
	rnd *rand.Rand
}

// LoadVerdicts parses the embedded catalogue.
func LoadVerdicts() (*Verdicts, error) {
	return ParseVerdicts(verdictsYAML, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// ParseVerdicts builds a catalogue from YAML. Every language must cover every band.
func ParseVerdicts(data []byte, rnd *rand.Rand) (*Verdicts, error) {
	var catalogue map[string]map[string][]string
	if err := yaml.Unmarshal(data, &catalogue); err != nil {
		return nil, fmt.Errorf("failed to parse verdict catalogue: %w", err)
	}
	if _, ok := catalogue[defaultLanguage]; !ok {
		return nil, fmt.Errorf("verdict catalogue has no %q entries", defaultLanguage)
	}
	for lang, byBand := range catalogue {
		for _, band := range bands {
			if len(byBand[band]) == 0 {
				return nil, fmt.Errorf("verdict catalogue %q is missing band %q", lang, band)
			}
		}
	}
	return &Verdicts{catalogue: catalogue, rnd: rnd}, nil
}

// Pick returns a random verdict for the score's band. Unknown languages use English.
func (v *Verdicts) Pick(score int, lang string) string {
	byBand, ok := v.catalogue[lang]
	if !ok {
		byBand = v.catalogue[defaultLanguage]
	}
	options := byBand[Band(score)]

	v.mu.Lock()
	i := v.rnd.Intn(len(options))
	v.mu.Unlock()
	return options[i]
}

// Options lists the verdicts available for a band and language.
func (v *Verdicts) Options(band, lang string) []string {
	byBand, ok := v.catalogue[lang]
	if !ok {
		byBand = v.catalogue[defaultLanguage]
	}
	return byBand[band]
}
