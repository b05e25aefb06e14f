package anchors

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
)

// #region templates
// Each category has four templates ordered core to tail. Anchor index i in a
// category uses template i/16 and topic i%16.
var templates = map[Category][4]string{
	FactualKnowledge: {
		"State the established facts about %s.",
		"List the key figures and dates associated with %s.",
		"Summarize what is widely documented about %s.",
		"Give a short encyclopedia entry on %s.",
	},
	LogicalReasoning: {
		"If the premises about %s hold, derive what must follow.",
		"Identify the hidden assumption in an argument about %s.",
		"Decide whether a conclusion about %s is valid or a fallacy.",
		"Order the causes and consequences in a chain of reasoning about %s.",
	},
	CreativeWriting: {
		"Write a short story set in the world of %s.",
		"Compose a poem whose central image is %s.",
		"Describe %s through the eyes of a child.",
		"Invent a myth that explains the origin of %s.",
	},
	CodeGeneration: {
		"Write a function that models %s.",
		"Design a data structure to represent %s.",
		"Refactor a slow simulation of %s for performance.",
		"Write unit tests for a library that handles %s.",
	},
	Mathematical: {
		"Formulate an equation that describes %s.",
		"Estimate the order of magnitude of quantities in %s.",
		"Prove a bound on the growth rate observed in %s.",
		"Compute the expected value of a random process in %s.",
	},
	Scientific: {
		"Propose a testable hypothesis about %s.",
		"Explain the mechanism underlying %s.",
		"Design a controlled experiment to measure %s.",
		"Interpret the observational data collected on %s.",
	},
	Conversational: {
		"Chat casually with a friend about %s.",
		"Answer a curious question from a neighbor about %s.",
		"Keep a relaxed dialogue going on the topic of %s.",
		"Share a personal opinion about %s in a friendly tone.",
	},
	Instructional: {
		"Give step-by-step instructions for getting started with %s.",
		"Write a beginner tutorial that introduces %s.",
		"Create a checklist for practitioners working on %s.",
		"Explain common mistakes newcomers make with %s.",
	},
	Analytical: {
		"Break down the main factors that drive %s.",
		"Compare two competing approaches to %s.",
		"Assess the strengths and weaknesses of current thinking on %s.",
		"Identify the trends visible in recent data on %s.",
	},
	Emotional: {
		"Describe how someone might feel when confronted with %s.",
		"Offer empathy to a person anxious about %s.",
		"Express the excitement of a breakthrough in %s.",
		"Reflect on the frustration of setbacks in %s.",
	},
	Technical: {
		"Specify the system architecture required for %s.",
		"Document the interfaces and protocols involved in %s.",
		"Diagnose a failure mode in infrastructure supporting %s.",
		"List the performance constraints that limit %s.",
	},
	Historical: {
		"Trace the historical development of %s.",
		"Describe a turning point in the history of %s.",
		"Explain how earlier societies understood %s.",
		"Compare the past and present state of %s.",
	},
	Philosophical: {
		"Examine the ethical questions raised by %s.",
		"Discuss what %s reveals about human nature.",
		"Argue whether %s can ever be fully understood.",
		"Consider the meaning of progress in the context of %s.",
	},
	Legal: {
		"Outline the regulations that govern %s.",
		"Identify the liability issues that arise in %s.",
		"Draft a contract clause addressing %s.",
		"Summarize a court ruling relevant to %s.",
	},
	Medical: {
		"Explain the health implications of %s.",
		"Describe the clinical evidence related to %s.",
		"Advise a patient on risks connected to %s.",
		"Review treatment options influenced by %s.",
	},
	Business: {
		"Write a business plan that capitalizes on %s.",
		"Analyze the market opportunity created by %s.",
		"Estimate costs and revenue for a venture in %s.",
		"Pitch an investment in %s to a skeptical board.",
	},
}

var topics = [16]string{
	"climate systems",
	"distributed databases",
	"ancient trade routes",
	"protein folding",
	"market competition",
	"language acquisition",
	"urban planning",
	"renewable energy",
	"musical harmony",
	"immune response",
	"global supply chains",
	"planetary orbits",
	"contract negotiation",
	"neural networks",
	"water rights",
	"public health policy",
}

// tierWeights rank template tiers from core to tail.
var tierWeights = [4]float64{1.0, 0.9, 0.8, 0.7}

// #endregion templates

// #region text
// ReferenceText returns the deterministic text for anchor index (0..PerCategory-1)
// within category.
func ReferenceText(cat Category, index int) (string, error) {
	tmpl, ok := templates[cat]
	if !ok {
		return "", fmt.Errorf("unknown category %q", cat)
	}
	if index < 0 || index >= PerCategory {
		return "", fmt.Errorf("anchor index %d out of range [0,%d)", index, PerCategory)
	}
	return fmt.Sprintf(tmpl[index/len(topics)], topics[index%len(topics)]), nil
}

// WeightFor returns the weight of anchor index within its category.
func WeightFor(index int) float64 {
	return tierWeights[(index/len(topics))%len(tierWeights)]
}

// #endregion text

// #region generator
// GeneratorConfig controls synthetic vector generation.
type GeneratorConfig struct {
	Dimension int     // vector width; 0 generates text-only anchors
	Spread    float64 // relative noise around each category centroid
	Seed      uint64  // version salt; same seed, same corpus
}

// DefaultGeneratorConfig returns a 768-dimensional corpus with moderate spread.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{Dimension: 768, Spread: 0.35}
}

// Generate builds the full corpus. Ids are assigned category-major: category k
// owns ids [k*PerCategory, (k+1)*PerCategory). Output is identical on every run
// for the same config.
func Generate(cfg GeneratorConfig) (*Corpus, error) {
	if cfg.Dimension < 0 {
		return nil, fmt.Errorf("negative dimension %d", cfg.Dimension)
	}
	out := make([]Anchor, 0, AnchorCount)
	for k, cat := range categories {
		var centroid []float64
		if cfg.Dimension > 0 {
			centroid = unitGaussian(cfg.Dimension, seedFor("centroid", string(cat)), cfg.Seed)
		}
		for i := 0; i < PerCategory; i++ {
			text, err := ReferenceText(cat, i)
			if err != nil {
				return nil, err
			}
			a := Anchor{
				ID:            k*PerCategory + i,
				Category:      cat,
				ReferenceText: text,
				Weight:        WeightFor(i),
			}
			if cfg.Dimension > 0 {
				noise := unitGaussian(cfg.Dimension, seedFor(string(cat), fmt.Sprint(i)), cfg.Seed)
				a.Vector = blend(centroid, noise, cfg.Spread)
			}
			out = append(out, a)
		}
	}
	return New(out)
}

func seedFor(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return h.Sum64()
}

func unitGaussian(n int, seed, salt uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, salt))
	v := make([]float64, n)
	var sum float64
	for i := range v {
		v[i] = rng.NormFloat64()
		sum += v[i] * v[i]
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
	return v
}

// blend returns normalize(centroid + spread*noise) as float32.
func blend(centroid, noise []float64, spread float64) []float32 {
	mixed := make([]float64, len(centroid))
	var sum float64
	for i := range centroid {
		mixed[i] = centroid[i] + spread*noise[i]
		sum += mixed[i] * mixed[i]
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(mixed))
	for i, x := range mixed {
		out[i] = float32(x / norm)
	}
	return out
}

// #endregion generator
