package anchors

import "errors"

// ErrAnchorNotFound reports an anchor id that does not resolve to a stored vector.
var ErrAnchorNotFound = errors.New("anchor not found")

// #region sizes
const (
	AnchorCount   = 1024
	CategoryCount = 16
	PerCategory   = AnchorCount / CategoryCount
)

// #endregion sizes

// #region category
// Category is one of the sixteen semantic partitions of the reference corpus.
type Category string

const (
	FactualKnowledge Category = "factual_knowledge"
	LogicalReasoning Category = "logical_reasoning"
	CreativeWriting  Category = "creative_writing"
	CodeGeneration   Category = "code_generation"
	Mathematical     Category = "mathematical"
	Scientific       Category = "scientific"
	Conversational   Category = "conversational"
	Instructional    Category = "instructional"
	Analytical       Category = "analytical"
	Emotional        Category = "emotional"
	Technical        Category = "technical"
	Historical       Category = "historical"
	Philosophical    Category = "philosophical"
	Legal            Category = "legal"
	Medical          Category = "medical"
	Business         Category = "business"
)

var categories = [CategoryCount]Category{
	FactualKnowledge, LogicalReasoning, CreativeWriting, CodeGeneration,
	Mathematical, Scientific, Conversational, Instructional,
	Analytical, Emotional, Technical, Historical,
	Philosophical, Legal, Medical, Business,
}

// Categories returns the categories in canonical order.
func Categories() []Category {
	out := make([]Category, CategoryCount)
	copy(out, categories[:])
	return out
}

// Valid reports whether c is one of the sixteen categories.
func (c Category) Valid() bool {
	for _, k := range categories {
		if k == c {
			return true
		}
	}
	return false
}

// #endregion category

// #region anchor
// Anchor is a fixed reference point with a known category. Weight ranks core
// anchors above tail anchors within a category; it is metadata only and does not
// enter similarity scoring. Vector is nil when no embedding has been supplied.
type Anchor struct {
	ID            int       `json:"id"`
	Category      Category  `json:"category"`
	ReferenceText string    `json:"reference_text"`
	Weight        float64   `json:"weight"`
	Vector        []float32 `json:"vector,omitempty"`
}

// HasVector reports whether the anchor participates in similarity search.
func (a Anchor) HasVector() bool {
	return len(a.Vector) > 0
}

// #endregion anchor
