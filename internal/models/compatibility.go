package models

// Compatibility methods.
const (
	CompatTraditional = "traditional"
	CompatHybrid      = "hybrid"
)

// Breakdown holds the rounded per-factor points. Semantic is nil when no
// stored vectors were available for the pair.
type Breakdown struct {
	Skills     int  `json:"skills"`
	Location   int  `json:"location"`
	Experience int  `json:"experience"`
	Salary     int  `json:"salary"`
	Industry   int  `json:"industry"`
	Semantic   *int `json:"semantic,omitempty"`
}

// CompatibilityResult is computed per request and never stored.
type CompatibilityResult struct {
	Score      int       `json:"score"`
	Breakdown  Breakdown `json:"breakdown"`
	Tips       []string  `json:"tips"`
	Strengths  []string  `json:"strengths"`
	Weaknesses []string  `json:"weaknesses"`
	Method     string    `json:"method"`
}
