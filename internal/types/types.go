package types

type Transcript struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// Candidate is a B-roll clip available for insertion. Duration is zero until
// the clip's media has been fetched and probed.
type Candidate struct {
	ID          string  `json:"id" validate:"required"`
	Description string  `json:"metadata"`
	Source      string  `json:"url" validate:"required"`
	Duration    float64 `json:"-"`
}

// ProposedInsertion is raw oracle output. None of its fields are trusted.
type ProposedInsertion struct {
	StartSec    float64 `json:"start_sec"`
	DurationSec float64 `json:"duration_sec"`
	CandidateID string  `json:"candidate_id"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
}

// ValidatedInsertion has the same shape as ProposedInsertion but is only
// produced by timeline.Validate, as a member of a rule-compliant set.
type ValidatedInsertion struct {
	StartSec    float64 `json:"start_sec"`
	DurationSec float64 `json:"duration_sec"`
	CandidateID string  `json:"candidate_id"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
}

func (v ValidatedInsertion) EndSec() float64 { return v.StartSec + v.DurationSec }

// Proposal turns a validated insertion back into an untrusted one, which is
// how a stored plan re-enters validation.
func (v ValidatedInsertion) Proposal() ProposedInsertion {
	return ProposedInsertion(v)
}

// Plan is the produced plan artifact. Insertions are sorted by start.
type Plan struct {
	BaseDuration float64              `json:"base_duration"`
	Insertions   []ValidatedInsertion `json:"insertions"`
}

type ARoll struct {
	URL      string `json:"url" validate:"required"`
	Metadata string `json:"metadata"`
}

type PlanRequest struct {
	ARoll  ARoll       `json:"a_roll" validate:"required"`
	BRolls []Candidate `json:"b_rolls" validate:"dive"`
}

type PlanResult struct {
	Plan       Plan      `json:"plan"`
	Transcript []Segment `json:"transcript_segments"`
}

type RenderRequest struct {
	ARollURL   string              `json:"a_roll_url" validate:"required"`
	BRolls     []Candidate         `json:"b_rolls" validate:"dive"`
	Insertions []ProposedInsertion `json:"insertions"`
}

// OutputRef points at a published render. Location is a local path or an
// object key; URL is set when the store can hand out a fetchable link.
type OutputRef struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	URL      string `json:"url,omitempty"`
}

type DroppedInsertion struct {
	Insertion ValidatedInsertion `json:"insertion"`
	Reason    string             `json:"reason"`
}

type RenderResult struct {
	Output   OutputRef            `json:"output"`
	Applied  []ValidatedInsertion `json:"applied"`
	Dropped  []DroppedInsertion   `json:"dropped,omitempty"`
	Duration float64              `json:"duration_sec"`
}

// OracleCandidate is the slice of a Candidate the oracle is allowed to see.
type OracleCandidate struct {
	ID          string `json:"broll_id"`
	Description string `json:"description"`
}

type OracleInput struct {
	Segments      []Segment
	BaseDuration  float64
	Candidates    []OracleCandidate
	BaseMetadata  string
	// Scheduling limits the validator will enforce. A zero MaxInsertions
	// means the defaults.
	MaxInsertions int
	MinGapSec     float64
}
