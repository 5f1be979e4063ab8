package domain

// RetrievedPassage is one chunk returned by the vector index, ordered by
// descending similarity.
type RetrievedPassage struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// VerifiedAnswer is the structured output of one query. FailureKind is empty
// on success and on the normal "no relevant context" outcome; it carries a
// machine-readable category when the pipeline itself failed, so callers can
// tell an empty result from a system error.
type VerifiedAnswer struct {
	Answer            string             `json:"answer"`
	FaithfulnessScore float64            `json:"faithfulness_score"`
	Explanation       string             `json:"explanation"`
	SourceCitation    string             `json:"source_citation"`
	Sources           []RetrievedPassage `json:"sources,omitempty"`
	FailureKind       string             `json:"error,omitempty"`
}

const (
	FailureUpstreamTimeout  = "upstream_timeout"
	FailureGenerationFormat = "generation_format"
	FailureInternal         = "internal"
)

const noContextAnswer = "I couldn't find any relevant information in the indexed documents."

// NoContextAnswer is returned when retrieval yields zero passages. It is a
// normal outcome, not a failure, and the generator is never consulted for it.
func NoContextAnswer() *VerifiedAnswer {
	return &VerifiedAnswer{
		Answer:            noContextAnswer,
		FaithfulnessScore: 0.0,
		Explanation:       "No indexed passages matched the question.",
		SourceCitation:    "",
	}
}

// FailureAnswer shapes a system error as a VerifiedAnswer so the query
// response contract stays uniform for success and failure.
func FailureAnswer(kind, explanation string) *VerifiedAnswer {
	return &VerifiedAnswer{
		Answer:            "An error occurred while answering the question.",
		FaithfulnessScore: 0.0,
		Explanation:       explanation,
		SourceCitation:    "",
		FailureKind:       kind,
	}
}
