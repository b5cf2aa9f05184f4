package interview

import "github.com/randalmurphal/interviewflow/pkg/flowgraph/llm"

// ConvertedResponse is the default structured form of an interviewer reply.
type ConvertedResponse struct {
	Kind               string   `json:"kind" jsonschema:"enum=question,enum=follow_up,enum=feedback,enum=closing,enum=other"`
	Question           string   `json:"question,omitempty" jsonschema:"description=The question asked, verbatim"`
	Topic              string   `json:"topic,omitempty"`
	Skills             []string `json:"skills,omitempty" jsonschema:"description=Skills the reply assesses"`
	Difficulty         string   `json:"difficulty,omitempty" jsonschema:"enum=easy,enum=medium,enum=hard"`
	Confidence         float64  `json:"confidence" jsonschema:"minimum=0,maximum=1"`
	InterviewConcluded bool     `json:"interview_concluded"`
}

// ConvertedResponseSchema is the schema reflected from ConvertedResponse.
var ConvertedResponseSchema = llm.MustSchemaFor[ConvertedResponse]("structure_reply",
	"Record the structured form of the interviewer's reply.")
