package question

// Question is one dataset row. It is immutable once loaded.
type Question struct {
	ID              string         `json:"id" yaml:"id"`
	Text            string         `json:"question" yaml:"question"`
	ExpectedAnswer  string         `json:"expected_answer,omitempty" yaml:"expected_answer,omitempty"`
	Category        string         `json:"category,omitempty" yaml:"category,omitempty"`
	SourceReference string         `json:"source_reference,omitempty" yaml:"source_reference,omitempty"`
	DatasetFile     string         `json:"dataset_file,omitempty" yaml:"dataset_file,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Record is a raw row before normalization.
type Record map[string]any

// headerAliases maps accepted column names to canonical fields.
var headerAliases = map[string]string{
	"id":               "id",
	"question":         "question",
	"expected_answer":  "expected_answer",
	"expected_output":  "expected_answer",
	"category":         "category",
	"dataset_file":     "dataset_file",
	"source_reference": "source_reference",
}
