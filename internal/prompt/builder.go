// Package prompt turns validated feature input into chat message sequences.
// Every builder is a pure function of its input.
package prompt

import (
	"encoding/base64"
	"mime"
	"strings"

	"github.com/davidbz/medimentor/internal/domain"
)

var (
	_ domain.Prompt = AgentQuery{}
	_ domain.Prompt = CaseAnalysis{}
	_ domain.Prompt = MCQ{}
	_ domain.Prompt = CaseDiscussion{}
	_ domain.Prompt = ImageAnalysis{}
)

// MaxMCQOptions is the largest number of answer options an MCQ may carry.
const MaxMCQOptions = 4

// AgentQuery is a free-form question for the assistant.
type AgentQuery struct {
	Query string `json:"query"`
}

// Feature returns the feature identifier.
func (q AgentQuery) Feature() string { return FeatureAgentMode }

// Build renders the persona and the query.
func (q AgentQuery) Build() ([]domain.ChatMessage, error) {
	if isBlank(q.Query) {
		return nil, domain.InvalidInput("No query provided.")
	}

	return []domain.ChatMessage{
		domain.TextMessage(domain.RoleSystem, agentPersona),
		domain.TextMessage(domain.RoleUser, q.Query),
	}, nil
}

// CaseAnalysis asks for a structured analysis of a clinical case.
type CaseAnalysis struct {
	CaseText string `json:"caseText"`
}

// Feature returns the feature identifier.
func (c CaseAnalysis) Feature() string { return FeatureCaseLearning }

// Build renders the structured-output template around the case text.
func (c CaseAnalysis) Build() ([]domain.ChatMessage, error) {
	if isBlank(c.CaseText) {
		return nil, domain.InvalidInput("No case provided.")
	}

	var b strings.Builder
	b.WriteString(caseAnalysisIntro)
	b.WriteString(c.CaseText)
	b.WriteString("\n\n")
	b.WriteString(caseAnalysisFormat)
	for _, heading := range CaseAnalysisHeadings {
		b.WriteString("- ")
		b.WriteString(heading)
		b.WriteString("\n")
	}

	return []domain.ChatMessage{
		domain.TextMessage(domain.RoleUser, b.String()),
	}, nil
}

// Option is one labelled MCQ answer.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// MCQ is a multiple choice question with an optional learner selection.
// Without options the question is sent as-is, which lets callers submit
// an already formatted question.
type MCQ struct {
	Question string   `json:"question"`
	Options  []Option `json:"options,omitempty"`
	Selected string   `json:"selected,omitempty"`
}

// Feature returns the feature identifier.
func (m MCQ) Feature() string { return FeatureMCQTutor }

// Build renders the tutor persona and the serialized question.
func (m MCQ) Build() ([]domain.ChatMessage, error) {
	if isBlank(m.Question) {
		return nil, domain.InvalidInput("No question provided.")
	}

	content, err := m.serialize()
	if err != nil {
		return nil, err
	}

	return []domain.ChatMessage{
		domain.TextMessage(domain.RoleSystem, mcqPersona),
		domain.TextMessage(domain.RoleUser, content),
	}, nil
}

func (m MCQ) serialize() (string, error) {
	selected := strings.TrimSpace(m.Selected)

	if len(m.Options) == 0 {
		if selected != "" {
			return "", domain.InvalidInput("selection %q given without options", selected)
		}
		return m.Question, nil
	}

	if len(m.Options) > MaxMCQOptions {
		return "", domain.InvalidInput("at most %d options are allowed, got %d", MaxMCQOptions, len(m.Options))
	}

	var b strings.Builder
	b.WriteString(m.Question)
	b.WriteString("\nOptions:\n")

	found := selected == ""
	for _, opt := range m.Options {
		label := strings.TrimSpace(opt.Label)
		if label == "" {
			return "", domain.InvalidInput("option label cannot be empty")
		}
		if label == selected {
			found = true
		}
		b.WriteString(label)
		b.WriteString(". ")
		b.WriteString(opt.Value)
		b.WriteString("\n")
	}

	if !found {
		return "", domain.InvalidInput("selected option %q does not exist", selected)
	}

	if selected == "" {
		selected = noSelection
	}
	b.WriteString("User selected: ")
	b.WriteString(selected)

	return b.String(), nil
}

// CaseDiscussion is one turn of a case discussion. Callers re-send the
// original case on every turn together with the learner's latest answer.
type CaseDiscussion struct {
	CaseText   string `json:"caseText"`
	UserAnswer string `json:"userAnswer,omitempty"`
}

// Feature returns the feature identifier.
func (d CaseDiscussion) Feature() string { return FeatureCaseDiscussion }

// Build renders the consultant persona, the case and the optional answer.
func (d CaseDiscussion) Build() ([]domain.ChatMessage, error) {
	if isBlank(d.CaseText) {
		return nil, domain.InvalidInput("No case provided.")
	}

	messages := []domain.ChatMessage{
		domain.TextMessage(domain.RoleSystem, discussionPersona),
		domain.TextMessage(domain.RoleUser, "Case: "+d.CaseText),
	}

	if !isBlank(d.UserAnswer) {
		messages = append(messages, domain.TextMessage(domain.RoleUser, "Student's answer: "+d.UserAnswer))
	}

	return messages, nil
}

// ImageAnalysis is an uploaded medical image.
type ImageAnalysis struct {
	MIMEType string
	Data     []byte
}

// Feature returns the feature identifier.
func (i ImageAnalysis) Feature() string { return FeatureImageAnalysis }

// Build renders the radiologist persona and the inlined image.
func (i ImageAnalysis) Build() ([]domain.ChatMessage, error) {
	mimeType, err := NormalizeImageType(i.MIMEType)
	if err != nil {
		return nil, err
	}

	if len(i.Data) == 0 {
		return nil, domain.InvalidInput("uploaded image is empty")
	}

	return []domain.ChatMessage{
		domain.TextMessage(domain.RoleSystem, radiologistPersona),
		{
			Role:    domain.RoleUser,
			Content: "",
			Parts: []domain.ContentPart{
				{Type: domain.PartText, Text: imageInstruction, ImageURL: ""},
				{Type: domain.PartImage, Text: "", ImageURL: DataURI(mimeType, i.Data)},
			},
		},
	}, nil
}

// NormalizeImageType validates a media type against the accepted image types
// and returns it lower-cased without parameters.
func NormalizeImageType(mimeType string) (string, error) {
	if isBlank(mimeType) {
		return "", domain.UnsupportedMedia("image type is missing")
	}

	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return "", domain.UnsupportedMedia("invalid image type %q", mimeType)
	}

	switch mediaType {
	case "image/jpeg", "image/jpg", "image/png":
		return mediaType, nil
	default:
		return "", domain.UnsupportedMedia("unsupported image type %q: only JPEG and PNG are accepted", mediaType)
	}
}

// DataURI inlines data as a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
