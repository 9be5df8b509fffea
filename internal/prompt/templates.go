package prompt

// Feature identifiers.
const (
	FeatureAgentMode      = "agent-mode"
	FeatureCaseLearning   = "case-learning"
	FeatureMCQTutor       = "mcq-tutor"
	FeatureCaseDiscussion = "case-discussion"
	FeatureImageAnalysis  = "analyze-file"
)

const (
	agentPersona = "You are a helpful medical AI assistant."

	mcqPersona = "You are a medical MCQ tutor. Explain correct and incorrect options."

	discussionPersona = "You are a senior medical consultant. " +
		"Ask probing questions, give feedback, and summarize learning points."

	radiologistPersona = "You are a senior radiologist. Provide a detailed structured medical imaging report " +
		"including: Key Findings, Differential Diagnoses, Clinical Significance, and Recommendations."

	imageInstruction = "Please analyze this medical image in detail."

	caseAnalysisIntro = "You are MediMentor AI, a clinical reasoning assistant.\n" +
		"Analyze the following medical case:\n\n"

	caseAnalysisFormat = "Provide a structured analysis in this exact format:\n"

	noSelection = "None"
)

// CaseAnalysisHeadings are the sections a case analysis must contain, in order.
//
//nolint:gochecknoglobals // read-only template data
var CaseAnalysisHeadings = []string{
	"Most Likely Diagnosis",
	"Possible Differential Diagnoses",
	"Key Investigations",
	"Evidence-Based Management (Pharmacological + Lifestyle)",
	"Prognosis",
}
