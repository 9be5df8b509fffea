package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/davidbz/medimentor/internal/config"
	"github.com/davidbz/medimentor/internal/domain"
	"github.com/davidbz/medimentor/internal/prompt"
)

const (
	uploadField       = "file"
	multipartMemLimit = 8 << 20
	// Multipart framing on top of the image itself.
	multipartOverhead = 64 << 10
)

// Feature describes one relay route. Every feature shares the same handler;
// only decoding and the name of the success field differ.
type Feature struct {
	Name          string
	Route         string
	ResponseField string
	MaxBodyBytes  int64
	Decode        func(r *http.Request) (domain.Prompt, error)
}

// Features returns the relay routes served by the API.
func Features(limits *config.UploadConfig) []Feature {
	return []Feature{
		{
			Name:          prompt.FeatureAgentMode,
			Route:         "/api/agent-mode",
			ResponseField: "reply",
			MaxBodyBytes:  limits.MaxJSONBytes,
			Decode:        decodeJSON[prompt.AgentQuery],
		},
		{
			Name:          prompt.FeatureCaseLearning,
			Route:         "/api/case-learning",
			ResponseField: "analysis",
			MaxBodyBytes:  limits.MaxJSONBytes,
			Decode:        decodeJSON[prompt.CaseAnalysis],
		},
		{
			Name:          prompt.FeatureMCQTutor,
			Route:         "/api/mcq-tutor",
			ResponseField: "result",
			MaxBodyBytes:  limits.MaxJSONBytes,
			Decode:        decodeJSON[prompt.MCQ],
		},
		{
			Name:          prompt.FeatureCaseDiscussion,
			Route:         "/api/case-discussion",
			ResponseField: "reply",
			MaxBodyBytes:  limits.MaxJSONBytes,
			Decode:        decodeJSON[prompt.CaseDiscussion],
		},
		{
			Name:          prompt.FeatureImageAnalysis,
			Route:         "/api/analyze-file",
			ResponseField: "analysis",
			MaxBodyBytes:  limits.MaxImageBytes + multipartOverhead,
			Decode:        decodeImage(limits.MaxImageBytes),
		},
	}
}

// decodeJSON reads a JSON body into T. An empty body decodes to the zero
// value so the prompt reports which field is missing.
func decodeJSON[T domain.Prompt](r *http.Request) (domain.Prompt, error) {
	var input T

	err := json.NewDecoder(r.Body).Decode(&input)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return input, nil
	case isTooLarge(err):
		return nil, domain.InvalidInput("request body too large")
	default:
		return nil, &domain.Error{
			Kind:       domain.KindInvalidInput,
			Message:    "invalid request body",
			Diagnostic: nil,
			Err:        err,
		}
	}
}

// decodeImage reads the uploaded file from the multipart form. The media
// type comes from the part header and falls back to content sniffing.
func decodeImage(maxBytes int64) func(r *http.Request) (domain.Prompt, error) {
	return func(r *http.Request) (domain.Prompt, error) {
		if err := r.ParseMultipartForm(multipartMemLimit); err != nil {
			if isTooLarge(err) {
				return nil, domain.InvalidInput("uploaded file too large")
			}
			return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "Upload error", Diagnostic: nil, Err: err}
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		file, header, err := r.FormFile(uploadField)
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return nil, domain.InvalidInput("No file uploaded.")
			}
			return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "Upload error", Diagnostic: nil, Err: err}
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "Upload error", Diagnostic: nil, Err: err}
		}
		if int64(len(data)) > maxBytes {
			return nil, domain.InvalidInput("uploaded file too large")
		}

		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" || strings.HasPrefix(mimeType, "application/octet-stream") {
			mimeType = http.DetectContentType(data)
		}

		mimeType, err = prompt.NormalizeImageType(mimeType)
		if err != nil {
			return nil, err
		}

		return prompt.ImageAnalysis{MIMEType: mimeType, Data: data}, nil
	}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
