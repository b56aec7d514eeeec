package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bhsi/pkg/core/utils"
	"bhsi/pkg/core/vectorstore"
)

// Generator is the capability RAGSynthesizer needs from the LLM client.
type Generator interface {
	GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error)
}

// Answer is the shape RAGSynthesizer.Ask returns (SPEC_FULL.md §4.10 step 7).
type Answer struct {
	Question       string   `json:"question"`
	AnswerText     string   `json:"answer"`
	Sources        []string `json:"sources"`
	Confidence     float64  `json:"confidence"`
	Methodology    string   `json:"methodology"`
	ResponseTimeMS int64    `json:"response_time_ms"`
	Timestamp      time.Time `json:"timestamp"`
}

const apologyES = "No he podido generar una respuesta fiable con la información disponible. Por favor, reformule la pregunta o inténtelo de nuevo más tarde."
const apologyEN = "I was unable to generate a reliable answer from the available information. Please rephrase the question or try again later."

// RAGSynthesizer builds a grounded prompt from retrieved documents and
// calls the LLM, always returning a non-empty answer even on failure
// (SPEC_FULL.md §4.10, resolving the source system's empty-answer bug per
// §9).
type RAGSynthesizer struct {
	retriever *Retriever
	generator Generator
}

func NewRAGSynthesizer(retriever *Retriever, generator Generator) *RAGSynthesizer {
	return &RAGSynthesizer{retriever: retriever, generator: generator}
}

// Ask runs the full retrieve-then-generate flow.
func (s *RAGSynthesizer) Ask(ctx context.Context, question string, maxDocuments int, companyFilter, language string) Answer {
	start := time.Now()
	apology := apologyFor(language)

	hits, err := s.retriever.Retrieve(ctx, question, maxDocuments, companyFilter)
	if err != nil {
		return Answer{
			Question: question, AnswerText: apology, Methodology: "rag_vector_gemini",
			ResponseTimeMS: time.Since(start).Milliseconds(), Timestamp: start,
		}
	}

	prompt := buildPrompt(question, hits, language)
	raw, err := s.generator.GenerateResponse(ctx, prompt, systemPreamble(language), map[string]interface{}{
		"max_tokens": 800, "temperature": 0.2,
	})
	if err != nil || strings.TrimSpace(raw) == "" {
		return Answer{
			Question: question, AnswerText: apology, Sources: sourceList(hits),
			Methodology: "rag_vector_gemini", ResponseTimeMS: time.Since(start).Milliseconds(), Timestamp: start,
		}
	}

	cleaned := utils.StripEmphasis(raw)

	return Answer{
		Question:       question,
		AnswerText:     cleaned,
		Sources:        sourceList(hits),
		Confidence:     confidenceFrom(hits),
		Methodology:    "rag_vector_gemini",
		ResponseTimeMS: time.Since(start).Milliseconds(),
		Timestamp:      start,
	}
}

func apologyFor(language string) string {
	if language == "en" {
		return apologyEN
	}
	return apologyES
}

func systemPreamble(language string) string {
	if language == "en" {
		return "You are a D&O (directors and officers) corporate risk analyst. Answer using ONLY the documents provided below. " +
			"If the documents do not contain enough information, say so explicitly. Be concise and executive in tone. Respond in English."
	}
	return "Eres un analista de riesgo corporativo D&O (directivos y administradores). Responde utilizando ÚNICAMENTE los documentos proporcionados a continuación. " +
		"Si los documentos no contienen información suficiente, dilo explícitamente. Sé conciso y con un tono ejecutivo. Responde en español."
}

func buildPrompt(question string, hits []vectorstore.Hit, language string) string {
	var b strings.Builder
	label := "Pregunta"
	if language == "en" {
		label = "Question"
	}
	fmt.Fprintf(&b, "%s: %s\n\n", label, question)

	if len(hits) == 0 {
		b.WriteString("(no se encontraron documentos relevantes)\n")
		return b.String()
	}

	for i, h := range hits {
		company := h.Metadata["company_name"]
		fmt.Fprintf(&b, "DOCUMENTO %d (Relevancia: %.2f, Empresa: %s): %s\n\n", i+1, h.Score, company, h.Document)
	}
	return b.String()
}

func sourceList(hits []vectorstore.Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.ID)
	}
	return out
}

// confidenceFrom computes min(100, 100*mean(score_i)) rounded to 1 decimal
// (SPEC_FULL.md §4.10 step 6).
func confidenceFrom(hits []vectorstore.Hit) float64 {
	if len(hits) == 0 {
		return 0
	}
	var sum float64
	for _, h := range hits {
		sum += h.Score
	}
	mean := sum / float64(len(hits))
	conf := mean * 100
	if conf > 100 {
		conf = 100
	}
	return float64(int(conf*10+0.5)) / 10
}
