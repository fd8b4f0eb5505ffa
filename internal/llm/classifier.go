package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/macanudo/pulso/pkg/pulso"
	"github.com/macanudo/pulso/pkg/pulso/ingest"
	"github.com/macanudo/pulso/pkg/pulso/resolve"
)

// DefaultTimeout bounds one classifier call. The pipeline never waits on
// the collaborator longer than this; on expiry it proceeds with
// dictionary-only signals.
const DefaultTimeout = 10 * time.Second

const systemPrompt = `Sos un modelo que analiza posts cortos en español de una red social argentina.
Tu tarea:
1) Marcar a qué TEMAS del catálogo pertenece el post.
2) Sugerir hashtags extra si tiene sentido.
3) Detectar si el post hace referencia implícita a alguien o algo sin nombrarlo directo
   (ej: "el más hermoso del mundo", "mi amorcito", etc.).

Respondé SIEMPRE SOLO un JSON válido, sin texto extra.`

const userPromptFormat = `Analizá este post y devolveme un JSON con esta forma EXACTA:

{
  "topics": ["id1", "id2"],
  "extra_tags": ["string1", "string2"],
  "implicit_reference": {
    "present": true | false,
    "kind": "none" | "romantic" | "friend" | "family" | "pet" | "group" | "brand" | "place" | "other",
    "target_is_person": true | false
  }
}

Reglas:
- "topics" sólo puede contener "id" que estén en el catálogo.
- "extra_tags" son strings cortas en minúsculas (ej: "netflix", "sanlorenzo").
- "implicit_reference.present" es true si el post habla de alguien/entidad sin nombrarlo directamente.
- Si no hay referencia implícita relevante, dejá:
  { "present": false, "kind": "none", "target_is_person": false }

Post:
"""%s"""

Catálogo de temas:
%s`

// Classifier implements pulso.Classifier on top of a chat completion
// endpoint. Any transport, timeout or parse failure collapses to
// pulso.FallbackResult at this boundary; callers never see an error.
type Classifier struct {
	Client  *Client
	Catalog *ingest.Catalog
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClassifier creates a classifier over the given client and topic
// catalog. A nil logger disables logging.
func NewClassifier(client *Client, catalog *ingest.Catalog, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		Client:  client,
		Catalog: catalog,
		Timeout: DefaultTimeout,
		Logger:  logger,
	}
}

// Classify sends the post text and topic catalog to the model and parses
// the judgment defensively.
func (c *Classifier) Classify(ctx context.Context, text string) pulso.ClassifierResult {
	if c.Client == nil || strings.TrimSpace(text) == "" {
		return pulso.FallbackResult()
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := c.Client.Chat(ctx, systemPrompt, c.userPrompt(text))
	if err != nil {
		c.Logger.Warn("classifier call failed", zap.Error(err))
		return pulso.FallbackResult()
	}

	result, ok := parseResponse(raw)
	if !ok {
		c.Logger.Warn("classifier returned unparseable response", zap.String("raw", raw))
		return pulso.FallbackResult()
	}
	return result
}

func (c *Classifier) userPrompt(text string) string {
	type catalogTopic struct {
		ID          string   `json:"id"`
		Description string   `json:"description"`
		Keywords    []string `json:"keywords"`
	}

	var topics []catalogTopic
	if c.Catalog != nil {
		for _, t := range c.Catalog.Topics() {
			topics = append(topics, catalogTopic{
				ID:          t.Tag,
				Description: t.Description,
				Keywords:    t.Keywords,
			})
		}
	}

	catalogJSON, err := json.MarshalIndent(topics, "", "  ")
	if err != nil {
		catalogJSON = []byte("[]")
	}
	return fmt.Sprintf(userPromptFormat, text, catalogJSON)
}

type wireResponse struct {
	Topics            []string `json:"topics"`
	ExtraTags         []string `json:"extra_tags"`
	ImplicitReference struct {
		Present        bool   `json:"present"`
		Kind           string `json:"kind"`
		TargetIsPerson bool   `json:"target_is_person"`
	} `json:"implicit_reference"`
}

// parseResponse decodes the model's JSON. Models occasionally wrap the
// JSON in prose or a code fence, so the parse tolerates surrounding text
// around the outermost object.
func parseResponse(raw string) (pulso.ClassifierResult, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return pulso.ClassifierResult{}, false
	}

	var wire wireResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &wire); err != nil {
		return pulso.ClassifierResult{}, false
	}

	kind := wire.ImplicitReference.Kind
	if kind == "" {
		kind = resolve.KindNone
	}

	return pulso.ClassifierResult{
		Topics:   wire.Topics,
		Hashtags: wire.ExtraTags,
		ImplicitRef: resolve.ImplicitReference{
			Present:        wire.ImplicitReference.Present,
			Kind:           kind,
			TargetIsPerson: wire.ImplicitReference.TargetIsPerson,
		},
	}, true
}
