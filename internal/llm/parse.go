package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// canonicalKeys in instruction order.
var canonicalKeys = []string{
	"Company Name", "Name", "Title",
	"Phone Number", "Email Address", "Company Address", "Company Website",
}

// keySynonyms maps the short vocabulary some completions use onto the
// canonical keys. When both forms appear the canonical (longer) key wins.
var keySynonyms = map[string]string{
	"Company": "Company Name",
	"Phone":   "Phone Number",
	"Email":   "Email Address",
	"Address": "Company Address",
	"Website": "Company Website",
}

// Parser decodes raw model completions into ContactFields. Zero value is
// usable: permissive key handling, default logger.
type Parser struct {
	// Strict treats missing canonical keys as a parse failure instead of
	// filling them with null.
	Strict bool
	Logger *slog.Logger
}

// StripFences defensively removes markdown code-fence markers the model may
// wrap around its JSON. Idempotent on already-clean text.
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// Parse strips incidental formatting, decodes the completion, normalizes the
// key vocabulary onto the canonical seven-key schema and validates the
// result. Every failure is a *ParseError.
func (p *Parser) Parse(raw string) (ContactFields, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cleaned := StripFences(raw)
	if cleaned == "" {
		return ContactFields{}, &ParseError{Detail: "empty completion"}
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(cleaned), &m); err != nil {
		return ContactFields{}, &ParseError{Detail: "invalid json", Err: err}
	}

	m, dropped := normalizeKeys(m)
	if len(dropped) > 0 {
		logger.Warn("llm.parse.normalize", "dropped", dropped)
	}

	var missing []string
	for _, k := range canonicalKeys {
		if _, ok := m[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		if p.Strict {
			return ContactFields{}, &ParseError{Detail: "missing keys: " + strings.Join(missing, ", ")}
		}
		for _, k := range missing {
			m[k] = nil
		}
	}

	doc, err := json.Marshal(m)
	if err != nil {
		return ContactFields{}, &ParseError{Detail: "re-encode", Err: err}
	}
	if err := ValidateJSONAgainstSchema(BuildContactJSONSchema(), doc); err != nil {
		return ContactFields{}, &ParseError{Detail: "schema validation", Err: err}
	}

	var out ContactFields
	if err := json.Unmarshal(doc, &out); err != nil {
		return ContactFields{}, &ParseError{Detail: "decode fields", Err: err}
	}
	return out, nil
}

// normalizeKeys renames short-vocabulary keys onto the canonical schema,
// coerces scalar values to trimmed strings (empty becomes null) and removes
// anything the schema does not know. The canonical key always wins when the
// completion carries both forms. Returns the notes for logging.
func normalizeKeys(in map[string]any) (map[string]any, []string) {
	out := make(map[string]any, len(canonicalKeys))
	var notes []string

	for _, k := range canonicalKeys {
		if v, ok := in[k]; ok {
			out[k] = coerceValue(v, k, &notes)
		}
	}
	for short, target := range keySynonyms {
		v, ok := in[short]
		if !ok {
			continue
		}
		if _, exists := out[target]; exists {
			notes = append(notes, short+"(shadowed)")
			continue
		}
		notes = append(notes, short+"->"+target)
		out[target] = coerceValue(v, short, &notes)
	}

	known := make(map[string]struct{}, len(canonicalKeys)+len(keySynonyms))
	for _, k := range canonicalKeys {
		known[k] = struct{}{}
	}
	for short := range keySynonyms {
		known[short] = struct{}{}
	}
	for k := range in {
		if _, ok := known[k]; !ok {
			notes = append(notes, k+"(unknown)")
		}
	}
	return out, notes
}

func coerceValue(v any, key string, notes *[]string) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") {
			return nil
		}
		return s
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		// nested objects/arrays have no place in a contact field
		*notes = append(*notes, key+"(type)")
		return nil
	}
}
