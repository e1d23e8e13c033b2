package pipeline

import (
	"fmt"
	"strings"

	"aem-import-pipeline/internal/config"
	"aem-import-pipeline/internal/model"

	"golang.org/x/net/html"
)

// Rules defines what a microservice result item must look like
type Rules struct {
	Required []string                 `json:"required"` // fields that must be present
	Types    map[string]string        `json:"types"`    // field -> string|number|bool|list
	Allowed  map[string][]interface{} `json:"allowed"`  // enumerated value sets
}

// RulesFromConfig reads the validation config section
func RulesFromConfig(cfg *config.Provider) Rules {
	rules := Rules{
		Required: cfg.GetStringSlice("validation.required"),
		Types:    make(map[string]string),
		Allowed:  make(map[string][]interface{}),
	}
	for field, typ := range cfg.GetStringMap("validation.types") {
		rules.Types[field] = typ
	}
	if m, ok := cfg.Get("validation.allowed", nil).(map[string]interface{}); ok {
		for field, values := range m {
			if list, ok := values.([]interface{}); ok {
				rules.Allowed[field] = list
			}
		}
	}
	return rules
}

// Validator checks microservice replies and builds validated records.
// It is pure: no I/O, deterministic for a given response.
type Validator struct {
	rules Rules
}

func NewValidator(rules Rules) *Validator {
	return &Validator{rules: rules}
}

// Validate checks the reply envelope and every result item against the
// rules. All problems are collected; a record is only built when there is
// none.
func (v *Validator) Validate(rowKey string, resp model.MSResponse) (model.ValidatedRecord, error) {
	var problems []model.FieldProblem

	if resp.StatusCode != 200 {
		problems = append(problems, model.FieldProblem{
			Field:  "statusCode",
			Kind:   model.ProblemOutOfRange,
			Detail: fmt.Sprintf("got %d, want 200", resp.StatusCode),
		})
	}

	items, err := resultItems(resp.Result)
	if err != nil {
		problems = append(problems, model.FieldProblem{Field: "result", Kind: err.kind, Detail: err.detail})
	}
	if len(problems) > 0 {
		return model.ValidatedRecord{}, &model.ValidationError{RowKey: rowKey, Problems: problems}
	}

	for _, item := range items {
		problems = append(problems, v.checkItem(item)...)
	}
	if len(problems) > 0 {
		return model.ValidatedRecord{}, &model.ValidationError{RowKey: rowKey, Problems: problems}
	}

	articles := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		articles = append(articles, normalize(item))
	}
	return model.ValidatedRecord{RowKey: rowKey, Articles: articles}, nil
}

type envelopeProblem struct {
	kind   string
	detail string
}

func (e *envelopeProblem) Error() string { return e.kind + " " + e.detail }

// resultItems unwraps the result array into item maps
func resultItems(result interface{}) ([]map[string]interface{}, *envelopeProblem) {
	if result == nil {
		return nil, &envelopeProblem{kind: model.ProblemMissing, detail: "body is not valid JSON"}
	}
	list, ok := result.([]interface{})
	if !ok {
		return nil, &envelopeProblem{kind: model.ProblemWrongType, detail: fmt.Sprintf("got %T, want array", result)}
	}

	items := make([]map[string]interface{}, 0, len(list))
	for i, entry := range list {
		item, ok := entry.(map[string]interface{})
		if !ok {
			return nil, &envelopeProblem{kind: model.ProblemWrongType, detail: fmt.Sprintf("result[%d] is %T, want object", i, entry)}
		}
		items = append(items, item)
	}
	return items, nil
}

func (v *Validator) checkItem(item map[string]interface{}) []model.FieldProblem {
	var problems []model.FieldProblem

	for _, field := range v.rules.Required {
		if _, ok := item[field]; !ok {
			problems = append(problems, model.FieldProblem{Field: field, Kind: model.ProblemMissing})
		}
	}

	for field, want := range v.rules.Types {
		value, ok := item[field]
		if !ok {
			continue
		}
		if !typeMatches(value, want) {
			problems = append(problems, model.FieldProblem{
				Field:  field,
				Kind:   model.ProblemWrongType,
				Detail: fmt.Sprintf("got %T, want %s", value, want),
			})
		}
	}

	for field, allowed := range v.rules.Allowed {
		value, ok := item[field]
		if !ok {
			continue
		}
		if !valueAllowed(value, allowed) {
			problems = append(problems, model.FieldProblem{
				Field:  field,
				Kind:   model.ProblemOutOfRange,
				Detail: fmt.Sprintf("%v is not an allowed value", value),
			})
		}
	}

	return problems
}

func typeMatches(value interface{}, want string) bool {
	switch want {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case "bool":
		_, ok := value.(bool)
		return ok
	case "list":
		_, ok := value.([]interface{})
		return ok
	default:
		// unknown declared type passes; startup validation of the rules
		// themselves is config territory
		return true
	}
}

func valueAllowed(value interface{}, allowed []interface{}) bool {
	for _, a := range allowed {
		if fmt.Sprint(a) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}

// ------------------- normalization -------------------

const truncateAt = 20

// normalize builds the publishable shape of one item: title fallback,
// body reduced to an HTML digest, question list filtered, every other
// field stringified and truncated.
func normalize(item map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(item))

	for key, value := range item {
		switch key {
		case "title", "body", "suggestedQuestionsList":
			continue
		default:
			text := fmt.Sprint(value)
			// truncate by characters, not bytes: slicing the string
			// directly would split multi-byte runes
			if runes := []rune(text); len(runes) > truncateAt {
				text = string(runes[:truncateAt]) + "..."
			}
			out[key] = text
		}
	}

	title, _ := item["title"].(string)
	if strings.TrimSpace(title) == "" {
		title = "Untitled Article"
	}
	out["title"] = title

	if body, ok := item["body"].(string); ok {
		out["body"] = htmlDigest(body)
	}

	if questions, ok := item["suggestedQuestionsList"]; ok {
		out["suggestedQuestionsList"] = firstQuestion(questions)
	}

	return out
}

// htmlDigest summarizes an HTML fragment as element count + first tag
func htmlDigest(body string) map[string]interface{} {
	digest := map[string]interface{}{
		"elementCount": 0,
		"mainTag":      nil,
	}

	node, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return digest
	}

	count := 0
	var mainTag interface{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			// html.Parse wraps fragments in html/head/body
			if n.Data != "html" && n.Data != "head" && n.Data != "body" {
				count++
				if mainTag == nil {
					mainTag = n.Data
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)

	digest["elementCount"] = count
	digest["mainTag"] = mainTag
	return digest
}

// firstQuestion keeps only the first object entry of the question list
func firstQuestion(value interface{}) interface{} {
	list, ok := value.([]interface{})
	if !ok {
		return map[string]interface{}{"error": "Invalid format"}
	}
	kept := make([]interface{}, 0, 1)
	for _, q := range list {
		if _, isObj := q.(map[string]interface{}); isObj {
			kept = append(kept, q)
		}
		if len(kept) == 1 {
			break
		}
	}
	return kept
}
