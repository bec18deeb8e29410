package extraction

import (
	"os"
	"strings"

	"github.com/siherrmann/graphrag/helper"
	"gopkg.in/yaml.v3"
)

// Taxonomy holds the domain dictionary used to force entity labels on known
// terms and the verb lemma to relationship type table used by the
// dependency-parse rules.
type Taxonomy struct {
	// EntityTerms maps an entity label to the lowercase terms forced to
	// carry that label regardless of what the NER model says.
	EntityTerms map[string][]string `yaml:"entity_terms"`
	// VerbRelations maps a verb lemma (or lemma_preposition compound) to a
	// relationship type.
	VerbRelations map[string]string `yaml:"verb_relations"`
}

// conceptLabels are entity labels whose surface text is always lowercased.
var conceptLabels = map[string]bool{
	"SECURITY":         true,
	"CURRENCY":         true,
	"ACCOUNT":          true,
	"TRANSACTION":      true,
	"FINANCIAL_METRIC": true,
	"TAX":              true,
	"DEBT":             true,
	"PAYMENT_METHOD":   true,
	"CONTRACT":         true,
	"RATING":           true,
	"RISK":             true,
	"COMMODITY":        true,
	"INDEX":            true,
	"REGULATION":       true,
	"DOMAIN_CONCEPT":   true,
}

// genericOrgTerms are ORG surface forms lowercased during normalization.
// Proper nouns like "Deloitte" keep their casing.
var genericOrgTerms = map[string]bool{
	"company":      true,
	"organization": true,
	"bank":         true,
	"institution":  true,
	"fund":         true,
	"branch":       true,
	"location":     true,
}

// nerLabels are the model-produced entity labels kept in addition to the
// dictionary labels.
var nerLabels = map[string]bool{
	"PERSON":      true,
	"ORG":         true,
	"GPE":         true,
	"PRODUCT":     true,
	"EVENT":       true,
	"WORK_OF_ART": true,
	"LOC":         true,
	"FAC":         true,
}

// DefaultTaxonomy returns the built-in financial domain dictionary.
func DefaultTaxonomy() *Taxonomy {
	return &Taxonomy{
		EntityTerms: map[string][]string{
			"ORG":              {"company", "organization", "bank", "institution", "fund", "branch", "location", "goldman sachs", "icici bank"},
			"SECURITY":         {"stock", "security", "share", "bond", "etf", "treasury", "equity", "instrument", "option", "future", "derivative", "asset", "aapl", "nifty"},
			"CURRENCY":         {"currency", "dollar", "rupee", "euro", "usd", "inr", "eur"},
			"ACCOUNT":          {"account", "savings", "brokerage"},
			"TRANSACTION":      {"transaction", "wire", "transfer", "payment", "deposit", "withdrawal"},
			"FINANCIAL_METRIC": {"revenue", "expense", "cost", "profit", "loss", "income"},
			"TAX":              {"tax", "fee", "charge", "gst", "deduction", "exemption", "refund", "assessment", "return", "filing"},
			"DEBT":             {"loan", "debt", "borrowing", "mortgage", "interest", "credit"},
			"PAYMENT_METHOD":   {"card", "neft", "cheque"},
			"CONTRACT":         {"contract", "agreement", "policy", "insurance"},
			"RATING":           {"rating", "score"},
			"RISK":             {"risk", "market"},
			"COMMODITY":        {"commodity", "gold", "oil", "wheat"},
			"INDEX":            {"index", "sensex", "nifty"},
			"REGULATION":       {"compliance", "regulation", "audit", "act", "section", "penalty", "penalties"},
		},
		VerbRelations: map[string]string{
			"own": "OWNS", "hold": "OWNS", "manage": "MANAGES", "operate": "MANAGES", "belong": "PART_OF", "part": "PART_OF",
			"invest": "INVESTS_IN", "invest_in": "INVESTS_IN", "fund": "FUNDED_BY", "fund_by": "FUNDED_BY",
			"owe": "OWES", "debtor": "DEBTOR_OF", "secure": "SECURED_BY", "secure_by": "SECURED_BY",
			"transact": "TRANSACTED_WITH", "transact_with": "TRANSACTED_WITH", "pay": "PAYS", "receive": "RECEIVES",
			"rate": "RATED_BY", "rate_by": "RATED_BY", "evaluate": "EVALUATED_BY", "accrue": "INCURRED", "incur": "INCURRED",
			"generate": "GENERATES", "yield": "GENERATES", "convert": "CONVERTED_TO", "convert_to": "CONVERTED_TO",
			"trade": "TRADED_ON", "trade_on": "TRADED_ON", "list": "LISTED_AT",
			"subject": "SUBJECT_TO", "subject_to": "SUBJECT_TO", "comply": "COMPLIANT_WITH", "comply_with": "COMPLIANT_WITH",
			"cover": "COVERED_BY", "cover_by": "COVERED_BY", "audit": "AUDITED_BY", "verify": "VERIFIED_BY",
		},
	}
}

// LoadTaxonomy reads a taxonomy override from a YAML file. Sections missing
// from the file fall back to the built-in dictionary.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, helper.NewError("read taxonomy file", err)
	}

	taxonomy := &Taxonomy{}
	err = yaml.Unmarshal(data, taxonomy)
	if err != nil {
		return nil, helper.NewError("unmarshal taxonomy", err)
	}

	defaults := DefaultTaxonomy()
	if len(taxonomy.EntityTerms) == 0 {
		taxonomy.EntityTerms = defaults.EntityTerms
	}
	if len(taxonomy.VerbRelations) == 0 {
		taxonomy.VerbRelations = defaults.VerbRelations
	}

	return taxonomy, nil
}

// TermLabel returns the forced entity label for a term, if the term is part
// of the domain dictionary. Matching is case-insensitive.
func (t *Taxonomy) TermLabel(term string) (string, bool) {
	lowered := strings.ToLower(strings.TrimSpace(term))
	for label, terms := range t.EntityTerms {
		for _, candidate := range terms {
			if lowered == candidate {
				return label, true
			}
		}
	}
	return "", false
}

// ValidLabel reports whether entities with this label are kept.
func (t *Taxonomy) ValidLabel(label string) bool {
	if nerLabels[label] {
		return true
	}
	_, ok := t.EntityTerms[label]
	return ok
}

// RelationForLemma returns the relationship type for a verb lemma or
// lemma_preposition compound.
func (t *Taxonomy) RelationForLemma(lemma string) (string, bool) {
	relation, ok := t.VerbRelations[strings.ToLower(lemma)]
	return relation, ok
}

// NormalizeEntityText normalizes an entity surface form to reduce duplicates.
// Concept labels are always lowercased, ORG only for generic terms, and
// everything else keeps its casing.
func NormalizeEntityText(text string, label string) string {
	text = strings.TrimSpace(text)

	if conceptLabels[label] {
		return strings.ToLower(text)
	}

	if label == "ORG" && genericOrgTerms[strings.ToLower(text)] {
		return strings.ToLower(text)
	}

	return text
}
