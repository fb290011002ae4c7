package hcs12

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type RecommendationCategory string

const (
	CategoryDocumentation RecommendationCategory = "documentation"
	CategoryPerformance   RecommendationCategory = "performance"
	CategorySecurity      RecommendationCategory = "security"
	CategoryAccessibility RecommendationCategory = "accessibility"
)

const (
	maxRecommendedActions   = 10
	maxRecommendedBlocks    = 20
	minDescriptionLength    = 20
	maxEstimatedLoadTimeMS  = 1500
	securityActionThreshold = 5
	simpleComplexityLimit   = 5
	moderateComplexityLimit = 15
	documentationBonus      = 5
	simpleComplexityBonus   = 5
	warningPenalty          = 2
	optimizationActionLimit = 5
	optimizationBlockLimit  = 10
	actionLoadCostMS        = 100
	blockLoadCostMS         = 50
	mediumRiskLowerBound    = 3
	highRiskLowerBound      = 6
	maximumValidationScore  = 100
)

var severityPenalty = map[Severity]int{
	SeverityCritical: 25,
	SeverityHigh:     15,
	SeverityMedium:   10,
	SeverityLow:      5,
}

// ValidationOptions enables the optional validator stages.
type ValidationOptions struct {
	RequireDocumentation bool
	CheckPerformance     bool
	CheckSecurity        bool
	CheckAccessibility   bool
}

type ValidationIssue struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Field    string   `json:"field,omitempty"`
}

type ValidationWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type Recommendation struct {
	Category RecommendationCategory `json:"category"`
	Message  string                 `json:"message"`
}

type PerformanceReport struct {
	EstimatedLoadTimeMS int `json:"estimated_load_time_ms"`
	ActionCount         int `json:"action_count"`
	BlockCount          int `json:"block_count"`
}

type SecurityReport struct {
	RiskScore int       `json:"risk_score"`
	RiskLevel RiskLevel `json:"risk_level"`
}

type AssemblyValidationResult struct {
	IsValid         bool                `json:"is_valid"`
	Score           int                 `json:"score"`
	Complexity      Complexity          `json:"complexity"`
	Errors          []ValidationIssue   `json:"errors"`
	Warnings        []ValidationWarning `json:"warnings"`
	Recommendations []Recommendation    `json:"recommendations"`
	Performance     *PerformanceReport  `json:"performance,omitempty"`
	Security        *SecurityReport     `json:"security,omitempty"`
}

// HasError reports whether an error with code was recorded.
func (result AssemblyValidationResult) HasError(code string) bool {
	for _, issue := range result.Errors {
		if issue.Code == code {
			return true
		}
	}
	return false
}

type assemblyValidation struct {
	result *AssemblyValidationResult
}

func (v assemblyValidation) fail(code string, severity Severity, field string, format string, args ...any) {
	v.result.Errors = append(v.result.Errors, ValidationIssue{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Severity: severity,
		Field:    field,
	})
}

func (v assemblyValidation) warn(code string, field string, format string, args ...any) {
	v.result.Warnings = append(v.result.Warnings, ValidationWarning{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	})
}

func (v assemblyValidation) recommend(category RecommendationCategory, message string) {
	v.result.Recommendations = append(v.result.Recommendations, Recommendation{Category: category, Message: message})
}

// ValidateAssembly runs the pre-submission checks over an assembly document. It has no side
// effects and never fails; problems are reported in the result.
func ValidateAssembly(assembly AssemblyRegistration, options ValidationOptions) AssemblyValidationResult {
	result := AssemblyValidationResult{
		Errors:          []ValidationIssue{},
		Warnings:        []ValidationWarning{},
		Recommendations: []Recommendation{},
	}
	v := assemblyValidation{result: &result}

	validateAssemblyStructure(v, assembly)
	validateAssemblyMetadata(v, assembly, options)
	validateAssemblyActions(v, assembly.Actions)
	validateAssemblyBlocks(v, assembly.Blocks)
	if len(assembly.Actions) == 0 && len(assembly.Blocks) == 0 {
		v.warn("EMPTY_ASSEMBLY", "", "Assembly has no actions or blocks")
	}
	if options.CheckPerformance {
		result.Performance = validateAssemblyPerformance(v, assembly)
	}
	if options.CheckSecurity {
		result.Security = validateAssemblySecurity(v, assembly)
	}
	if options.CheckAccessibility {
		validateAssemblyAccessibility(v, assembly)
	}

	result.Complexity = classifyComplexity(len(assembly.Actions), len(assembly.Blocks))
	result.Score = scoreValidation(result)
	result.IsValid = true
	for _, issue := range result.Errors {
		if issue.Severity == SeverityCritical || issue.Severity == SeverityHigh {
			result.IsValid = false
			break
		}
	}
	return result
}

func validateAssemblyStructure(v assemblyValidation, assembly AssemblyRegistration) {
	if assembly.P != Protocol {
		v.fail("INVALID_PROTOCOL", SeverityCritical, "p", "Protocol must be %s", Protocol)
	}
	if assembly.Op != string(OperationRegister) {
		v.fail("INVALID_OPERATION", SeverityCritical, "op", "Operation must be %s", OperationRegister)
	}

	switch name := strings.TrimSpace(assembly.Name); {
	case name == "":
		v.fail("MISSING_NAME", SeverityCritical, "name", "Assembly name is required")
	case !assemblyNamePattern.MatchString(name):
		v.fail("INVALID_NAME_FORMAT", SeverityHigh, "name", "Assembly name must contain only lowercase letters, numbers and hyphens")
	}

	switch version := strings.TrimSpace(assembly.Version); {
	case version == "":
		v.fail("MISSING_VERSION", SeverityCritical, "version", "Assembly version is required")
	case !IsSemver(version):
		v.fail("INVALID_VERSION_FORMAT", SeverityHigh, "version", "Assembly version must follow semantic versioning")
	}
}

func validateAssemblyMetadata(v assemblyValidation, assembly AssemblyRegistration, options ValidationOptions) {
	description := strings.TrimSpace(assembly.Description)
	switch {
	case description == "":
		if options.RequireDocumentation {
			v.fail("MISSING_DESCRIPTION", SeverityMedium, "description", "Assembly description is required")
		} else {
			v.recommend(CategoryDocumentation, "Add a description to explain what the assembly does")
		}
	case utf8.RuneCountInString(description) > maxDescriptionLength:
		v.warn("DESCRIPTION_TOO_LONG", "description", "Description exceeds %d characters", maxDescriptionLength)
	case utf8.RuneCountInString(description) < minDescriptionLength:
		v.recommend(CategoryDocumentation, "Expand the description so users understand the assembly")
	}

	if len(assembly.Tags) == 0 {
		if options.RequireDocumentation {
			v.fail("MISSING_TAGS", SeverityMedium, "tags", "At least one tag is required")
		} else {
			v.recommend(CategoryDocumentation, "Add tags to make the assembly discoverable")
		}
	}
	if len(assembly.Tags) > maxTags {
		v.warn("TOO_MANY_TAGS", "tags", "Assembly has more than %d tags", maxTags)
	}
}

func validateAssemblyActions(v assemblyValidation, actions []AssemblyActionReference) {
	ids := map[string]bool{}
	registryIDs := map[string]bool{}
	for index, action := range actions {
		field := fmt.Sprintf("actions[%d]", index)
		switch {
		case strings.TrimSpace(action.ID) == "":
			v.fail("ACTION_MISSING_ID", SeverityHigh, field+".id", "Action at index %d is missing an id", index)
		case ids[action.ID]:
			v.fail("DUPLICATE_ACTION_ID", SeverityHigh, field+".id", "Duplicate action id %q", action.ID)
		default:
			ids[action.ID] = true
		}
		switch {
		case strings.TrimSpace(action.RegistryID) == "":
			v.fail("ACTION_MISSING_REGISTRY_ID", SeverityHigh, field+".registryId", "Action at index %d is missing a registryId", index)
		case registryIDs[action.RegistryID]:
			v.fail("DUPLICATE_ACTION_REGISTRY_ID", SeverityMedium, field+".registryId", "Action registryId %q is referenced more than once", action.RegistryID)
		default:
			registryIDs[action.RegistryID] = true
		}
	}
	if len(actions) > maxRecommendedActions {
		v.warn("TOO_MANY_ACTIONS", "actions", "Assembly has %d actions; more than %d may hurt load time", len(actions), maxRecommendedActions)
	}
}

func validateAssemblyBlocks(v assemblyValidation, blocks []AssemblyBlockReference) {
	ids := map[string]bool{}
	registryIDs := map[string]bool{}
	for index, block := range blocks {
		field := fmt.Sprintf("blocks[%d]", index)
		switch {
		case strings.TrimSpace(block.ID) == "":
			v.fail("BLOCK_MISSING_ID", SeverityHigh, field+".id", "Block at index %d is missing an id", index)
		case ids[block.ID]:
			v.fail("DUPLICATE_BLOCK_ID", SeverityHigh, field+".id", "Duplicate block id %q", block.ID)
		default:
			ids[block.ID] = true
		}
		switch {
		case strings.TrimSpace(block.RegistryID) == "":
			v.fail("BLOCK_MISSING_REGISTRY_ID", SeverityHigh, field+".registryId", "Block at index %d is missing a registryId", index)
		case registryIDs[block.RegistryID]:
			v.fail("DUPLICATE_BLOCK_REGISTRY_ID", SeverityMedium, field+".registryId", "Block registryId %q is referenced more than once", block.RegistryID)
		default:
			registryIDs[block.RegistryID] = true
		}
	}
	if len(blocks) > maxRecommendedBlocks {
		v.warn("TOO_MANY_BLOCKS", "blocks", "Assembly has %d blocks; more than %d may hurt rendering", len(blocks), maxRecommendedBlocks)
	}
}

// ValidateAssemblyDocument runs ValidateAssembly over a raw JSON-decoded document, so that
// type problems such as non-object block attributes are reported instead of failing decode.
func ValidateAssemblyDocument(document map[string]any, options ValidationOptions) AssemblyValidationResult {
	assembly := AssemblyRegistration{}
	assembly.P, _ = document["p"].(string)
	assembly.Op, _ = document["op"].(string)
	assembly.Name, _ = document["name"].(string)
	assembly.Version, _ = document["version"].(string)
	assembly.Title, _ = document["title"].(string)
	assembly.Description, _ = document["description"].(string)
	if tags, ok := document["tags"].([]any); ok {
		for _, tag := range tags {
			if value, ok := tag.(string); ok {
				assembly.Tags = append(assembly.Tags, value)
			}
		}
	}
	if actions, ok := document["actions"].([]any); ok {
		for _, raw := range actions {
			item, _ := raw.(map[string]any)
			reference := AssemblyActionReference{}
			reference.ID, _ = item["id"].(string)
			reference.RegistryID, _ = item["registryId"].(string)
			assembly.Actions = append(assembly.Actions, reference)
		}
	}

	invalidAttributes := make([]int, 0)
	if blocks, ok := document["blocks"].([]any); ok {
		for index, raw := range blocks {
			item, _ := raw.(map[string]any)
			reference := AssemblyBlockReference{}
			reference.ID, _ = item["id"].(string)
			reference.RegistryID, _ = item["registryId"].(string)
			if attributes, present := item["attributes"]; present && attributes != nil {
				if typed, ok := attributes.(map[string]any); ok {
					reference.Attributes = typed
				} else {
					invalidAttributes = append(invalidAttributes, index)
				}
			}
			assembly.Blocks = append(assembly.Blocks, reference)
		}
	}

	result := ValidateAssembly(assembly, options)
	if len(invalidAttributes) == 0 {
		return result
	}
	v := assemblyValidation{result: &result}
	for _, index := range invalidAttributes {
		v.fail("INVALID_BLOCK_ATTRIBUTES", SeverityMedium, fmt.Sprintf("blocks[%d].attributes", index), "Block attributes at index %d must be an object", index)
	}
	result.Score = scoreValidation(result)
	return result
}

func validateAssemblyPerformance(v assemblyValidation, assembly AssemblyRegistration) *PerformanceReport {
	report := &PerformanceReport{
		ActionCount:         len(assembly.Actions),
		BlockCount:          len(assembly.Blocks),
		EstimatedLoadTimeMS: len(assembly.Actions)*actionLoadCostMS + len(assembly.Blocks)*blockLoadCostMS,
	}
	if report.EstimatedLoadTimeMS > maxEstimatedLoadTimeMS {
		v.warn("SLOW_LOAD_TIME", "", "Estimated load time of %dms exceeds %dms", report.EstimatedLoadTimeMS, maxEstimatedLoadTimeMS)
	}
	if report.ActionCount > optimizationActionLimit && report.BlockCount > optimizationBlockLimit {
		v.recommend(CategoryPerformance, "Consider splitting the assembly or lazy-loading actions and blocks")
	}
	return report
}

func validateAssemblySecurity(v assemblyValidation, assembly AssemblyRegistration) *SecurityReport {
	report := &SecurityReport{RiskScore: max(0, len(assembly.Actions)-securityActionThreshold)}
	switch {
	case report.RiskScore < mediumRiskLowerBound:
		report.RiskLevel = RiskLow
	case report.RiskScore < highRiskLowerBound:
		report.RiskLevel = RiskMedium
	default:
		report.RiskLevel = RiskHigh
		v.warn("HIGH_SECURITY_RISK", "actions", "Assembly references %d actions", len(assembly.Actions))
	}
	if report.RiskScore > 0 {
		v.recommend(CategorySecurity, "Review the permissions and capabilities requested by each action")
	}
	return report
}

func validateAssemblyAccessibility(v assemblyValidation, assembly AssemblyRegistration) {
	if strings.TrimSpace(assembly.Title) == "" {
		v.recommend(CategoryAccessibility, "Add a title so assistive technologies can announce the assembly")
	}
	if strings.TrimSpace(assembly.Description) == "" {
		v.recommend(CategoryAccessibility, "Add a description so assistive technologies can describe the assembly")
	}
}

// classifyComplexity weighs blocks twice. Thresholds are tuned against this weighting.
func classifyComplexity(actionCount int, blockCount int) Complexity {
	weight := actionCount + blockCount + blockCount
	switch {
	case weight <= simpleComplexityLimit:
		return ComplexitySimple
	case weight <= moderateComplexityLimit:
		return ComplexityModerate
	default:
		return ComplexityComplex
	}
}

// scoreValidation starts at 100, subtracts per error severity and per warning, and adds the
// documentation and simplicity bonuses only when no error was recorded.
func scoreValidation(result AssemblyValidationResult) int {
	score := maximumValidationScore
	for _, issue := range result.Errors {
		score -= severityPenalty[issue.Severity]
	}
	score -= warningPenalty * len(result.Warnings)

	if len(result.Errors) == 0 {
		documentationRecommendations := 0
		for _, recommendation := range result.Recommendations {
			if recommendation.Category == CategoryDocumentation {
				documentationRecommendations++
			}
		}
		if documentationRecommendations == 0 {
			score += documentationBonus
		}
		if result.Complexity == ComplexitySimple {
			score += simpleComplexityBonus
		}
	}
	return min(maximumValidationScore, max(0, score))
}
