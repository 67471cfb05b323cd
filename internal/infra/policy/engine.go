package policy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"

	"trustmark/internal/domain"
	"trustmark/internal/usecase"
)

const defaultQuery = "data.trustmark.policy.result"

// defaultModule is the built-in verdict policy: a verified manifest passes,
// everything else is flagged for review with the reasons listed.
const defaultModule = `package trustmark.policy

import rego.v1

default decision := "review"

decision := "pass" if {
	input.manifest_found
	input.status == "verified"
}

reasons contains "no_manifest" if not input.manifest_found

reasons contains "manifest_invalid" if input.status == "invalid"

reasons contains "verification_error" if input.status == "error"

result := {"decision": decision, "reasons": reasons}
`

// Engine evaluates verification outcomes against a rego policy. Policies run
// with a restricted builtin set; anything that could reach the network or
// filesystem is compiled out.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares the built-in policy module.
func NewEngine(ctx context.Context) (*Engine, error) {
	return newEngine(ctx, rego.Module("policy.rego", defaultModule))
}

// NewEngineFromPath loads a policy from disk instead of the built-in module,
// for deployments that tune the verdict rules.
func NewEngineFromPath(ctx context.Context, path string) (*Engine, error) {
	return newEngine(ctx, rego.Load([]string{path}, nil))
}

func newEngine(ctx context.Context, source func(*rego.Rego)) (*Engine, error) {
	capabilities := ast.CapabilitiesForThisVersion()
	capabilities.Builtins = filterBuiltins(capabilities.Builtins)
	compiler := ast.NewCompiler().WithCapabilities(capabilities)

	r := rego.New(
		rego.Query(defaultQuery),
		rego.Compiler(compiler),
		rego.StrictBuiltinErrors(true),
		source,
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	if err := assertNoForbiddenBuiltins(compiler); err != nil {
		return nil, err
	}
	return &Engine{query: prepared}, nil
}

type policyInput struct {
	ManifestFound  bool   `json:"manifest_found"`
	Status         string `json:"status"`
	ClaimGenerator string `json:"claim_generator,omitempty"`
	SigningIssuer  string `json:"signing_issuer,omitempty"`
}

func (e *Engine) Evaluate(ctx context.Context, result domain.ManifestCheckResult) (usecase.PolicyEvaluation, error) {
	if e == nil {
		return usecase.PolicyEvaluation{}, errors.New("policy engine is nil")
	}
	input := policyInput{
		ManifestFound:  result.ManifestFound,
		Status:         string(result.Status),
		ClaimGenerator: result.ClaimGenerator,
		SigningIssuer:  result.SigningIssuer,
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return usecase.PolicyEvaluation{}, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return usecase.PolicyEvaluation{}, errors.New("empty policy result")
	}

	raw := results[0].Expressions[0].Value
	details, err := json.Marshal(raw)
	if err != nil {
		return usecase.PolicyEvaluation{}, err
	}

	value, ok := raw.(map[string]any)
	if !ok {
		return usecase.PolicyEvaluation{}, fmt.Errorf("unexpected policy result type %T", raw)
	}
	decision, ok := value["decision"].(string)
	if !ok || decision == "" {
		return usecase.PolicyEvaluation{}, errors.New("policy result has no decision")
	}
	return usecase.PolicyEvaluation{
		Result:      decision,
		DetailsJSON: string(details),
	}, nil
}

func assertNoForbiddenBuiltins(compiler *ast.Compiler) error {
	if compiler == nil {
		return errors.New("policy compiler is nil")
	}
	forbidden := make(map[string]struct{})
	for _, module := range compiler.Modules {
		ast.WalkTerms(module, func(term *ast.Term) bool {
			call, ok := term.Value.(ast.Call)
			if !ok || len(call) == 0 || call[0] == nil {
				return false
			}
			name := call[0].Value.String()
			if _, ok := ast.BuiltinMap[name]; !ok {
				return false
			}
			if _, ok := allowedBuiltins[name]; ok {
				return false
			}
			forbidden[name] = struct{}{}
			return false
		})
	}
	if len(forbidden) == 0 {
		return nil
	}
	names := make([]string, 0, len(forbidden))
	for name := range forbidden {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("forbidden builtins: %s", strings.Join(names, ", "))
}
