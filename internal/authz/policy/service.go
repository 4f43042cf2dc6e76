package policy

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/indigo-iam/iam-service/internal/audit"
	"github.com/indigo-iam/iam-service/internal/check"
	"github.com/indigo-iam/iam-service/internal/observability/logger"
	"github.com/indigo-iam/iam-service/internal/store/core"
)

// Service administers scope policies: creation with equivalence detection,
// idempotency-free removal, listing.
type Service struct {
	repo   core.PolicyRepository
	events audit.Sink

	// locks serializes Add per selector key so two concurrent equivalent
	// policies cannot both pass the equivalence scan. The store's unique
	// fingerprint index closes the window for multi-process deployments.
	locks sync.Map // selector key -> *sync.Mutex

	checks check.Conjunction[core.ScopePolicy]
}

func NewService(repo core.PolicyRepository, events audit.Sink) *Service {
	return &Service{
		repo:   repo,
		events: events,
		checks: newPolicyChecks(),
	}
}

// newPolicyChecks builds the validation conjunction for candidate policies.
// Order matters: callers see the first failing check's message.
func newPolicyChecks() check.Conjunction[core.ScopePolicy] {
	selectorValid := check.Func[core.ScopePolicy](func(p core.ScopePolicy) check.Result {
		switch p.Selector.Kind {
		case core.SelectorAccount, core.SelectorGroup:
			if p.Selector.Ref == "" {
				return check.Failure("selector_ref_missing",
					fmt.Sprintf("%s policy requires a principal reference", p.Selector.Kind))
			}
			return check.Success()
		case core.SelectorDefault:
			if p.Selector.Ref != "" {
				return check.Failure("selector_ref_forbidden", "DEFAULT policy must not carry a principal reference")
			}
			return check.Success()
		default:
			return check.Failure("selector_kind_invalid", fmt.Sprintf("unknown selector kind %q", p.Selector.Kind))
		}
	})

	effectValid := check.Func[core.ScopePolicy](func(p core.ScopePolicy) check.Result {
		if p.Effect != core.EffectPermit && p.Effect != core.EffectDeny {
			return check.Failure("effect_invalid", fmt.Sprintf("unknown policy effect %q", p.Effect))
		}
		return check.Success()
	})

	scopesValid := check.Func[core.ScopePolicy](func(p core.ScopePolicy) check.Result {
		switch p.Rule {
		case core.RuleEq:
			return check.Each(check.ScopeName()).Validate(p.Scopes)
		case core.RuleRegexp:
			for _, pattern := range p.Scopes {
				if _, err := regexp.Compile(pattern); err != nil {
					return check.Failure("invalid_scope_pattern",
						fmt.Sprintf("scope pattern %q does not compile: %v", pattern, err))
				}
			}
			return check.Success()
		default:
			return check.Failure("rule_invalid", fmt.Sprintf("unknown matching rule %q", p.Rule))
		}
	})

	return check.And[core.ScopePolicy]("invalid scope policy", selectorValid, effectValid, scopesValid)
}

// Add stores a new scope policy. It fails with *DuplicatePolicyError when an
// equivalent policy already exists (same selector, effect, rule and scope
// set); the error enumerates every conflicting id.
func (s *Service) Add(ctx context.Context, p core.ScopePolicy) (core.ScopePolicy, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("policy"),
		logger.Op("Add"),
		logger.String("selector", p.Selector.Key()),
		logger.Effect(string(p.Effect)),
	)

	if r := s.checks.Validate(p); !r.OK() {
		log.Warn("policy rejected", logger.String("reason", r.ReasonCode), logger.String("detail", r.Message))
		return core.ScopePolicy{}, &ValidationError{Result: r}
	}

	mu := s.lockFor(p.Selector.Key())
	mu.Lock()
	defer mu.Unlock()

	existing, err := s.repo.FindBySelector(ctx, p.Selector)
	if err != nil {
		return core.ScopePolicy{}, err
	}
	if dup := equivalentIDs(p, existing); len(dup) > 0 {
		log.Warn("duplicate policy rejected", logger.Any("conflicts", dup))
		return core.ScopePolicy{}, &DuplicatePolicyError{IDs: dup}
	}

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, &p); err != nil {
		if errors.Is(err, core.ErrConflict) {
			// Lost the race to another process; rescan for the winner's ids.
			again, ferr := s.repo.FindBySelector(ctx, p.Selector)
			if ferr != nil {
				return core.ScopePolicy{}, ferr
			}
			return core.ScopePolicy{}, &DuplicatePolicyError{IDs: equivalentIDs(p, again)}
		}
		return core.ScopePolicy{}, err
	}

	log.Info("policy created", logger.PolicyID(p.ID), logger.Scopes(p.Scopes))
	audit.Publish(ctx, s.events, audit.Event{
		Category:   audit.CategoryPolicy,
		AccountRef: accountRef(p.Selector),
		Message:    "scope policy created",
		Payload: audit.PolicyChange{
			PolicyID: p.ID,
			Action:   "created",
			Selector: p.Selector.Key(),
			Effect:   string(p.Effect),
			Scopes:   p.Scopes,
		},
	})
	return p, nil
}

// Remove deletes a policy by id. Returns core.ErrNotFound when absent.
func (s *Service) Remove(ctx context.Context, id string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("policy"),
		logger.Op("Remove"),
		logger.PolicyID(id),
	)

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}

	log.Info("policy deleted")
	audit.Publish(ctx, s.events, audit.Event{
		Category:   audit.CategoryPolicy,
		AccountRef: accountRef(p.Selector),
		Message:    "scope policy deleted",
		Payload: audit.PolicyChange{
			PolicyID: id,
			Action:   "deleted",
			Selector: p.Selector.Key(),
			Effect:   string(p.Effect),
		},
	})
	return nil
}

// Get returns a policy by id, or core.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*core.ScopePolicy, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns every policy, in store iteration order.
func (s *Service) List(ctx context.Context) ([]core.ScopePolicy, error) {
	return s.repo.FindAll(ctx)
}

func (s *Service) lockFor(key string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// equivalentIDs collects the ids of policies equivalent to the candidate, in
// the order the repository returned them.
func equivalentIDs(candidate core.ScopePolicy, existing []core.ScopePolicy) []string {
	var ids []string
	for _, e := range existing {
		if e.EquivalentTo(candidate) {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

func accountRef(sel core.Selector) string {
	if sel.Kind == core.SelectorAccount {
		return sel.Ref
	}
	return ""
}

// ValidationError wraps a failing check result for callers that translate it
// into a user-facing response.
type ValidationError struct {
	Result check.Result
}

func (e *ValidationError) Error() string {
	return e.Result.Message
}
