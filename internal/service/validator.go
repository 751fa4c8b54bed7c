package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smregler-server/internal/diagnosis"
	"github.com/smregler-server/internal/domain"
	"github.com/smregler-server/internal/metrics"
	"github.com/smregler-server/internal/rules"
)

// Validator runs the envelope, period logic and diagnosis chains against a
// certificate and aggregates the fired rules into one verdict.
type Validator struct {
	envelopeChain   *rules.Chain[rules.EnvelopeRuleData]
	periodChain     *rules.Chain[rules.HealthRuleData]
	validationChain *rules.Chain[rules.HealthRuleData]

	cache   ResultCache
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

// NewValidator builds the chains over registry. cache and m may be nil.
func NewValidator(registry *diagnosis.Registry, cache ResultCache, m *metrics.Metrics, logger *logrus.Logger) *Validator {
	return &Validator{
		envelopeChain:   rules.NewEnvelopeChain(),
		periodChain:     rules.NewPeriodLogicChain(),
		validationChain: rules.NewValidationChain(registry),
		cache:           cache,
		metrics:         m,
		logger:          logger,
	}
}

var _ domain.CertificateValidator = (*Validator)(nil)

// Validate returns the verdict for req. Only a malformed request or a cancelled
// context yields an error; rule evaluation itself cannot fail.
func (v *Validator) Validate(ctx context.Context, req *domain.ValidationRequest) (*domain.ValidationResult, error) {
	startTime := time.Now()

	if req == nil {
		return nil, domain.NewValidationError("request", "request body is required", nil)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("validation aborted: %w", err)
	}

	logger := v.logger.WithFields(logrus.Fields{
		"msg_id":              req.Envelope.MsgID,
		"edi_logg_id":         req.Envelope.EdiLoggID,
		"organization_number": req.Envelope.SenderOrganisationNumber,
	})

	key, cacheable := v.cacheKey(req)
	if cacheable {
		if cached, ok := v.lookup(ctx, key); ok {
			logger.WithField("status", cached.Status).Debug("Returning cached verdict")
			return cached, nil
		}
	}

	metadata := req.Metadata
	envelopeHits := v.run(logger, v.envelopeChain.Name(), v.envelopeChain.ExecuteFlow(rules.EnvelopeRuleData{
		Info: &req.Envelope, Metadata: metadata,
	}))
	health := rules.HealthRuleData{Info: &req.HealthInformation, Metadata: metadata}
	periodHits := v.run(logger, v.periodChain.Name(), v.periodChain.ExecuteFlow(health))
	diagnosisHits := v.run(logger, v.validationChain.Name(), v.validationChain.ExecuteFlow(health))

	result := rules.Aggregate(envelopeHits, periodHits, diagnosisHits)

	fields := logrus.Fields(result.Status.LogFields())
	fields["rule_hits"] = ruleNames(result.RuleHits)
	fields["duration_ms"] = time.Since(startTime).Milliseconds()
	logger.WithFields(fields).Info("Received sykmelding, rules applied")

	v.metrics.RecordValidation(result.Status.String(), time.Since(startTime))

	if cacheable {
		if err := v.cache.Set(ctx, key, &result); err != nil {
			logger.WithError(err).Warn("Failed to cache verdict")
		}
	}

	return &result, nil
}

// Catalogs returns the chains in evaluation order for documentation.
func (v *Validator) Catalogs() []rules.Catalog {
	return []rules.Catalog{v.envelopeChain, v.periodChain, v.validationChain}
}

func (v *Validator) run(logger *logrus.Entry, chain string, hits []domain.RuleInfo) []domain.RuleInfo {
	for _, hit := range hits {
		v.metrics.RecordRuleHit(chain, hit.RuleName)
	}
	logger.WithFields(logrus.Fields{
		"chain":     chain,
		"rule_hits": ruleNames(hits),
	}).Debug("Rule chain evaluated")
	return hits
}

func (v *Validator) cacheKey(req *domain.ValidationRequest) (string, bool) {
	if v.cache == nil {
		return "", false
	}
	key, err := CacheKey(req)
	if err != nil {
		v.logger.WithError(err).Warn("Skipping result cache")
		return "", false
	}
	return key, true
}

func (v *Validator) lookup(ctx context.Context, key string) (*domain.ValidationResult, bool) {
	cached, ok, err := v.cache.Get(ctx, key)
	if err != nil {
		v.logger.WithError(err).Warn("Result cache lookup failed")
		return nil, false
	}
	return cached, ok
}

func ruleNames(hits []domain.RuleInfo) []string {
	names := make([]string, 0, len(hits))
	for _, hit := range hits {
		names = append(names, hit.RuleName)
	}
	return names
}
