// Package wizard runs the promo wizard steps: validate the form, upload
// assets, persist the step upstream, merge into the draft and pick the next
// page.
package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"promo-wizard/internal/draft"
	"promo-wizard/internal/promo"
)

var (
	// ErrNoPromo is returned by steps after the first when the draft has not
	// been created upstream yet.
	ErrNoPromo = errors.New("basic info must be saved first")
	// ErrWrongFlow is returned when a step does not belong to the draft's business type.
	ErrWrongFlow = errors.New("step is not part of this promo's flow")
)

// PromoAPI is the slice of the REST API the steps write to.
type PromoAPI interface {
	CreatePromo(ctx context.Context, in promo.BasicPayload) (string, error)
	UpdatePromo(ctx context.Context, id string, in promo.BasicPayload) error
	PatchTargetAudience(ctx context.Context, id string, rows []promo.AudiencePayload) error
	PatchRule(ctx context.Context, id string, rule promo.RulePayload) error
	PatchRewards(ctx context.Context, id string, rewards promo.RewardsPayload) error
	Activate(ctx context.Context, id string) error
	Upload(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// Result is a successful submission: the merged draft and where to go next.
type Result struct {
	Draft promo.Draft `json:"draft"`
	Next  string      `json:"next"`
}

type Service struct {
	api      PromoAPI
	validate *validator.Validate
}

func NewService(api PromoAPI) *Service {
	return &Service{api: api, validate: newValidator()}
}

// SubmitBasic creates the promo on first submission and updates it afterwards.
func (s *Service) SubmitBasic(ctx context.Context, st *draft.Store, f BasicForm) (Result, error) {
	f.normalize()
	if err := check(s.validate, f); err != nil {
		return Result{}, err
	}

	cur := st.Draft()
	bt := cur.BusinessType
	if cur.PromoID == "" {
		bt = f.BusinessType
	}
	if bt == "" {
		bt = promo.BusinessAirline
	}

	image := f.Image
	if f.ImageFile != nil {
		url, err := s.api.Upload(ctx, f.ImageFile.Name, f.ImageFile.ContentType, f.ImageFile.Data)
		if err != nil {
			return Result{}, fmt.Errorf("upload image: %w", err)
		}
		image = url
	}

	payload := promo.BasicPayload{
		Name:            f.Name,
		Description:     f.Description,
		RuleDescription: f.RuleDescription,
		ImageURI:        image,
	}
	id := cur.PromoID
	if id == "" {
		payload.Type = bt
		created, err := s.api.CreatePromo(ctx, payload)
		if err != nil {
			return Result{}, err
		}
		id = created
		log.Info().Str("promo_id", id).Str("owner", st.Owner()).Msg("promo created")
	} else if err := s.api.UpdatePromo(ctx, id, payload); err != nil {
		return Result{}, err
	}

	return s.commit(ctx, st, bt, promo.StepBasic, func(prev promo.Draft) promo.Draft {
		if prev.PromoID == "" {
			prev.PromoID = id
		}
		prev.BusinessType = bt
		prev.Name = payload.Name
		prev.Description = payload.Description
		prev.RuleDescription = payload.RuleDescription
		prev.ImageURI = payload.ImageURI
		return prev
	}), nil
}

// SubmitAudience saves the airline target audience rows.
func (s *Service) SubmitAudience(ctx context.Context, st *draft.Store, f AudienceForm) (Result, error) {
	id, err := s.ready(st, promo.BusinessAirline)
	if err != nil {
		return Result{}, err
	}
	if err := check(s.validate, f); err != nil {
		return Result{}, err
	}
	rows := make([]promo.TargetAudience, len(f.Rows))
	for i, r := range f.Rows {
		if r.Disabled() {
			r = promo.TargetAudience{Country: r.Country}
		}
		rows[i] = r
	}
	if err := s.api.PatchTargetAudience(ctx, id, promo.AudiencePayloadOf(rows)); err != nil {
		return Result{}, err
	}
	return s.commit(ctx, st, promo.BusinessAirline, promo.StepAudience, func(prev promo.Draft) promo.Draft {
		prev.TargetAudiences = rows
		return prev
	}), nil
}

// SubmitRules saves the airline booking/travel rules.
func (s *Service) SubmitRules(ctx context.Context, st *draft.Store, f RulesForm) (Result, error) {
	id, err := s.ready(st, promo.BusinessAirline)
	if err != nil {
		return Result{}, err
	}
	if err := check(s.validate, f); err != nil {
		return Result{}, err
	}
	rules := f.rules()
	payload, err := promo.RulePayloadOf(rules)
	if err != nil {
		return Result{}, err
	}
	if err := s.api.PatchRule(ctx, id, payload); err != nil {
		return Result{}, err
	}
	return s.commit(ctx, st, promo.BusinessAirline, promo.StepRules, func(prev promo.Draft) promo.Draft {
		prev.Rules = &rules
		return prev
	}), nil
}

// SubmitIncentives saves the airline reward configuration.
func (s *Service) SubmitIncentives(ctx context.Context, st *draft.Store, f IncentivesForm) (Result, error) {
	id, err := s.ready(st, promo.BusinessAirline)
	if err != nil {
		return Result{}, err
	}
	if err := check(s.validate, f); err != nil {
		return Result{}, err
	}
	if err := s.api.PatchRewards(ctx, id, promo.RewardsPayload{Incentives: f.Incentives}); err != nil {
		return Result{}, err
	}
	return s.commit(ctx, st, promo.BusinessAirline, promo.StepIncentives, func(prev promo.Draft) promo.Draft {
		prev.Incentives = f.Incentives
		return prev
	}), nil
}

// SubmitPartnerRules saves the partnership date window and countries. Dates
// go upstream as UTC day boundaries.
func (s *Service) SubmitPartnerRules(ctx context.Context, st *draft.Store, f PartnerRulesForm) (Result, error) {
	id, err := s.ready(st, promo.BusinessPartner)
	if err != nil {
		return Result{}, err
	}
	if err := check(s.validate, f); err != nil {
		return Result{}, err
	}
	rules := promo.PartnerRules{StartDate: f.StartDate, EndDate: f.EndDate, Countries: f.Countries}
	payload, err := promo.PartnerRulePayloadOf(rules)
	if err != nil {
		return Result{}, err
	}
	if err := s.api.PatchRule(ctx, id, payload); err != nil {
		return Result{}, err
	}
	return s.commit(ctx, st, promo.BusinessPartner, promo.StepPartnerRules, func(prev promo.Draft) promo.Draft {
		prev.Partner = &rules
		return prev
	}), nil
}

// SubmitRewards saves the partnership loyalty rewards.
func (s *Service) SubmitRewards(ctx context.Context, st *draft.Store, f RewardsForm) (Result, error) {
	id, err := s.ready(st, promo.BusinessPartner)
	if err != nil {
		return Result{}, err
	}
	if err := check(s.validate, f); err != nil {
		return Result{}, err
	}
	if err := s.api.PatchRewards(ctx, id, promo.RewardsPayload{Rewards: f.Rewards}); err != nil {
		return Result{}, err
	}
	return s.commit(ctx, st, promo.BusinessPartner, promo.StepRewards, func(prev promo.Draft) promo.Draft {
		prev.Rewards = f.Rewards
		return prev
	}), nil
}

// Finish activates the promo and discards the draft. It publishes from any
// step; submitting the last step discards the draft on its own.
func (s *Service) Finish(ctx context.Context, st *draft.Store) (Result, error) {
	d := st.Draft()
	if d.PromoID == "" {
		return Result{}, ErrNoPromo
	}
	if err := s.api.Activate(ctx, d.PromoID); err != nil {
		return Result{}, err
	}
	st.Clear(ctx)
	log.Info().Str("promo_id", d.PromoID).Str("owner", st.Owner()).Msg("promo activated")
	return Result{Next: promo.NextPath(d.BusinessType, "")}, nil
}

// Abandon discards the draft without touching the server.
func (s *Service) Abandon(ctx context.Context, st *draft.Store) {
	st.Clear(ctx)
}

// commit merges the submitted step into the draft and picks the next page.
// Submitting the last step of the flow discards the draft so the next
// wizard session starts a new promo.
func (s *Service) commit(ctx context.Context, st *draft.Store, bt promo.BusinessType, key promo.StepKey, merge func(prev promo.Draft) promo.Draft) Result {
	next := promo.NextPath(bt, key)
	if !promo.IsLast(bt, key) {
		return Result{Draft: st.Update(ctx, merge), Next: next}
	}
	final := merge(st.Draft())
	st.Clear(ctx)
	log.Info().Str("promo_id", final.PromoID).Str("owner", st.Owner()).Msg("final step saved; draft discarded")
	return Result{Draft: final, Next: next}
}

func (s *Service) ready(st *draft.Store, want promo.BusinessType) (string, error) {
	d := st.Draft()
	if d.PromoID == "" {
		return "", ErrNoPromo
	}
	bt := d.BusinessType
	if bt == "" {
		bt = promo.BusinessAirline
	}
	if bt != want {
		return "", ErrWrongFlow
	}
	return d.PromoID, nil
}
