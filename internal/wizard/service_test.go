package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promo-wizard/internal/client"
	"promo-wizard/internal/draft"
	"promo-wizard/internal/promo"
	"promo-wizard/internal/storage"
)

type fakeAPI struct {
	calls    []string
	err      error
	created  promo.BasicPayload
	updated  promo.BasicPayload
	audience []promo.AudiencePayload
	rule     promo.RulePayload
	rewards  promo.RewardsPayload
	uploaded string
}

func (f *fakeAPI) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeAPI) CreatePromo(_ context.Context, in promo.BasicPayload) (string, error) {
	f.created = in
	if err := f.record("create"); err != nil {
		return "", err
	}
	return "p-1", nil
}

func (f *fakeAPI) UpdatePromo(_ context.Context, _ string, in promo.BasicPayload) error {
	f.updated = in
	return f.record("update")
}

func (f *fakeAPI) PatchTargetAudience(_ context.Context, _ string, rows []promo.AudiencePayload) error {
	f.audience = rows
	return f.record("audience")
}

func (f *fakeAPI) PatchRule(_ context.Context, _ string, rule promo.RulePayload) error {
	f.rule = rule
	return f.record("rule")
}

func (f *fakeAPI) PatchRewards(_ context.Context, _ string, rewards promo.RewardsPayload) error {
	f.rewards = rewards
	return f.record("rewards")
}

func (f *fakeAPI) Activate(context.Context, string) error { return f.record("activate") }

func (f *fakeAPI) Upload(_ context.Context, name, _ string, _ []byte) (string, error) {
	f.uploaded = name
	if err := f.record("upload"); err != nil {
		return "", err
	}
	return "https://cdn.example.com/" + name, nil
}

func newStore(t *testing.T, d promo.Draft) *draft.Store {
	t.Helper()
	ctx := context.Background()
	repo := storage.NewMemory()
	if !d.IsZero() {
		require.NoError(t, repo.Save(ctx, "u1", draft.DefaultKey, d))
	}
	return draft.Open(ctx, repo, "u1", draft.DefaultKey)
}

func TestSubmitBasic_ImageRequired(t *testing.T) {
	api := &fakeAPI{}
	st := newStore(t, promo.Draft{})

	_, err := NewService(api).SubmitBasic(context.Background(), st, BasicForm{
		Name:            "Summer Sale",
		Description:     "10% off",
		RuleDescription: "Valid in June",
	})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{"image": "required_without"}, verr.Fields)
	assert.Empty(t, api.calls, "nothing reaches the network")
	assert.True(t, st.Draft().IsZero())
}

func TestSubmitBasic_CreateThenUpdate(t *testing.T) {
	api := &fakeAPI{}
	st := newStore(t, promo.Draft{})
	svc := NewService(api)
	ctx := context.Background()

	res, err := svc.SubmitBasic(ctx, st, BasicForm{
		BusinessType:    promo.BusinessPartner,
		Name:            " Summer Sale ",
		Description:     "10% off",
		RuleDescription: "Valid in June",
		ImageFile:       &ImageFile{Name: "banner.png", ContentType: "image/png", Data: []byte("png")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"upload", "create"}, api.calls)
	assert.Equal(t, promo.BusinessPartner, api.created.Type)
	assert.Equal(t, "Summer Sale", api.created.Name)
	assert.Equal(t, "p-1", res.Draft.PromoID)
	assert.Equal(t, "https://cdn.example.com/banner.png", res.Draft.ImageURI)
	assert.Equal(t, "/dashboard/promos/create/step-2", res.Next)

	res, err = svc.SubmitBasic(ctx, st, BasicForm{
		BusinessType:    promo.BusinessAirline,
		Name:            "Summer Sale 2",
		Description:     "10% off",
		RuleDescription: "Valid in June",
		Image:           res.Draft.ImageURI,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"upload", "create", "update"}, api.calls)
	assert.Empty(t, api.updated.Type, "type is only sent on create")
	assert.Equal(t, "p-1", res.Draft.PromoID, "id is set once")
	assert.Equal(t, promo.BusinessPartner, res.Draft.BusinessType, "flow is fixed after create")
	assert.Equal(t, "Summer Sale 2", st.Draft().Name)
}

func TestSubmitBasic_ServerErrorLeavesDraft(t *testing.T) {
	api := &fakeAPI{err: &client.APIError{Status: 409, Message: "Promo name already taken"}}
	st := newStore(t, promo.Draft{})

	res, err := NewService(api).SubmitBasic(context.Background(), st, BasicForm{
		Name: "Summer Sale", Description: "10% off", RuleDescription: "Valid in June",
		Image: "https://cdn.example.com/a.png",
	})
	require.Error(t, err)
	assert.Equal(t, "Promo name already taken", UserMessage(err))
	assert.Empty(t, res.Next)
	assert.True(t, st.Draft().IsZero())
}

func TestSubmitAudience(t *testing.T) {
	kz := &promo.Option{Value: "KZ", Label: "Kazakhstan"}
	tests := []struct {
		name    string
		draft   promo.Draft
		form    AudienceForm
		wantErr error
		fields  map[string]string
	}{
		{"requires created promo", promo.Draft{}, AudienceForm{Rows: []promo.TargetAudience{{Country: kz}}}, ErrNoPromo, nil},
		{"partner flow rejected", promo.Draft{PromoID: "p-1", BusinessType: promo.BusinessPartner}, AudienceForm{Rows: []promo.TargetAudience{{Country: kz}}}, ErrWrongFlow, nil},
		{"at least one row", promo.Draft{PromoID: "p-1"}, AudienceForm{}, nil, map[string]string{"rows": "required"}},
		{"country required", promo.Draft{PromoID: "p-1"}, AudienceForm{Rows: []promo.TargetAudience{{}}}, nil, map[string]string{"rows[0].country": "required"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			_, err := NewService(api).SubmitAudience(context.Background(), newStore(t, tt.draft), tt.form)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.fields != nil {
				var verr *ValidationError
				require.True(t, errors.As(err, &verr))
				assert.Equal(t, tt.fields, verr.Fields)
			}
			assert.Empty(t, api.calls)
		})
	}
}

func TestSubmitAudience_AllCountriesRowDropsChildren(t *testing.T) {
	api := &fakeAPI{}
	st := newStore(t, promo.Draft{PromoID: "p-1", BusinessType: promo.BusinessAirline})

	res, err := NewService(api).SubmitAudience(context.Background(), st, AudienceForm{Rows: []promo.TargetAudience{
		{Country: &promo.Option{Value: promo.All}, Cities: promo.Select(promo.Option{Value: "ALA"})},
		{Country: &promo.Option{Value: "KZ"}, Cities: promo.Select(promo.Option{Value: "ALA"}), Agencies: promo.Selection{}},
	}})
	require.NoError(t, err)

	require.Len(t, api.audience, 2)
	assert.Nil(t, api.audience[0].CityIDs)
	assert.Equal(t, []string{"ALA"}, *api.audience[1].CityIDs)
	assert.Equal(t, []string{}, *api.audience[1].AgencyIDs)
	assert.Empty(t, res.Draft.TargetAudiences[0].Cities.Options)
	assert.Equal(t, "/dashboard/promos/create/step-3", res.Next)
}

func TestSubmitPartnerRules_UTCBoundaries(t *testing.T) {
	api := &fakeAPI{}
	st := newStore(t, promo.Draft{PromoID: "p-1", BusinessType: promo.BusinessPartner})

	res, err := NewService(api).SubmitPartnerRules(context.Background(), st, PartnerRulesForm{
		StartDate: "2025-06-01",
		EndDate:   "2025-06-30",
		Countries: []promo.Option{{Value: "KZ", Label: "Kazakhstan"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01T00:00:00Z", api.rule.StartDate)
	assert.Equal(t, "2025-06-30T23:59:59Z", api.rule.EndDate)
	assert.Equal(t, []string{"KZ"}, api.rule.CountryIDs)
	assert.Equal(t, "2025-06-01", res.Draft.Partner.StartDate)
	assert.Equal(t, "/dashboard/promos/create/step-3", res.Next)
}

func TestSubmitPartnerRules_Validation(t *testing.T) {
	st := newStore(t, promo.Draft{PromoID: "p-1", BusinessType: promo.BusinessPartner})
	_, err := NewService(&fakeAPI{}).SubmitPartnerRules(context.Background(), st, PartnerRulesForm{
		StartDate: "2025-06-30",
		EndDate:   "2025-06-01",
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "required", verr.Fields["countries"])
	assert.Equal(t, "gtefield", verr.Fields["endDate"])
}

func TestSubmitRewards(t *testing.T) {
	api := &fakeAPI{}
	st := newStore(t, promo.Draft{PromoID: "p-1", BusinessType: promo.BusinessPartner})
	svc := NewService(api)

	_, err := svc.SubmitRewards(context.Background(), st, RewardsForm{Rewards: []promo.Reward{
		{LoyaltyStatus: promo.LoyaltyGold, Value: decimal.NewFromInt(150), ValueType: promo.ValuePercentage},
	}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "lte", verr.Fields["rewards[0].value"])

	res, err := svc.SubmitRewards(context.Background(), st, RewardsForm{Rewards: []promo.Reward{
		{LoyaltyStatus: promo.LoyaltyGold, Value: decimal.NewFromInt(10), ValueType: promo.ValuePercentage},
		{LoyaltyStatus: promo.LoyaltySilver, Value: decimal.NewFromInt(500), ValueType: promo.ValueFixed},
	}})
	require.NoError(t, err)
	assert.Len(t, api.rewards.Rewards, 2)
	assert.Equal(t, "/dashboard/promos", res.Next)
	assert.Equal(t, []promo.LoyaltyStatus{promo.LoyaltyBronze, promo.LoyaltyPlatinum}, promo.AvailableStatuses(res.Draft.Rewards))
}

func TestSubmitRulesAndIncentives(t *testing.T) {
	api := &fakeAPI{}
	st := newStore(t, promo.Draft{PromoID: "p-1", BusinessType: promo.BusinessAirline})
	svc := NewService(api)
	ctx := context.Background()

	form := RulesFormFrom(st.Draft())
	form.BookingStart, form.BookingEnd = "2025-06-01", "2025-06-30"
	form.TravelStart, form.TravelEnd = "2025-07-01", "2025-07-31"
	form.OriginCountries = promo.Select(promo.Option{Value: "KZ", Label: "Kazakhstan"})
	res, err := svc.SubmitRules(ctx, st, form)
	require.NoError(t, err)
	assert.Equal(t, "2025-07-31T23:59:59Z", api.rule.TravelEndDate)
	assert.Nil(t, api.rule.DestinationCountryIDs)
	assert.True(t, promo.Completion(res.Draft)[2])

	_, err = svc.SubmitIncentives(ctx, st, IncentivesForm{Incentives: []promo.Incentive{{
		AudienceType: "AGENT",
		Type:         promo.IncentiveThreshold,
		Lines:        []promo.RewardLine{{Trigger: promo.TriggerBookingClass, Code: "Y", Value: decimal.NewFromInt(5), ValueType: promo.ValueFixed}},
	}}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "gt", verr.Fields["incentives[0].lines.threshold"])

	res, err = svc.SubmitIncentives(ctx, st, IncentivesForm{Incentives: []promo.Incentive{{
		AudienceType: "AGENT",
		Type:         promo.IncentiveFee,
		Lines:        []promo.RewardLine{{Trigger: promo.TriggerFareFamily, Code: "FLEX", Value: decimal.NewFromInt(5), ValueType: promo.ValueFixed}},
	}}})
	require.NoError(t, err)
	assert.True(t, promo.Completion(res.Draft)[3])
	assert.Equal(t, "/dashboard/promos", res.Next)
}

func TestFinalStepDiscardsDraft(t *testing.T) {
	incentives := []promo.Incentive{{
		AudienceType: "AGENT",
		Type:         promo.IncentiveFee,
		Lines:        []promo.RewardLine{{Trigger: promo.TriggerFareFamily, Code: "FLEX", Value: decimal.NewFromInt(5), ValueType: promo.ValueFixed}},
	}}
	rewards := []promo.Reward{{LoyaltyStatus: promo.LoyaltyGold, Value: decimal.NewFromInt(10), ValueType: promo.ValuePercentage}}

	tests := []struct {
		name   string
		bt     promo.BusinessType
		submit func(*Service, context.Context, *draft.Store) (Result, error)
	}{
		{"airline incentives", promo.BusinessAirline, func(s *Service, ctx context.Context, st *draft.Store) (Result, error) {
			return s.SubmitIncentives(ctx, st, IncentivesForm{Incentives: incentives})
		}},
		{"partner rewards", promo.BusinessPartner, func(s *Service, ctx context.Context, st *draft.Store) (Result, error) {
			return s.SubmitRewards(ctx, st, RewardsForm{Rewards: rewards})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			api := &fakeAPI{}
			svc := NewService(api)
			st := newStore(t, promo.Draft{PromoID: "p-1", BusinessType: tt.bt, Name: "Old promo"})

			res, err := tt.submit(svc, ctx, st)
			require.NoError(t, err)
			assert.Equal(t, "/dashboard/promos", res.Next)
			assert.Equal(t, "p-1", res.Draft.PromoID, "result still carries the saved draft")
			assert.True(t, st.Draft().IsZero())

			_, err = svc.SubmitBasic(ctx, st, BasicForm{Name: "Brand new", Description: "d", RuleDescription: "r", Image: "https://cdn.example.com/n.png"})
			require.NoError(t, err)
			assert.Equal(t, "create", api.calls[len(api.calls)-1])
			assert.Equal(t, "Brand new", api.created.Name)
		})
	}
}

func TestStepBeforeLastKeepsDraft(t *testing.T) {
	ctx := context.Background()
	svc := NewService(&fakeAPI{})
	st := newStore(t, promo.Draft{PromoID: "p-1", BusinessType: promo.BusinessPartner})

	_, err := svc.SubmitPartnerRules(ctx, st, PartnerRulesForm{
		StartDate: "2025-06-01", EndDate: "2025-06-30",
		Countries: []promo.Option{{Value: "KZ", Label: "Kazakhstan"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "p-1", st.Draft().PromoID)
	assert.NotNil(t, st.Draft().Partner)
}

func TestFinishAndAbandon(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{}
	svc := NewService(api)

	_, err := svc.Finish(ctx, newStore(t, promo.Draft{}))
	assert.ErrorIs(t, err, ErrNoPromo)

	st := newStore(t, promo.Draft{PromoID: "p-1", Name: "Summer Sale"})
	res, err := svc.Finish(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard/promos", res.Next)
	assert.True(t, st.Draft().IsZero())
	assert.Equal(t, []string{"activate"}, api.calls)

	st = newStore(t, promo.Draft{PromoID: "p-2"})
	svc.Abandon(ctx, st)
	assert.True(t, st.Draft().IsZero())
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&ValidationError{Fields: map[string]string{"name": "required"}}, msgValidation},
		{&client.APIError{Status: 500}, msgGeneric},
		{&client.APIError{Status: 400, Message: "Bad dates"}, "Bad dates"},
		{client.ErrSessionExpired, msgExpired},
		{errors.New("dial tcp: refused"), msgGeneric},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, UserMessage(tt.err))
	}
}
