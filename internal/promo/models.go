package promo

import "github.com/shopspring/decimal"

// All is the sentinel for "no restriction" on a filterable dimension.
const All = "all"

type BusinessType string

const (
	BusinessAirline BusinessType = "AIRLINE"
	BusinessPartner BusinessType = "PARTNER"
)

type IncentiveType string

const (
	IncentiveFee       IncentiveType = "FEE"
	IncentiveThreshold IncentiveType = "THRESHOLD"
)

type ValueType string

const (
	ValueFixed      ValueType = "FIXED"
	ValuePercentage ValueType = "PERCENTAGE"
)

// Trigger is what a reward line pays out on.
type Trigger string

const (
	TriggerBookingClass Trigger = "BOOKING_CLASS"
	TriggerFareFamily   Trigger = "FARE_FAMILY"
	TriggerAncillary    Trigger = "ANCILLARY"
	TriggerLoyaltyTier  Trigger = "LOYALTY_TIER"
)

type LoyaltyStatus string

const (
	LoyaltyBronze   LoyaltyStatus = "BRONZE"
	LoyaltySilver   LoyaltyStatus = "SILVER"
	LoyaltyGold     LoyaltyStatus = "GOLD"
	LoyaltyPlatinum LoyaltyStatus = "PLATINUM"
)

// LoyaltyStatuses lists every status in display order.
var LoyaltyStatuses = []LoyaltyStatus{LoyaltyBronze, LoyaltySilver, LoyaltyGold, LoyaltyPlatinum}

// Option is a selectable value with its display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// TargetAudience is one audience row of the airline flow.
type TargetAudience struct {
	Country  *Option   `json:"country"`
	Cities   Selection `json:"cities"`
	Agencies Selection `json:"agencies"`
}

// Rules holds the airline booking/travel constraints. Dates are YYYY-MM-DD.
type Rules struct {
	BookingStart         string    `json:"bookingStartDate,omitempty"`
	BookingEnd           string    `json:"bookingEndDate,omitempty"`
	TravelStart          string    `json:"travelStartDate,omitempty"`
	TravelEnd            string    `json:"travelEndDate,omitempty"`
	OriginCountries      Selection `json:"originCountries"`
	OriginCities         Selection `json:"originCities"`
	DestinationCountries Selection `json:"destinationCountries"`
	DestinationCities    Selection `json:"destinationCities"`
	FlightNumbers        []string  `json:"flightNumbers,omitempty"`
	InterlinePartners    bool      `json:"interlinePartners"`
	CodesharePartners    bool      `json:"codesharePartners"`
	InternationalOnly    bool      `json:"internationalOnly"`
}

type RewardLine struct {
	Trigger   Trigger         `json:"trigger"`
	Code      string          `json:"code"`
	Value     decimal.Decimal `json:"value"`
	ValueType ValueType       `json:"valueType"`
	Threshold int             `json:"threshold,omitempty"`
}

// Incentive is a reward configuration for one audience type.
type Incentive struct {
	AudienceType string        `json:"audienceType"`
	Type         IncentiveType `json:"incentiveType"`
	Lines        []RewardLine  `json:"lines"`
}

// PartnerRules is the partnership flow's date window and country set.
type PartnerRules struct {
	StartDate string   `json:"startDate,omitempty"`
	EndDate   string   `json:"endDate,omitempty"`
	Countries []Option `json:"countries,omitempty"`
}

type Reward struct {
	LoyaltyStatus LoyaltyStatus   `json:"loyaltyStatus"`
	Value         decimal.Decimal `json:"value"`
	ValueType     ValueType       `json:"valueType"`
}

// Draft is the denormalized promo under construction.
// PromoID stays empty until the first create call succeeds.
type Draft struct {
	PromoID         string           `json:"promoId,omitempty"`
	BusinessType    BusinessType     `json:"businessType,omitempty"`
	Name            string           `json:"name,omitempty"`
	Description     string           `json:"description,omitempty"`
	RuleDescription string           `json:"ruleDescription,omitempty"`
	ImageURI        string           `json:"imageUri,omitempty"`
	TargetAudiences []TargetAudience `json:"targetAudiences,omitempty"`
	Rules           *Rules           `json:"rules,omitempty"`
	Incentives      []Incentive      `json:"incentives,omitempty"`
	Partner         *PartnerRules    `json:"partner,omitempty"`
	Rewards         []Reward         `json:"rewards,omitempty"`
}

// IsZero reports whether nothing has been entered yet.
func (d Draft) IsZero() bool {
	return d.PromoID == "" && d.Name == "" && d.Description == "" && d.RuleDescription == "" &&
		d.ImageURI == "" && len(d.TargetAudiences) == 0 && d.Rules == nil &&
		len(d.Incentives) == 0 && d.Partner == nil && len(d.Rewards) == 0
}
