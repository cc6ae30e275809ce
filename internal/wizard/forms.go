package wizard

import (
	"strings"

	"promo-wizard/internal/promo"
)

// ImageFile is a local image that must be uploaded before step one submits.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// BasicForm is step one. Either Image (already hosted) or ImageFile is required.
type BasicForm struct {
	BusinessType    promo.BusinessType `json:"businessType" validate:"omitempty,oneof=AIRLINE PARTNER"`
	Name            string             `json:"name" validate:"required,max=255"`
	Description     string             `json:"description" validate:"required"`
	RuleDescription string             `json:"ruleDescription" validate:"required"`
	Image           string             `json:"image" validate:"required_without=ImageFile"`
	ImageFile       *ImageFile         `json:"-"`
}

func (f *BasicForm) normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	f.RuleDescription = strings.TrimSpace(f.RuleDescription)
	f.Image = strings.TrimSpace(f.Image)
	if f.ImageFile != nil && len(f.ImageFile.Data) == 0 {
		f.ImageFile = nil
	}
}

// AudienceForm is the airline step two.
type AudienceForm struct {
	Rows []promo.TargetAudience `json:"rows" validate:"required,min=1,max=50,dive"`
}

// RulesForm is the airline booking/travel rules step.
type RulesForm struct {
	BookingStart         string          `json:"bookingStartDate" validate:"required,datetime=2006-01-02"`
	BookingEnd           string          `json:"bookingEndDate" validate:"required,datetime=2006-01-02"`
	TravelStart          string          `json:"travelStartDate" validate:"required,datetime=2006-01-02"`
	TravelEnd            string          `json:"travelEndDate" validate:"required,datetime=2006-01-02"`
	OriginCountries      promo.Selection `json:"originCountries"`
	OriginCities         promo.Selection `json:"originCities"`
	DestinationCountries promo.Selection `json:"destinationCountries"`
	DestinationCities    promo.Selection `json:"destinationCities"`
	FlightNumbers        []string        `json:"flightNumbers" validate:"omitempty,dive,required,max=8"`
	InterlinePartners    bool            `json:"interlinePartners"`
	CodesharePartners    bool            `json:"codesharePartners"`
	InternationalOnly    bool            `json:"internationalOnly"`
}

func (f RulesForm) rules() promo.Rules {
	return promo.Rules{
		BookingStart:         f.BookingStart,
		BookingEnd:           f.BookingEnd,
		TravelStart:          f.TravelStart,
		TravelEnd:            f.TravelEnd,
		OriginCountries:      f.OriginCountries,
		OriginCities:         f.OriginCities,
		DestinationCountries: f.DestinationCountries,
		DestinationCities:    f.DestinationCities,
		FlightNumbers:        f.FlightNumbers,
		InterlinePartners:    f.InterlinePartners,
		CodesharePartners:    f.CodesharePartners,
		InternationalOnly:    f.InternationalOnly,
	}
}

// IncentivesForm is the airline rewards step.
type IncentivesForm struct {
	Incentives []promo.Incentive `json:"incentives" validate:"required,min=1,dive"`
}

// PartnerRulesForm is the partnership step two.
type PartnerRulesForm struct {
	StartDate string         `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string         `json:"endDate" validate:"required,datetime=2006-01-02"`
	Countries []promo.Option `json:"countries" validate:"required,min=1,dive"`
}

// RewardsForm is the partnership step three. A loyalty status appearing
// twice is not rejected here; the add selector only offers unused statuses.
type RewardsForm struct {
	Rewards []promo.Reward `json:"rewards" validate:"required,min=1,dive"`
}

// Prefill helpers build forms from a draft so edit mode can resubmit steps.

func BasicFormFrom(d promo.Draft) BasicForm {
	return BasicForm{
		BusinessType:    d.BusinessType,
		Name:            d.Name,
		Description:     d.Description,
		RuleDescription: d.RuleDescription,
		Image:           d.ImageURI,
	}
}

func AudienceFormFrom(d promo.Draft) AudienceForm {
	return AudienceForm{Rows: d.TargetAudiences}
}

func RulesFormFrom(d promo.Draft) RulesForm {
	if d.Rules == nil {
		return RulesForm{
			OriginCountries: promo.SelectAll(), OriginCities: promo.SelectAll(),
			DestinationCountries: promo.SelectAll(), DestinationCities: promo.SelectAll(),
		}
	}
	r := d.Rules
	return RulesForm{
		BookingStart:         r.BookingStart,
		BookingEnd:           r.BookingEnd,
		TravelStart:          r.TravelStart,
		TravelEnd:            r.TravelEnd,
		OriginCountries:      r.OriginCountries,
		OriginCities:         r.OriginCities,
		DestinationCountries: r.DestinationCountries,
		DestinationCities:    r.DestinationCities,
		FlightNumbers:        r.FlightNumbers,
		InterlinePartners:    r.InterlinePartners,
		CodesharePartners:    r.CodesharePartners,
		InternationalOnly:    r.InternationalOnly,
	}
}

func IncentivesFormFrom(d promo.Draft) IncentivesForm {
	return IncentivesForm{Incentives: d.Incentives}
}

func PartnerRulesFormFrom(d promo.Draft) PartnerRulesForm {
	if d.Partner == nil {
		return PartnerRulesForm{}
	}
	return PartnerRulesForm{StartDate: d.Partner.StartDate, EndDate: d.Partner.EndDate, Countries: d.Partner.Countries}
}

func RewardsFormFrom(d promo.Draft) RewardsForm {
	return RewardsForm{Rewards: d.Rewards}
}
