package promo

// Wire shapes of the promo REST API. List fields that filter a dimension are
// tri-state: nil (omitted) means All, an empty slice means no selection, and
// a non-empty slice is an explicit set.

type BasicPayload struct {
	Type            BusinessType `json:"type,omitempty"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	RuleDescription string       `json:"ruleDescription"`
	ImageURI        string       `json:"imageUri"`
}

type AudiencePayload struct {
	CountryID string    `json:"countryId"`
	CityIDs   *[]string `json:"cityIds,omitempty"`
	AgencyIDs *[]string `json:"agencyIds,omitempty"`
}

// RulePayload serves both flows: airline fields or partner fields are set.
type RulePayload struct {
	BookingStartDate      string    `json:"bookingStartDate,omitempty"`
	BookingEndDate        string    `json:"bookingEndDate,omitempty"`
	TravelStartDate       string    `json:"travelStartDate,omitempty"`
	TravelEndDate         string    `json:"travelEndDate,omitempty"`
	OriginCountryIDs      *[]string `json:"originCountryIds,omitempty"`
	OriginCityIDs         *[]string `json:"originCityIds,omitempty"`
	DestinationCountryIDs *[]string `json:"destinationCountryIds,omitempty"`
	DestinationCityIDs    *[]string `json:"destinationCityIds,omitempty"`
	FlightNumbers         []string  `json:"flightNumbers,omitempty"`
	InterlinePartners     *bool     `json:"interlinePartners,omitempty"`
	CodesharePartners     *bool     `json:"codesharePartners,omitempty"`
	InternationalOnly     *bool     `json:"internationalOnly,omitempty"`

	StartDate  string   `json:"startDate,omitempty"`
	EndDate    string   `json:"endDate,omitempty"`
	CountryIDs []string `json:"countryIds,omitempty"`
}

type RewardsPayload struct {
	Incentives []Incentive `json:"incentives,omitempty"`
	Rewards    []Reward    `json:"rewards,omitempty"`
}

type StatusPayload struct {
	Status string `json:"status"`
}

// Record is the server representation returned by GET /api/promos/{id}.
type Record struct {
	ID              string            `json:"id"`
	Type            BusinessType      `json:"type"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	RuleDescription string            `json:"ruleDescription"`
	ImageURI        string            `json:"imageUri"`
	Status          string            `json:"status,omitempty"`
	TargetAudience  []AudiencePayload `json:"targetAudience,omitempty"`
	Rule            *RulePayload      `json:"rule,omitempty"`
	Incentives      []Incentive       `json:"incentives,omitempty"`
	Rewards         []Reward          `json:"rewards,omitempty"`
}

// LabelKind names the reference dataset an id belongs to.
type LabelKind string

const (
	LabelCountry LabelKind = "country"
	LabelCity    LabelKind = "city"
	LabelAgency  LabelKind = "agency"
)

// Labeler resolves a display label. It must not fail; unknown ids come back as is.
type Labeler func(kind LabelKind, id string) string

func BasicPayloadOf(d Draft) BasicPayload {
	return BasicPayload{
		Name:            d.Name,
		Description:     d.Description,
		RuleDescription: d.RuleDescription,
		ImageURI:        d.ImageURI,
	}
}

func AudiencePayloadOf(rows []TargetAudience) []AudiencePayload {
	out := make([]AudiencePayload, 0, len(rows))
	for _, r := range rows {
		if r.Country == nil {
			continue
		}
		p := AudiencePayload{CountryID: r.Country.Value}
		if !r.Disabled() {
			p.CityIDs = idsOf(r.Cities)
			p.AgencyIDs = idsOf(r.Agencies)
		}
		out = append(out, p)
	}
	return out
}

func RulePayloadOf(r Rules) (RulePayload, error) {
	var (
		p   RulePayload
		err error
	)
	if p.BookingStartDate, err = DayStart(r.BookingStart); err != nil {
		return RulePayload{}, err
	}
	if p.BookingEndDate, err = DayEnd(r.BookingEnd); err != nil {
		return RulePayload{}, err
	}
	if p.TravelStartDate, err = DayStart(r.TravelStart); err != nil {
		return RulePayload{}, err
	}
	if p.TravelEndDate, err = DayEnd(r.TravelEnd); err != nil {
		return RulePayload{}, err
	}
	p.OriginCountryIDs = idsOf(r.OriginCountries)
	p.OriginCityIDs = idsOf(r.OriginCities)
	p.DestinationCountryIDs = idsOf(r.DestinationCountries)
	p.DestinationCityIDs = idsOf(r.DestinationCities)
	p.FlightNumbers = r.FlightNumbers
	p.InterlinePartners = boolPtr(r.InterlinePartners)
	p.CodesharePartners = boolPtr(r.CodesharePartners)
	p.InternationalOnly = boolPtr(r.InternationalOnly)
	return p, nil
}

func PartnerRulePayloadOf(r PartnerRules) (RulePayload, error) {
	start, err := DayStart(r.StartDate)
	if err != nil {
		return RulePayload{}, err
	}
	end, err := DayEnd(r.EndDate)
	if err != nil {
		return RulePayload{}, err
	}
	ids := make([]string, 0, len(r.Countries))
	for _, c := range r.Countries {
		ids = append(ids, c.Value)
	}
	return RulePayload{StartDate: start, EndDate: end, CountryIDs: ids}, nil
}

// FromRecord reshapes a server record into a draft, using label to name ids.
func FromRecord(rec Record, label Labeler) Draft {
	d := Draft{
		PromoID:         rec.ID,
		BusinessType:    rec.Type,
		Name:            rec.Name,
		Description:     rec.Description,
		RuleDescription: rec.RuleDescription,
		ImageURI:        rec.ImageURI,
		Incentives:      rec.Incentives,
		Rewards:         rec.Rewards,
	}
	if d.BusinessType == "" {
		d.BusinessType = BusinessAirline
	}
	for _, a := range rec.TargetAudience {
		row := TargetAudience{Country: countryOption(a.CountryID, label)}
		row.Cities = selectionOf(a.CityIDs, LabelCity, label)
		row.Agencies = selectionOf(a.AgencyIDs, LabelAgency, label)
		d.TargetAudiences = append(d.TargetAudiences, row)
	}
	if rec.Rule == nil {
		return d
	}
	r := rec.Rule
	if d.BusinessType == BusinessPartner {
		p := &PartnerRules{StartDate: DateOnly(r.StartDate), EndDate: DateOnly(r.EndDate)}
		for _, id := range r.CountryIDs {
			p.Countries = append(p.Countries, Option{Value: id, Label: label(LabelCountry, id)})
		}
		d.Partner = p
		return d
	}
	d.Rules = &Rules{
		BookingStart:         DateOnly(r.BookingStartDate),
		BookingEnd:           DateOnly(r.BookingEndDate),
		TravelStart:          DateOnly(r.TravelStartDate),
		TravelEnd:            DateOnly(r.TravelEndDate),
		OriginCountries:      selectionOf(r.OriginCountryIDs, LabelCountry, label),
		OriginCities:         selectionOf(r.OriginCityIDs, LabelCity, label),
		DestinationCountries: selectionOf(r.DestinationCountryIDs, LabelCountry, label),
		DestinationCities:    selectionOf(r.DestinationCityIDs, LabelCity, label),
		FlightNumbers:        r.FlightNumbers,
		InterlinePartners:    derefBool(r.InterlinePartners),
		CodesharePartners:    derefBool(r.CodesharePartners),
		InternationalOnly:    derefBool(r.InternationalOnly),
	}
	return d
}

// IDs lists every id in rec that needs a label, grouped by kind.
func (rec Record) IDs() map[LabelKind][]string {
	out := map[LabelKind][]string{}
	add := func(k LabelKind, ids ...string) {
		for _, id := range ids {
			if id != "" && id != All {
				out[k] = append(out[k], id)
			}
		}
	}
	for _, a := range rec.TargetAudience {
		add(LabelCountry, a.CountryID)
		if a.CityIDs != nil {
			add(LabelCity, *a.CityIDs...)
		}
		if a.AgencyIDs != nil {
			add(LabelAgency, *a.AgencyIDs...)
		}
	}
	if r := rec.Rule; r != nil {
		add(LabelCountry, r.CountryIDs...)
		for _, l := range []*[]string{r.OriginCountryIDs, r.DestinationCountryIDs} {
			if l != nil {
				add(LabelCountry, *l...)
			}
		}
		for _, l := range []*[]string{r.OriginCityIDs, r.DestinationCityIDs} {
			if l != nil {
				add(LabelCity, *l...)
			}
		}
	}
	return out
}

func countryOption(id string, label Labeler) *Option {
	if id == "" {
		return nil
	}
	if id == All {
		return &Option{Value: All, Label: "All countries"}
	}
	return &Option{Value: id, Label: label(LabelCountry, id)}
}

func selectionOf(ids *[]string, kind LabelKind, label Labeler) Selection {
	if ids == nil {
		return SelectAll()
	}
	if len(*ids) == 0 {
		return Selection{}
	}
	opts := make([]Option, 0, len(*ids))
	for _, id := range *ids {
		opts = append(opts, Option{Value: id, Label: label(kind, id)})
	}
	return Selection{Options: opts}
}

func idsOf(s Selection) *[]string {
	if s.All {
		return nil
	}
	ids := s.Values()
	return &ids
}

func boolPtr(b bool) *bool { return &b }

func derefBool(b *bool) bool { return b != nil && *b }
