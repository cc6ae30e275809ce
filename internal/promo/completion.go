package promo

// Completion reports, per airline step, whether the draft holds enough data
// for that step to count as done. Predicates are independent of each other.
func Completion(d Draft) [4]bool {
	return [4]bool{
		basicDone(d),
		audienceDone(d.TargetAudiences),
		rulesDone(d.Rules),
		len(d.Incentives) > 0,
	}
}

// PartnerCompletion is Completion for the partnership flow: basic info,
// rules, rewards.
func PartnerCompletion(d Draft) [3]bool {
	return [3]bool{
		basicDone(d),
		partnerRulesDone(d.Partner),
		len(d.Rewards) > 0,
	}
}

// StepsDone returns the completion flags for the draft's flow in step order.
func StepsDone(d Draft) []bool {
	if d.BusinessType == BusinessPartner {
		c := PartnerCompletion(d)
		return c[:]
	}
	c := Completion(d)
	return c[:]
}

func basicDone(d Draft) bool {
	return d.Name != "" && d.Description != "" && d.RuleDescription != ""
}

func audienceDone(rows []TargetAudience) bool {
	for _, r := range rows {
		if r.Country == nil || r.Country.Value == "" {
			continue
		}
		if len(r.Cities.Options) > 0 || len(r.Agencies.Options) > 0 {
			return true
		}
	}
	return false
}

func rulesDone(r *Rules) bool {
	if r == nil {
		return false
	}
	if r.BookingStart == "" || r.BookingEnd == "" || r.TravelStart == "" || r.TravelEnd == "" {
		return false
	}
	return !r.OriginCountries.All || !r.DestinationCountries.All
}

func partnerRulesDone(p *PartnerRules) bool {
	return p != nil && p.StartDate != "" && p.EndDate != "" && len(p.Countries) > 0
}
