package promo

// Disabled reports whether cities and agencies are locked because the row
// targets every country.
func (a TargetAudience) Disabled() bool {
	return a.Country != nil && a.Country.Value == All
}

// WithCountry replaces the country and resets everything below it.
func (a TargetAudience) WithCountry(c *Option) TargetAudience {
	if sameOption(a.Country, c) {
		return a
	}
	return TargetAudience{Country: c}
}

// WithCities replaces the city selection. Removing any city clears agencies;
// adding cities keeps them.
func (a TargetAudience) WithCities(cities Selection) TargetAudience {
	if a.Disabled() {
		return a
	}
	if removedAny(a.Cities, cities) {
		a.Agencies = Selection{}
	}
	a.Cities = cities
	return a
}

func (a TargetAudience) WithAgencies(agencies Selection) TargetAudience {
	if a.Disabled() {
		return a
	}
	a.Agencies = agencies
	return a
}

func sameOption(a, b *Option) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Value == b.Value
}

func removedAny(before, after Selection) bool {
	if after.All {
		return false
	}
	if before.All {
		return true
	}
	keep := make(map[string]struct{}, len(after.Options))
	for _, o := range after.Options {
		keep[o.Value] = struct{}{}
	}
	for _, o := range before.Options {
		if _, ok := keep[o.Value]; !ok {
			return true
		}
	}
	return false
}
