package promo

import "fmt"

type StepKey string

const (
	StepBasic        StepKey = "basic"
	StepAudience     StepKey = "audience"
	StepRules        StepKey = "rules"
	StepIncentives   StepKey = "incentives"
	StepPartnerRules StepKey = "partner-rules"
	StepRewards      StepKey = "rewards"
)

// Step is one page of the wizard.
type Step struct {
	Key   StepKey `json:"key"`
	Title string  `json:"title"`
	Path  string  `json:"path"`
}

// Pill is a rendered step with its navigation state.
type Pill struct {
	Step
	Index     int  `json:"index"`
	Done      bool `json:"done"`
	Current   bool `json:"current"`
	Reachable bool `json:"reachable"`
}

const wizardRoot = "/dashboard/promos"

// Flow returns the ordered steps for a business type. Airline is the default.
func Flow(bt BusinessType) []Step {
	if bt == BusinessPartner {
		return []Step{
			{Key: StepBasic, Title: "Basic info", Path: stepPath(1)},
			{Key: StepPartnerRules, Title: "Rules", Path: stepPath(2)},
			{Key: StepRewards, Title: "Rewards", Path: stepPath(3)},
		}
	}
	return []Step{
		{Key: StepBasic, Title: "Basic info", Path: stepPath(1)},
		{Key: StepAudience, Title: "Target audience", Path: stepPath(2)},
		{Key: StepRules, Title: "Rules", Path: stepPath(3)},
		{Key: StepIncentives, Title: "Incentives", Path: stepPath(4)},
	}
}

func stepPath(n int) string { return fmt.Sprintf("%s/create/step-%d", wizardRoot, n) }

// NextPath is where the client navigates after key is submitted. The last
// step leads back to the promo list.
func NextPath(bt BusinessType, key StepKey) string {
	steps := Flow(bt)
	for i, s := range steps {
		if s.Key == key && i+1 < len(steps) {
			return steps[i+1].Path
		}
	}
	return wizardRoot
}

// IsLast reports whether key is the final step of the flow for bt.
func IsLast(bt BusinessType, key StepKey) bool {
	steps := Flow(bt)
	return len(steps) > 0 && steps[len(steps)-1].Key == key
}

// Reachable is the soft navigation guard. With restrict off every step is
// reachable; otherwise only the first step, any step once step one is done,
// or steps at or before the current one.
func Reachable(index, current int, restrict bool, done []bool) bool {
	if !restrict || index == 0 {
		return true
	}
	if len(done) > 0 && done[0] {
		return true
	}
	return index <= current
}

// Pills builds the progress bar for d with current as the active index.
func Pills(d Draft, current int, restrict bool) []Pill {
	steps := Flow(d.BusinessType)
	done := StepsDone(d)
	out := make([]Pill, len(steps))
	for i, s := range steps {
		out[i] = Pill{
			Step:      s,
			Index:     i,
			Done:      i < len(done) && done[i],
			Current:   i == current,
			Reachable: Reachable(i, current, restrict, done),
		}
	}
	return out
}
