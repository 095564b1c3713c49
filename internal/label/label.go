// Package label classifies tracker labels into trigger intents. Pure
// functions, no tracker-specific behavior: the same four labels trigger the
// agent on every tracker.
package label

const (
	// Trigger is the base label that starts a run with manual plan approval.
	Trigger = "open-swe"
	// TriggerAutoAccept starts a run whose plan is accepted without review.
	TriggerAutoAccept = "open-swe-auto"
	// TriggerMax starts a run on the escalated model.
	TriggerMax = "open-swe-max"
	// TriggerMaxAutoAccept combines escalated model and auto-accept.
	TriggerMaxAutoAccept = "open-swe-max-auto"
)

// All returns every recognized trigger label.
func All() []string {
	return []string{Trigger, TriggerAutoAccept, TriggerMax, TriggerMaxAutoAccept}
}

// IsTrigger reports whether the label starts a run at all. Labels outside the
// recognized set are inert.
func IsTrigger(name string) bool {
	switch name {
	case Trigger, TriggerAutoAccept, TriggerMax, TriggerMaxAutoAccept:
		return true
	default:
		return false
	}
}

// IsAutoAccept reports whether the label skips plan approval.
func IsAutoAccept(name string) bool {
	return name == TriggerAutoAccept || name == TriggerMaxAutoAccept
}

// IsMax reports whether the label escalates to the max model.
func IsMax(name string) bool {
	return name == TriggerMax || name == TriggerMaxAutoAccept
}
