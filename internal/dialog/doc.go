// Package dialog implements the guided profile and HRV dialogs.
//
// Each dialog kind is a table from step to an ordered list of rules. A rule
// pairs a validator on the inbound Event with an effect and the next step.
// An event no rule accepts leaves the session where it is. The cancel
// command ends any session from any step.
//
//	profile: gender -> photo -> location -> bio -> done
//	hrv:     summary -> graphs -> details -> done
//	link:    get -> plot (plot repeats until cancelled or replaced)
package dialog
