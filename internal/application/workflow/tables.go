package workflow

import (
	"github.com/plantops/workdesk/internal/domain/entity"
	domainwf "github.com/plantops/workdesk/internal/domain/workflow"
)

// Triggers shared by the transition tables. Trigger names double as
// authorization policy transition names.
const (
	TriggerSubmit        = domainwf.Trigger("submit")
	TriggerApprove       = domainwf.Trigger("approve")
	TriggerReject        = domainwf.Trigger("reject")
	TriggerBeginProgress = domainwf.Trigger("begin-progress")
	TriggerClose         = domainwf.Trigger("close")
	TriggerReopen        = domainwf.Trigger("reopen")
	TriggerConfirm       = domainwf.Trigger("confirm")
	TriggerCancel        = domainwf.Trigger("cancel")
	TriggerComplete      = domainwf.Trigger("complete")
	TriggerMarkAccounted = domainwf.Trigger("mark-accounted")
	TriggerReactivate    = domainwf.Trigger("reactivate")
	TriggerAssign        = domainwf.Trigger("assign")
	TriggerRelease       = domainwf.Trigger("release")
	TriggerSendRepair    = domainwf.Trigger("send-repair")
	TriggerReturnRepair  = domainwf.Trigger("return-repair")
	TriggerDispose       = domainwf.Trigger("dispose")
	TriggerTake          = domainwf.Trigger("take")
	TriggerResolve       = domainwf.Trigger("resolve")
)

// Rule is one enumerable transition: legal source states, the trigger
// and the target state.
type Rule struct {
	Trigger domainwf.Trigger
	From    []domainwf.State
	To      domainwf.State
}

// Table is one entity family's complete transition table
type Table struct {
	Family entity.Family
	Def    domainwf.Definition
	Rules  []Rule
}

// Machine builds a state machine positioned at the given current state
func (t *Table) Machine(current domainwf.State) domainwf.StateMachine {
	builder := domainwf.NewBuilder(t.Def)
	for _, rule := range t.Rules {
		for _, from := range rule.From {
			builder.Configure(from).Permit(rule.Trigger, rule.To)
		}
	}
	return builder.Build(current)
}

// Target returns the target state of a trigger, if the table knows it
func (t *Table) Target(trigger domainwf.Trigger) (domainwf.State, bool) {
	for _, rule := range t.Rules {
		if rule.Trigger == trigger {
			return rule.To, true
		}
	}
	return "", false
}

func states(values ...string) []domainwf.State {
	out := make([]domainwf.State, len(values))
	for i, v := range values {
		out[i] = domainwf.State(v)
	}
	return out
}

// DeviationTable returns the deviation workflow transition table.
// Rejected and closed deviations are terminal for everyone but admin;
// reopen (admin only by policy) is the single way out.
func DeviationTable() *Table {
	return &Table{
		Family: entity.FamilyDeviations,
		Def: domainwf.NewDefinition(
			states(
				entity.DeviationDraft,
				entity.DeviationInApproval,
				entity.DeviationApproved,
				entity.DeviationRejected,
				entity.DeviationInProgress,
				entity.DeviationClosed,
			),
			domainwf.State(entity.DeviationRejected),
			domainwf.State(entity.DeviationClosed),
		),
		Rules: []Rule{
			{TriggerSubmit, states(entity.DeviationDraft), domainwf.State(entity.DeviationInApproval)},
			{TriggerApprove, states(entity.DeviationInApproval), domainwf.State(entity.DeviationApproved)},
			{TriggerReject, states(entity.DeviationInApproval), domainwf.State(entity.DeviationRejected)},
			{TriggerBeginProgress, states(entity.DeviationApproved), domainwf.State(entity.DeviationInProgress)},
			{TriggerClose, states(entity.DeviationInProgress), domainwf.State(entity.DeviationClosed)},
			{TriggerReopen, states(entity.DeviationRejected, entity.DeviationClosed), domainwf.State(entity.DeviationInProgress)},
		},
	}
}

// OvertimeTable returns the overtime-order workflow transition table
func OvertimeTable() *Table {
	return &Table{
		Family: entity.FamilyOvertime,
		Def: domainwf.NewDefinition(
			states(
				entity.OvertimeForecast,
				entity.OvertimePending,
				entity.OvertimeApproved,
				entity.OvertimeCanceled,
				entity.OvertimeCompleted,
				entity.OvertimeAccounted,
			),
			domainwf.State(entity.OvertimeCanceled),
			domainwf.State(entity.OvertimeAccounted),
		),
		Rules: []Rule{
			{TriggerConfirm, states(entity.OvertimeForecast), domainwf.State(entity.OvertimePending)},
			{TriggerApprove, states(entity.OvertimePending), domainwf.State(entity.OvertimeApproved)},
			{TriggerCancel, states(entity.OvertimeForecast, entity.OvertimePending, entity.OvertimeApproved), domainwf.State(entity.OvertimeCanceled)},
			{TriggerComplete, states(entity.OvertimeApproved), domainwf.State(entity.OvertimeCompleted)},
			{TriggerMarkAccounted, states(entity.OvertimeCompleted), domainwf.State(entity.OvertimeAccounted)},
			{TriggerReactivate, states(entity.OvertimeCanceled), domainwf.State(entity.OvertimePending)},
		},
	}
}

// InventoryTable returns the IT inventory workflow transition table
func InventoryTable() *Table {
	return &Table{
		Family: entity.FamilyInventory,
		Def: domainwf.NewDefinition(
			states(
				entity.InventoryInUse,
				entity.InventoryInStorage,
				entity.InventoryInRepair,
				entity.InventoryDisposed,
			),
			domainwf.State(entity.InventoryDisposed),
		),
		Rules: []Rule{
			{TriggerAssign, states(entity.InventoryInStorage), domainwf.State(entity.InventoryInUse)},
			{TriggerRelease, states(entity.InventoryInUse), domainwf.State(entity.InventoryInStorage)},
			{TriggerSendRepair, states(entity.InventoryInUse, entity.InventoryInStorage), domainwf.State(entity.InventoryInRepair)},
			{TriggerReturnRepair, states(entity.InventoryInRepair), domainwf.State(entity.InventoryInStorage)},
			{TriggerDispose, states(entity.InventoryInUse, entity.InventoryInStorage, entity.InventoryInRepair), domainwf.State(entity.InventoryDisposed)},
		},
	}
}

// FailureTable returns the failure-report workflow transition table.
// Resolved is not terminal: maintenance may reopen a recurring failure.
func FailureTable() *Table {
	return &Table{
		Family: entity.FamilyFailures,
		Def: domainwf.NewDefinition(
			states(
				entity.FailureOpen,
				entity.FailureInProgress,
				entity.FailureResolved,
			),
		),
		Rules: []Rule{
			{TriggerTake, states(entity.FailureOpen), domainwf.State(entity.FailureInProgress)},
			{TriggerResolve, states(entity.FailureInProgress), domainwf.State(entity.FailureResolved)},
			{TriggerReopen, states(entity.FailureResolved), domainwf.State(entity.FailureOpen)},
		},
	}
}

// ActionTable returns the corrective-action sub-entity transition table
func ActionTable() *Table {
	return &Table{
		Family: entity.FamilyDeviations,
		Def: domainwf.NewDefinition(
			states(
				entity.ActionOpen,
				entity.ActionInProgress,
				entity.ActionClosed,
				entity.ActionRejected,
			),
			domainwf.State(entity.ActionClosed),
			domainwf.State(entity.ActionRejected),
		),
		Rules: []Rule{
			{TriggerBeginProgress, states(entity.ActionOpen), domainwf.State(entity.ActionInProgress)},
			{TriggerClose, states(entity.ActionOpen, entity.ActionInProgress), domainwf.State(entity.ActionClosed)},
			{TriggerReject, states(entity.ActionOpen, entity.ActionInProgress), domainwf.State(entity.ActionRejected)},
		},
	}
}

// Tables returns the transition tables keyed by family
func Tables() map[entity.Family]*Table {
	return map[entity.Family]*Table{
		entity.FamilyDeviations: DeviationTable(),
		entity.FamilyOvertime:   OvertimeTable(),
		entity.FamilyInventory:  InventoryTable(),
		entity.FamilyFailures:   FailureTable(),
	}
}
