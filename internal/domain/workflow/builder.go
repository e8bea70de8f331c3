package workflow

import (
	"context"
	"fmt"
)

// GuardFunc is a function that evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder builds a configured state machine for one
// entity family's state-space definition.
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows a trigger to transition to the target state if the guard condition passes
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

type transition struct {
	toState State
	guard   GuardFunc
}

type stateConfig struct {
	fromState   State
	transitions map[Trigger][]transition
}

type stateMachineBuilder struct {
	def            Definition
	configurations map[State]*stateConfig
}

type stateMachine struct {
	currentState   State
	configurations map[State]*stateConfig
}

// NewBuilder creates a state machine builder for a state-space definition
func NewBuilder(def Definition) StateMachineBuilder {
	return &stateMachineBuilder{
		def:            def,
		configurations: make(map[State]*stateConfig),
	}
}

// Configure returns a state configuration for the given state
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !b.def.IsValid(state) {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			fromState:   state,
			transitions: make(map[Trigger][]transition),
		}
		b.configurations[state] = config
	}

	return &builderStateConfig{builder: b, config: config}
}

// builderStateConfig validates target states against the builder's
// definition while delegating storage to the shared config.
type builderStateConfig struct {
	builder *stateMachineBuilder
	config  *stateConfig
}

// Permit allows a trigger to transition to the target state
func (c *builderStateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

// PermitIf allows a trigger to transition to the target state if the guard condition passes
func (c *builderStateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !c.builder.def.IsValid(toState) {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	c.config.transitions[trigger] = append(c.config.transitions[trigger], transition{
		toState: toState,
		guard:   guard,
	})

	return c
}

// Build creates a new state machine instance with the given initial state
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !b.def.IsValid(initialState) {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	// Deep copy so machines stay independent of later builder changes
	configsCopy := make(map[State]*stateConfig)
	for state, config := range b.configurations {
		transitionsCopy := make(map[Trigger][]transition)
		for trigger, transitions := range config.transitions {
			transitionsCopy[trigger] = append([]transition{}, transitions...)
		}
		configsCopy[state] = &stateConfig{
			fromState:   state,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		currentState:   initialState,
		configurations: configsCopy,
	}
}

// State returns the current state
func (m *stateMachine) State() State {
	return m.currentState
}

// CanFire returns true if the trigger is permitted in the current state
func (m *stateMachine) CanFire(trigger Trigger) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}

	transitions, exists := config.transitions[trigger]
	return exists && len(transitions) > 0
}

// Fire attempts to execute the trigger, transitioning to the new state if allowed
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s (no configuration)", ErrInvalidTransition, trigger, m.currentState)
	}

	transitions, exists := config.transitions[trigger]
	if !exists || len(transitions) == 0 {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.currentState)
	}

	// Try each transition in order until one succeeds
	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			m.currentState = t.toState
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.currentState)
}

// PermittedTriggers returns all triggers that can be fired in the current state
func (m *stateMachine) PermittedTriggers() []Trigger {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}

	return triggers
}
