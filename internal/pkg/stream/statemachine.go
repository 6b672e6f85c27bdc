package stream

import (
	"fmt"

	"k8s.io/klog/v2"
)

// Phase 流处理阶段
type Phase string

const (
	// Reframer 阶段
	PhaseAwaitingFirstByte Phase = "awaiting_first_byte"
	PhaseRelaying          Phase = "relaying"
	PhaseTerminated        Phase = "terminated"

	// Consumer 阶段
	PhaseIdle      Phase = "idle"
	PhaseStreaming Phase = "streaming"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

type transition struct {
	From Phase
	To   Phase
}

// phaseMachine 只允许预先声明的迁移
type phaseMachine struct {
	name               string
	current            Phase
	allowedTransitions map[transition]bool
}

func newPhaseMachine(name string, initial Phase, transitions []transition) *phaseMachine {
	m := &phaseMachine{
		name:               name,
		current:            initial,
		allowedTransitions: make(map[transition]bool, len(transitions)),
	}
	for _, t := range transitions {
		m.allowedTransitions[t] = true
	}
	return m
}

// reframer: awaiting_first_byte -> relaying -> terminated
// awaiting_first_byte -> terminated（info 之前就被取消）
func newReframerMachine() *phaseMachine {
	return newPhaseMachine("reframer", PhaseAwaitingFirstByte, []transition{
		{PhaseAwaitingFirstByte, PhaseRelaying},
		{PhaseAwaitingFirstByte, PhaseTerminated},
		{PhaseRelaying, PhaseTerminated},
	})
}

// consumer: idle -> streaming -> succeeded/failed
func newConsumerMachine() *phaseMachine {
	return newPhaseMachine("consumer", PhaseIdle, []transition{
		{PhaseIdle, PhaseStreaming},
		{PhaseStreaming, PhaseSucceeded},
		{PhaseStreaming, PhaseFailed},
	})
}

func (m *phaseMachine) Current() Phase {
	return m.current
}

func (m *phaseMachine) CanTransition(to Phase) bool {
	if m.current == to {
		return false
	}
	return m.allowedTransitions[transition{From: m.current, To: to}]
}

// Transition 执行迁移，非法迁移返回 InvalidStateTransitionError
func (m *phaseMachine) Transition(to Phase) error {
	if !m.CanTransition(to) {
		err := &InvalidStateTransitionError{Machine: m.name, From: m.current, To: to}
		klog.V(6).Infof("状态迁移被拒绝: %v", err)
		return err
	}
	klog.V(6).Infof("%s 状态迁移: %s -> %s", m.name, m.current, to)
	m.current = to
	return nil
}

// InvalidStateTransitionError 无效的状态迁移错误
type InvalidStateTransitionError struct {
	Machine string
	From    Phase
	To      Phase
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition: %s -> %s", e.Machine, e.From, e.To)
}
