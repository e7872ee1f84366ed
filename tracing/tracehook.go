package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/eeesim/p2p"
	"github.com/sarchlab/eeesim/p2p/coalescing"
	"github.com/sarchlab/eeesim/sim/hooking"
)

// NamedHookable represent something both have a name and can be hooked
type NamedHookable interface {
	hooking.Hookable
	Name() string
}

type stateful interface {
	State() coalescing.State
}

// CollectTrace let the tracer to collect trace from a domain. Frame tasks
// start when the device accepts a frame and end when the frame leaves the
// wire or is dropped. A state task is open for the current coalescing state
// at all times.
func CollectTrace(domain NamedHookable, tracer Tracer) {
	hooks := domain.Hooks()
	for _, hook := range hooks {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	h := &traceHook{t: tracer, where: domain.Name()}
	domain.AcceptHook(h)

	if s, ok := domain.(stateful); ok {
		h.startState(s.State())
	}
}

// A traceHook is a hook that traces tasks
type traceHook struct {
	t     Tracer
	where string

	stateSeq  uint64
	stateTask string
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case coalescing.HookPosMacTx:
		f := ctx.Item.(*p2p.Frame)
		h.t.StartTask(Task{
			ID:     h.frameTaskID(f),
			Kind:   KindFrame,
			What:   "transmit",
			Where:  h.where,
			Detail: f,
		})
	case coalescing.HookPosPhyTxBegin:
		h.t.StepTask(Task{
			ID:    h.frameTaskID(ctx.Item.(*p2p.Frame)),
			Steps: []TaskStep{{What: "tx_begin"}},
		})
	case coalescing.HookPosPhyTxEnd, coalescing.HookPosMacTxDrop:
		h.t.EndTask(Task{ID: h.frameTaskID(ctx.Item.(*p2p.Frame))})
	case coalescing.HookPosStateChange:
		tr := ctx.Item.(coalescing.Transition)
		h.t.EndTask(Task{ID: h.stateTask})
		h.startState(tr.To)
	}
}

func (h *traceHook) frameTaskID(f *p2p.Frame) string {
	return h.where + ".frame." + f.ID
}

func (h *traceHook) startState(s coalescing.State) {
	h.stateSeq++
	h.stateTask = fmt.Sprintf("%s.state.%d", h.where, h.stateSeq)

	h.t.StartTask(Task{
		ID:    h.stateTask,
		Kind:  KindState,
		What:  s.String(),
		Where: h.where,
	})
}
