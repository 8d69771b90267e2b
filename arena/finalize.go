package arena

import "github.com/mpscore/mps/core"

// finalizable is an object reference registered for finalization: §4.3
// models it as an opaque reference plus the pool that owns it, since the
// arena itself never interprets object contents.
type finalizable struct {
	ref  core.Ref
	pool PoolOwner
}

// Finalize registers ref (owned by pool) for finalization. Per §4.3, a
// reference may be registered more than once; each registration produces
// an independent finalization message when the object becomes
// unreachable.
func (a *Arena) Finalize(ref core.Ref, pool PoolOwner) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.messages.Push(finalizable{ref: ref, pool: pool})
}

// Definalize cancels one registration for ref, if any remain. It returns
// true if a registration was found and removed.
func (a *Arena) Definalize(ref core.Ref) bool {
	a.lock.Lock()
	defer a.lock.Unlock()
	var target *Node
	a.messages.ForEach(func(v any) {
		if target != nil {
			return
		}
		if f, ok := v.(finalizable); ok && f.ref == ref {
			target = a.findMessageNode(f)
		}
	})
	if target == nil {
		return false
	}
	a.messages.Remove(target)
	return true
}

// findMessageNode is a small helper since Ring.ForEach hands back values,
// not nodes; finalization cancellation is rare enough that a second
// linear pass to recover the node is an acceptable cost.
func (a *Arena) findMessageNode(want finalizable) *Node {
	var found *Node
	n := a.messages.sentinel.next
	for n != &a.messages.sentinel {
		if f, ok := n.value.(finalizable); ok && f == want {
			found = n
			break
		}
		n = n.next
	}
	return found
}

// PendingFinalizations returns how many finalization registrations are
// outstanding (queued messages plus live registrations), used by the
// MessagesExist/MessagesDropped events' callers to decide whether to
// drain the queue.
func (a *Arena) PendingFinalizations() int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.messages.Len()
}
