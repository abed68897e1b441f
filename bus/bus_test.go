// bus/bus_test.go
package bus

import (
	"testing"
)

type tempReading struct{ milliC int }
type doorEvent struct{ open bool }

func TestHandlersRunInSubscriptionOrder(t *testing.T) {
	r := NewRegistry()
	var order []int
	var got []tempReading
	const n = 5
	for i := 0; i < n; i++ {
		i := i
		Subscribe(r, func(_ Source, ev tempReading) {
			order = append(order, i)
			got = append(got, ev)
		})
	}

	pub := NewPublisher[tempReading](r, "sensor")
	if !pub.Publish(tempReading{milliC: 21500}) {
		t.Fatal("publish rejected")
	}
	if len(order) != n {
		t.Fatalf("handlers called %d times, want %d", len(order), n)
	}
	for i := range order {
		if order[i] != i {
			t.Fatalf("order = %v", order)
		}
		if got[i].milliC != 21500 {
			t.Fatalf("handler %d got %+v", i, got[i])
		}
	}
}

func TestTypesAreIsolated(t *testing.T) {
	r := NewRegistry()
	var doors int
	Subscribe(r, func(_ Source, ev doorEvent) { doors++ })

	NewPublisher[tempReading](r, "sensor").Publish(tempReading{1})
	if doors != 0 {
		t.Fatalf("door handler saw a temperature event")
	}
	if For[doorEvent](r) != For[doorEvent](r) {
		t.Fatal("For returned distinct brokers for the same type")
	}
}

func TestHandlerSeesPublisherIdentity(t *testing.T) {
	r := NewRegistry()
	var from []Source
	Subscribe(r, func(src Source, _ doorEvent) { from = append(from, src) })

	front := NewPublisher[doorEvent](r, "front")
	back := NewPublisher[doorEvent](r, "back")
	front.Publish(doorEvent{true})
	back.Publish(doorEvent{false})

	if len(from) != 2 || from[0] != front.Source() || from[1] != back.Source() {
		t.Fatalf("sources = %+v", from)
	}
	if from[0].ID == from[1].ID {
		t.Fatal("publishers share an identity")
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	r := NewRegistry()
	if !NewPublisher[doorEvent](r, "x").Publish(doorEvent{}) {
		t.Fatal("publish to empty broker rejected")
	}
}

func TestReentrantPublishIsRejected(t *testing.T) {
	r := NewRegistry()
	pub := NewPublisher[doorEvent](r, "loop")
	var calls int
	var nested bool
	Subscribe(r, func(_ Source, ev doorEvent) {
		calls++
		nested = pub.Publish(doorEvent{open: !ev.open})
	})

	if !pub.Publish(doorEvent{open: true}) {
		t.Fatal("outer publish rejected")
	}
	if calls != 1 || nested {
		t.Fatalf("calls=%d nested accepted=%v", calls, nested)
	}
	if For[doorEvent](r).Rejected() != 1 {
		t.Fatalf("rejected = %d", For[doorEvent](r).Rejected())
	}
	// The guard is released once dispatch completes.
	if !pub.Publish(doorEvent{}) || calls != 2 {
		t.Fatalf("second publish: calls=%d", calls)
	}
}

func TestPublishIntoOtherTypeFromHandler(t *testing.T) {
	r := NewRegistry()
	temps := NewPublisher[tempReading](r, "bridge")
	var seen int
	Subscribe(r, func(_ Source, ev tempReading) { seen = ev.milliC })
	Subscribe(r, func(_ Source, ev doorEvent) { temps.Publish(tempReading{7}) })

	NewPublisher[doorEvent](r, "door").Publish(doorEvent{true})
	if seen != 7 {
		t.Fatalf("cross-type publish from handler not delivered: %d", seen)
	}
}

func TestSubscribeDuringDispatchTakesEffectNextTime(t *testing.T) {
	r := NewRegistry()
	var late int
	once := false
	Subscribe(r, func(_ Source, _ doorEvent) {
		if !once {
			once = true
			Subscribe(r, func(_ Source, _ doorEvent) { late++ })
		}
	})
	pub := NewPublisher[doorEvent](r, "d")
	pub.Publish(doorEvent{})
	if late != 0 {
		t.Fatal("handler added mid-dispatch ran in the same dispatch")
	}
	pub.Publish(doorEvent{})
	if late != 1 || For[doorEvent](r).Len() != 2 {
		t.Fatalf("late=%d len=%d", late, For[doorEvent](r).Len())
	}
}
