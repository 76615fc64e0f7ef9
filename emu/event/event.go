package event

/*
 * XQ - Event scheduler
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

import (
	"sync"
)

// Callback is called when the event time expires. The list lock is not
// held, so it may add or cancel events. A positive return value
// reschedules the event that many ticks later.
type Callback = func(iarg int) int

type Event struct {
	time  int      // Number of ticks to event, relative to previous.
	owner any      // Device event is registered too.
	cb    Callback // Function to callback.
	iarg  int      // Integer argument.
	prev  *Event
	next  *Event
}

type EventList struct {
	mu   sync.Mutex
	head *Event
	tail *Event
}

var el EventList

// Create an empty event list.
func NewEventList() *EventList {
	return &EventList{}
}

// Default event list.
func Default() *EventList {
	return &el
}

// Add an event to the default list.
func AddEvent(owner any, cb Callback, time int, iarg int) bool {
	return el.AddEvent(owner, cb, time, iarg)
}

// Cancel event on default list.
func CancelEvent(owner any, iarg int) {
	el.CancelEvent(owner, iarg)
}

// Advance default list.
func Advance(t int) {
	el.Advance(t)
}

// Any events on default list.
func AnyEvent() bool {
	return el.AnyEvent()
}

// Add an event, time 0 calls the callback immediately. Returns true if
// the event is waiting on the list.
func (list *EventList) AddEvent(owner any, cb Callback, time int, iarg int) bool {
	if time <= 0 {
		next := cb(iarg)
		if next <= 0 {
			return false
		}
		time = next
	}

	list.mu.Lock()
	defer list.mu.Unlock()
	list.insert(&Event{owner: owner, cb: cb, time: time, iarg: iarg})
	return true
}

func (list *EventList) insert(ev *Event) {

	evptr := list.head
	if evptr == nil {
		list.head = ev
		list.tail = ev
		return
	}

	// Scan for place to install it
	for evptr != nil {
		if ev.time <= evptr.time {
			evptr.time -= ev.time
			ev.prev = evptr.prev
			ev.next = evptr
			evptr.prev = ev
			if ev.prev != nil {
				ev.prev.next = ev
			} else {
				list.head = ev
			}
			return
		}
		// Make new event relative to this one.
		ev.time -= evptr.time
		evptr = evptr.next
	}

	ev.prev = list.tail
	list.tail.next = ev
	list.tail = ev
}

// Remove first event matching owner and iarg.
func (list *EventList) CancelEvent(owner any, iarg int) {
	list.mu.Lock()
	defer list.mu.Unlock()

	for evptr := list.head; evptr != nil; evptr = evptr.next {
		if evptr.owner != owner || evptr.iarg != iarg {
			continue
		}
		list.unlink(evptr)
		return
	}
}

// Returns true if owner has event with iarg pending.
func (list *EventList) Pending(owner any, iarg int) bool {
	list.mu.Lock()
	defer list.mu.Unlock()
	for evptr := list.head; evptr != nil; evptr = evptr.next {
		if evptr.owner == owner && evptr.iarg == iarg {
			return true
		}
	}
	return false
}

// Time left before owner event fires, -1 if none.
func (list *EventList) Remaining(owner any, iarg int) int {
	list.mu.Lock()
	defer list.mu.Unlock()
	total := 0
	for evptr := list.head; evptr != nil; evptr = evptr.next {
		total += evptr.time
		if evptr.owner == owner && evptr.iarg == iarg {
			return total
		}
	}
	return -1
}

func (list *EventList) unlink(evptr *Event) {
	nxt := evptr.next
	if nxt != nil {
		// Give time to next event.
		nxt.time += evptr.time
		nxt.prev = evptr.prev
	} else {
		list.tail = evptr.prev
	}
	if evptr.prev != nil {
		evptr.prev.next = nxt
	} else {
		list.head = nxt
	}
	evptr.prev = nil
	evptr.next = nil
}

// Advance time by t ticks and fire all expired events.
func (list *EventList) Advance(t int) {
	list.mu.Lock()
	evptr := list.head
	if evptr == nil {
		list.mu.Unlock()
		return
	}
	evptr.time -= t
	var fired []*Event
	for evptr != nil && evptr.time <= 0 {
		carry := evptr.time
		list.head = evptr.next
		if list.head != nil {
			list.head.prev = nil
			// Overshoot counts against the next event.
			list.head.time += carry
		} else {
			list.tail = nil
		}
		evptr.next = nil
		fired = append(fired, evptr)
		evptr = list.head
	}
	list.mu.Unlock()

	for _, ev := range fired {
		next := ev.cb(ev.iarg)
		if next > 0 {
			list.mu.Lock()
			ev.time = next
			ev.prev = nil
			list.insert(ev)
			list.mu.Unlock()
		}
	}
}

// Any events waiting.
func (list *EventList) AnyEvent() bool {
	list.mu.Lock()
	defer list.mu.Unlock()
	return list.head != nil
}

// Drop all events.
func (list *EventList) Clear() {
	list.mu.Lock()
	defer list.mu.Unlock()
	list.head = nil
	list.tail = nil
}
