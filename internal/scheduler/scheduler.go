// Package scheduler — планировщик именованных таймеров: одноразовые и
// периодические задания, исполняемые одной диспетчерской горутиной.
package scheduler

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"
)

// TimerID identifies a scheduled event.
type TimerID int64

// Callback runs when a timer fires. now — момент срабатывания, arg —
// произвольное число, которое задали при постановке.
type Callback func(id TimerID, now time.Time, arg int64)

type event struct {
	id       TimerID
	at       time.Time
	interval time.Duration // 0 — одноразовый
	name     string
	arg      int64
	index    int // позиция в куче
	removed  bool
}

type eventHeap []*event

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h eventHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *eventHeap) Push(x any) { e := x.(*event); e.index = len(*h); *h = append(*h, e) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Scheduler dispatches named timers from a single goroutine.
type Scheduler struct {
	mu        sync.Mutex
	callbacks map[string]Callback
	events    eventHeap
	byID      map[TimerID]*event
	nextID    TimerID
	wake      chan struct{}
	log       *slog.Logger
}

// New builds an empty scheduler.
func New(log *slog.Logger) *Scheduler {
	return &Scheduler{
		callbacks: make(map[string]Callback),
		byID:      make(map[TimerID]*event),
		nextID:    1,
		wake:      make(chan struct{}, 1),
		log:       log,
	}
}

// Register binds a callback to a name. Повторная регистрация того же имени
// заменяет обработчик.
func (s *Scheduler) Register(name string, cb Callback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks[name] = cb
}

// Once schedules a one-shot event after the delay.
func (s *Scheduler) Once(delay time.Duration, name string, arg int64) TimerID {
	return s.add(time.Now().Add(delay), 0, name, arg)
}

// Interval schedules a repeating event; the first fire is one interval out.
func (s *Scheduler) Interval(interval time.Duration, name string, arg int64) TimerID {
	return s.add(time.Now().Add(interval), interval, name, arg)
}

// Cancel drops a pending event. Безопасно для уже сработавших id.
func (s *Scheduler) Cancel(id TimerID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.byID[id]; ok {
		e.removed = true
		delete(s.byID, id)
	}
}

func (s *Scheduler) add(at time.Time, interval time.Duration, name string, arg int64) TimerID {
	s.mu.Lock()
	e := &event{id: s.nextID, at: at, interval: interval, name: name, arg: arg}
	s.nextID++
	heap.Push(&s.events, e)
	s.byID[e.id] = e
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return e.id
}

// Run dispatches events until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		var wait time.Duration = time.Hour
		if len(s.events) > 0 {
			wait = time.Until(s.events[0].at)
			if wait < 0 {
				wait = 0
			}
		}
		s.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
		case <-timer.C:
			s.fireDue()
		}
	}
}

func (s *Scheduler) fireDue() {
	now := time.Now()
	for {
		s.mu.Lock()
		if len(s.events) == 0 || s.events[0].at.After(now) {
			s.mu.Unlock()
			return
		}
		e := heap.Pop(&s.events).(*event)
		if e.removed {
			s.mu.Unlock()
			continue
		}
		cb := s.callbacks[e.name]
		if e.interval > 0 {
			e.at = now.Add(e.interval)
			heap.Push(&s.events, e)
		} else {
			delete(s.byID, e.id)
		}
		s.mu.Unlock()

		if cb == nil {
			s.log.Warn("timer fired with no registered callback", "name", e.name)
			continue
		}
		cb(e.id, now, e.arg)
	}
}
