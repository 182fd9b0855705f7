package game

import (
	"sync"
	"time"

	"github.com/lox/headsup/internal/deck"
	"github.com/lox/headsup/internal/evaluator"
)

// EventType represents a game event type with type safety
type EventType string

const (
	EventTypeHandStart    EventType = "hand_start"
	EventTypePlayerAction EventType = "player_action"
	EventTypeStreetChange EventType = "street_change"
	EventTypeShowdown     EventType = "showdown"
	EventTypeHandEnd      EventType = "hand_end"
	EventTypeHandAborted  EventType = "hand_aborted"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// GameEvent represents any event that occurs during a hand
type GameEvent interface {
	EventType() EventType
	Timestamp() time.Time
}

var now = time.Now

// SeatInfo is the public part of a player at the start of a hand.
type SeatInfo struct {
	Seat  int
	ID    string
	Name  string
	Chips int
}

// HandStartEvent is published when a new hand is dealt
type HandStartEvent struct {
	HandNumber int
	FirstToAct int
	Seats      []SeatInfo
	timestamp  time.Time
}

func (e HandStartEvent) EventType() EventType { return EventTypeHandStart }
func (e HandStartEvent) Timestamp() time.Time { return e.timestamp }

func newHandStartEvent(r *RoundState) HandStartEvent {
	seats := make([]SeatInfo, len(r.Players))
	for i, p := range r.Players {
		seats[i] = SeatInfo{Seat: p.Seat, ID: p.ID, Name: p.DisplayName(), Chips: p.Chips}
	}
	return HandStartEvent{HandNumber: r.HandNumber, FirstToAct: r.FirstToAct, Seats: seats, timestamp: now()}
}

// PlayerActionEvent is published when a player takes an action
type PlayerActionEvent struct {
	HandNumber int
	Stage      Stage
	Seat       int
	Name       string
	Opponent   string
	Requested  Action
	Action     Action
	Amount     int   // chips moved from the stack
	BetLevel   int   // current bet after the action
	Downgraded error // why Action differs from what was asked, if it does
	AllIn      bool
	PotAfter   int // total pot including open commitments
	timestamp  time.Time
}

func (e PlayerActionEvent) EventType() EventType { return EventTypePlayerAction }
func (e PlayerActionEvent) Timestamp() time.Time { return e.timestamp }

func newPlayerActionEvent(r *RoundState, p *Player, out Outcome) PlayerActionEvent {
	return PlayerActionEvent{
		HandNumber: r.HandNumber,
		Stage:      r.Stage,
		Seat:       p.Seat,
		Name:       p.DisplayName(),
		Opponent:   r.Opponent(p.Seat).DisplayName(),
		Requested:  out.Requested,
		Action:     out.Applied,
		Amount:     out.Amount,
		BetLevel:   r.CurrentBet,
		Downgraded: out.Downgraded,
		AllIn:      p.AllIn,
		PotAfter:   r.TotalPot(),
		timestamp:  now(),
	}
}

// StreetChangeEvent is published when the board advances
type StreetChangeEvent struct {
	HandNumber int
	Stage      Stage
	Community  []deck.Card
	timestamp  time.Time
}

func (e StreetChangeEvent) EventType() EventType { return EventTypeStreetChange }
func (e StreetChangeEvent) Timestamp() time.Time { return e.timestamp }

// ShownHand is one player's hand revealed at showdown.
type ShownHand struct {
	Seat int
	Name string
	Hole []deck.Card
	Rank evaluator.HandRank
}

// ShowdownEvent is published when hands are revealed
type ShowdownEvent struct {
	HandNumber int
	Hands      []ShownHand
	timestamp  time.Time
}

func (e ShowdownEvent) EventType() EventType { return EventTypeShowdown }
func (e ShowdownEvent) Timestamp() time.Time { return e.timestamp }

func newShowdownEvent(r *RoundState, ranks []evaluator.HandRank) ShowdownEvent {
	hands := make([]ShownHand, len(r.Players))
	for i, p := range r.Players {
		hands[i] = ShownHand{
			Seat: p.Seat,
			Name: p.DisplayName(),
			Hole: append([]deck.Card(nil), p.Hole...),
			Rank: ranks[i],
		}
	}
	return ShowdownEvent{HandNumber: r.HandNumber, Hands: hands, timestamp: now()}
}

// HandEndEvent is published when a hand is decided
type HandEndEvent struct {
	HandNumber int
	Result     Result
	Names      []string // display names by seat
	Stacks     []int    // chips by seat after the payout
	timestamp  time.Time
}

func (e HandEndEvent) EventType() EventType { return EventTypeHandEnd }
func (e HandEndEvent) Timestamp() time.Time { return e.timestamp }

// HandAbortedEvent is published when a hand is cancelled and refunded
type HandAbortedEvent struct {
	HandNumber int
	Cause      error
	Refunds    []int
	timestamp  time.Time
}

func (e HandAbortedEvent) EventType() EventType { return EventTypeHandAborted }
func (e HandAbortedEvent) Timestamp() time.Time { return e.timestamp }

// EventSubscriber can subscribe to game events
type EventSubscriber interface {
	OnEvent(event GameEvent)
}

// EventSubscriberFunc adapts a function to EventSubscriber.
type EventSubscriberFunc func(GameEvent)

func (f EventSubscriberFunc) OnEvent(event GameEvent) { f(event) }

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber) (unsubscribe func())
	Publish(event GameEvent)
}

// SimpleEventBus is a basic in-memory event bus implementation. Delivery is
// synchronous and in subscription order.
type SimpleEventBus struct {
	mu          sync.RWMutex
	nextID      int
	subscribers map[int]EventSubscriber
	order       []int
}

// NewEventBus creates a new event bus
func NewEventBus() *SimpleEventBus {
	return &SimpleEventBus{subscribers: make(map[int]EventSubscriber)}
}

// Subscribe adds a subscriber and returns a function that removes it.
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) func() {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	id := bus.nextID
	bus.nextID++
	bus.subscribers[id] = subscriber
	bus.order = append(bus.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			bus.mu.Lock()
			defer bus.mu.Unlock()
			delete(bus.subscribers, id)
			for i, v := range bus.order {
				if v == id {
					bus.order = append(bus.order[:i], bus.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish sends an event to all subscribers
func (bus *SimpleEventBus) Publish(event GameEvent) {
	bus.mu.RLock()
	subs := make([]EventSubscriber, 0, len(bus.order))
	for _, id := range bus.order {
		subs = append(subs, bus.subscribers[id])
	}
	bus.mu.RUnlock()

	for _, s := range subs {
		s.OnEvent(event)
	}
}

// Update is what presentation layers receive on every state change: a
// read-only snapshot and the log lines produced since the previous update.
type Update struct {
	Snapshot Snapshot
	Events   []string
	// Warning carries a non-fatal problem such as a lost sync race.
	Warning string
}

// Observer receives Updates.
type Observer interface {
	OnUpdate(Update)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Update)

func (f ObserverFunc) OnUpdate(u Update) { f(u) }

// ObserverSet is a registry of Observers notified in subscription order.
type ObserverSet struct {
	mu        sync.Mutex
	nextID    int
	observers map[int]Observer
	order     []int
}

// Subscribe adds o and returns a function that removes it.
func (s *ObserverSet) Subscribe(o Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.observers == nil {
		s.observers = make(map[int]Observer)
	}
	id := s.nextID
	s.nextID++
	s.observers[id] = o
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.observers, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Notify delivers u to every observer. The registry lock is not held while
// observers run.
func (s *ObserverSet) Notify(u Update) {
	s.mu.Lock()
	obs := make([]Observer, 0, len(s.order))
	for _, id := range s.order {
		obs = append(obs, s.observers[id])
	}
	s.mu.Unlock()

	for _, o := range obs {
		o.OnUpdate(u)
	}
}
