// Package world is the persistent game world: players, their quests and
// letters, and the code-defined locations they walk through.
//
// Every entity kind is cached by its own manager. Entities handed out by a
// Store know it, so Commit and Delete can be called on the entity itself.
package world

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/manager"
)

// ErrDetached is returned by Commit and Delete of an entity that was not
// created or loaded through a Store.
var ErrDetached = errors.New("world: entity is not attached to a store")

const (
	PlayerCollection   = "players"
	QuestCollection    = "quests"
	LetterCollection   = "letters"
	LocationCollection = "locations"
)

type Store struct {
	client worldstore.Client
	logf   worldstore.Logf

	Players   *manager.Manager[Player]
	Quests    *manager.Manager[Quest]
	Letters   *manager.Manager[Letter]
	Locations *manager.Manager[Location]
}

// Open wires the managers of every entity kind to client. Players and
// locations are bulk loaded before Open returns.
func Open(ctx context.Context, client worldstore.Client, logf worldstore.Logf) (*Store, error) {
	if logf == nil {
		logf = worldstore.NopLogf
	}
	s := &Store{client: client, logf: logf}

	var err error
	s.Players, err = manager.NewDocument[Player](client, PlayerCollection, PlayerClass,
		manager.WithLogger(logf),
		manager.WithAfterLoad(func(ctx context.Context, p *Player) error {
			p.store = s
			return nil
		}),
		manager.WithOnAccess(func(ctx context.Context, p *Player) {
			p.lastAccess = time.Now()
		}),
	)
	if err != nil {
		return nil, err
	}
	s.Quests, err = manager.NewDocument[Quest](client, QuestCollection, QuestClass,
		manager.WithLogger(logf),
		manager.WithReady(),
		manager.WithAfterLoad(func(ctx context.Context, q *Quest) error {
			q.store = s
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	s.Letters, err = manager.NewDocument[Letter](client, LetterCollection, LetterClass,
		manager.WithLogger(logf),
		manager.WithReady(),
		manager.WithAfterLoad(func(ctx context.Context, l *Letter) error {
			l.store = s
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	s.Locations, err = manager.NewHybrid[Location](client, LocationCollection, LocationClass, Locations, LocationClassMap,
		manager.WithLogger(logf),
		manager.WithAfterLoad(func(ctx context.Context, l *Location) error {
			l.store = s
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	if _, err := s.Players.LoadAll(ctx, true); err != nil {
		return nil, err
	}
	if _, err := s.Locations.LoadAll(ctx, true); err != nil {
		return nil, err
	}

	return s, nil
}

// NewPlayer creates and persists a player standing on the town square.
func (s *Store) NewPlayer(ctx context.Context, name string) (*Player, error) {
	p := &Player{
		ID:       uuid.NewString(),
		Name:     name,
		Level:    1,
		Gold:     playerStartGold,
		Stats:    &Stats{HP: 100, MP: 10},
		Location: "town-square",
		store:    s,
	}
	if err := p.Commit(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// NewQuest creates and persists a quest owned by owner.
func (s *Store) NewQuest(ctx context.Context, owner *Player, title string, reward int, goals ...string) (*Quest, error) {
	q := &Quest{
		ID:     uuid.NewString(),
		Owner:  owner.ID,
		Title:  title,
		Reward: reward,
		store:  s,
	}
	for _, goal := range goals {
		q.AddStep(goal)
	}
	if err := q.Commit(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

// Send writes a letter from one player to another, optionally with a
// parcel taken out of the sender's inventory.
func (s *Store) Send(ctx context.Context, from, to *Player, body string, parcel string) (*Letter, error) {
	l := &Letter{
		ID:     uuid.NewString(),
		From:   from.ID,
		To:     to.ID,
		Body:   body,
		SentAt: time.Now().UTC(),
		store:  s,
	}
	if parcel != "" {
		item, ok := from.Take(parcel)
		if !ok {
			return nil, errors.New("world: no such item in inventory")
		}
		l.Parcel = item
		if err := from.Commit(ctx); err != nil {
			return nil, err
		}
	}
	if err := l.Commit(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Move walks p through direction and updates both locations.
func (s *Store) Move(ctx context.Context, p *Player, direction string) (*Location, error) {
	from, err := s.Locations.Get(ctx, p.Location)
	if err != nil {
		return nil, err
	}
	id, ok := from.Exit(direction)
	if !ok {
		return nil, errors.New("world: no exit that way")
	}
	to, err := s.Locations.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	from.Leave(p.ID)
	to.Enter(p.ID)
	p.Location = to.ID

	if err := from.Commit(ctx); err != nil {
		return nil, err
	}
	if err := to.Commit(ctx); err != nil {
		return nil, err
	}
	if err := p.Commit(ctx); err != nil {
		return nil, err
	}
	return to, nil
}

// Flush persists every cached entity.
func (s *Store) Flush(ctx context.Context) error {
	var errs worldstore.MultiError
	if err := s.Players.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.Quests.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.Letters.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.Locations.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if len(errs) != 0 {
		return errs
	}
	return nil
}

// Close flushes and closes the underlying client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.Flush(ctx); err != nil {
		s.logf(ctx, "world.Close: flush err=%s", err.Error())
		return err
	}
	return s.client.Close()
}
