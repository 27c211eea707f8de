package world

import (
	"context"

	"go.mercari.io/worldstore/schema"
)

type Step struct {
	Goal string
	Done bool

	quest *Quest
}

// Quest returns the quest the step belongs to.
func (s *Step) Quest() *Quest { return s.quest }

type Quest struct {
	ID     string
	Owner  string
	Title  string
	Steps  []*Step
	Reward int

	store *Store
}

var StepClass = schema.MustDefine[Step]("Step",
	schema.Version(1, schema.Shape{
		"Goal": {ID: 0},
		"Done": {ID: 1},
	}),
	schema.OnDeserialize(func(ctx context.Context, instance, parent interface{}) error {
		if q, ok := parent.(*Quest); ok {
			instance.(*Step).quest = q
		}
		return nil
	}),
)

var QuestClass = schema.MustDefine[Quest]("Quest",
	schema.IDField("ID"),
	schema.Version(1, schema.Shape{
		"Owner":  {ID: 0},
		"Title":  {ID: 1},
		"Steps":  {ID: 2, Type: schema.ArrayOf(schema.Nested(StepClass))},
		"Reward": {ID: 3},
	}),
)

// AddStep appends a new open step.
func (q *Quest) AddStep(goal string) *Step {
	s := &Step{Goal: goal, quest: q}
	q.Steps = append(q.Steps, s)
	return s
}

// Complete marks the step at idx done and reports whether the whole quest
// is done.
func (q *Quest) Complete(idx int) bool {
	if 0 <= idx && idx < len(q.Steps) {
		q.Steps[idx].Done = true
	}
	return q.Done()
}

func (q *Quest) Done() bool {
	for _, s := range q.Steps {
		if !s.Done {
			return false
		}
	}
	return len(q.Steps) != 0
}

func (q *Quest) Commit(ctx context.Context) error {
	if q.store == nil {
		return ErrDetached
	}
	return q.store.Quests.Commit(ctx, q)
}

func (q *Quest) Delete(ctx context.Context) error {
	if q.store == nil {
		return ErrDetached
	}
	return q.store.Quests.Delete(ctx, q.ID)
}
