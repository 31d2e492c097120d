package domain

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession() *Session {
	return NewSession("test", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

func activeTopics(s *Session) []Topic {
	var out []Topic
	for _, t := range s.Topics {
		if t.Status == TopicActive {
			out = append(out, t)
		}
	}
	return out
}

func assertExclusive(t *testing.T, s *Session) {
	t.Helper()
	active := activeTopics(s)
	require.LessOrEqual(t, len(active), 1, "more than one active topic")
	if s.CurrentTopicID != "" {
		require.Len(t, active, 1, "current topic set but nothing active")
		assert.Equal(t, active[0].ID, s.CurrentTopicID)
	}
}

func TestApplyTopicUpdates_FirstMessageCreatesActiveTopic(t *testing.T) {
	s := newTestSession()

	s.ApplyTopicUpdates(TopicUpdates{CurrentTopic: &TopicRef{Title: "Trip to Japan"}})

	require.Len(t, s.Topics, 1)
	cur := s.CurrentTopic()
	require.NotNil(t, cur)
	assert.Equal(t, "Trip to Japan", cur.Title)
	assert.Equal(t, TopicActive, cur.Status)
	assert.Equal(t, []string{}, cur.Questions)
}

func TestApplyTopicUpdates_SameTitleIsNotATransition(t *testing.T) {
	s := newTestSession()
	s.ApplyTopicUpdates(TopicUpdates{CurrentTopic: &TopicRef{Title: "Trip to Japan"}})
	id := s.CurrentTopicID

	s.ApplyTopicUpdates(TopicUpdates{CurrentTopic: &TopicRef{Title: "Trip to Japan"}})

	require.Len(t, s.Topics, 1)
	assert.Equal(t, id, s.CurrentTopicID)
}

func TestApplyTopicUpdates_TitleChangeDemotesOldTopic(t *testing.T) {
	s := newTestSession()
	s.ApplyTopicUpdates(TopicUpdates{CurrentTopic: &TopicRef{Title: "Trip to Japan"}})
	oldID := s.CurrentTopicID

	s.ApplyTopicUpdates(TopicUpdates{CurrentTopic: &TopicRef{Title: "Learning Japanese"}})

	require.Len(t, s.Topics, 2)
	assert.NotEqual(t, oldID, s.CurrentTopicID)
	assert.Equal(t, "Learning Japanese", s.CurrentTopic().Title)
	backlog := s.BacklogTopics()
	require.Len(t, backlog, 1)
	assert.Equal(t, oldID, backlog[0].ID)
	assertExclusive(t, s)
}

func TestApplyTopicUpdates_EmptyTitleKeepsCurrent(t *testing.T) {
	s := newTestSession()
	s.ApplyTopicUpdates(TopicUpdates{CurrentTopic: &TopicRef{Title: "Trip to Japan"}})

	s.ApplyTopicUpdates(TopicUpdates{CurrentTopic: &TopicRef{Title: "  "}})

	require.Len(t, s.Topics, 1)
	assert.Equal(t, "Trip to Japan", s.CurrentTopic().Title)
}

func TestApplyTopicUpdates_EmptyTitleWithoutCurrentUsesDefault(t *testing.T) {
	s := newTestSession()

	s.ApplyTopicUpdates(TopicUpdates{CurrentTopic: &TopicRef{}})

	require.NotNil(t, s.CurrentTopic())
	assert.Equal(t, UntitledCurrentTopic, s.CurrentTopic().Title)
}

func TestApplyTopicUpdates_NewTopicsGoToBacklog(t *testing.T) {
	s := newTestSession()

	s.ApplyTopicUpdates(TopicUpdates{
		CurrentTopic: &TopicRef{Title: "Trip to Japan"},
		NewTopics:    []Topic{{Title: "Food"}, {Title: "Budget"}},
	})

	require.Len(t, s.Topics, 3)
	assert.Equal(t, "Trip to Japan", s.CurrentTopic().Title)
	backlog := s.BacklogTopics()
	require.Len(t, backlog, 2)
	assert.Equal(t, "Budget", backlog[0].Title)
	assert.Equal(t, "Food", backlog[1].Title)
}

func TestApplyTopicUpdates_DeduplicatesCaseInsensitively(t *testing.T) {
	s := newTestSession()
	s.ApplyTopicUpdates(TopicUpdates{
		CurrentTopic: &TopicRef{Title: "Trip to Japan"},
		NewTopics:    []Topic{{Title: "Food"}},
	})

	s.ApplyTopicUpdates(TopicUpdates{
		CurrentTopic: &TopicRef{Title: "Trip to Japan"},
		NewTopics:    []Topic{{Title: "FOOD"}, {Title: "trip to japan"}, {Title: "Budget"}, {Title: "budget"}},
	})

	titles := map[string]int{}
	for _, tp := range s.Topics {
		titles[strings.ToLower(tp.Title)]++
	}
	assert.Equal(t, map[string]int{"trip to japan": 1, "food": 1, "budget": 1}, titles)
}

func TestApplyTopicUpdates_FirstQualifyingNewTopicBecomesActive(t *testing.T) {
	s := newTestSession()
	_, err := s.AddTopic("Food")
	require.NoError(t, err)

	s.ApplyTopicUpdates(TopicUpdates{
		NewTopics: []Topic{{Title: "food"}, {Title: "Budget"}, {Title: "Packing"}},
	})

	cur := s.CurrentTopic()
	require.NotNil(t, cur)
	assert.Equal(t, "Budget", cur.Title)
	assert.Len(t, s.BacklogTopics(), 2)
	assertExclusive(t, s)
}

func TestApplyTopicUpdates_NewTopicStatusIsAlwaysBacklog(t *testing.T) {
	s := newTestSession()
	s.ApplyTopicUpdates(TopicUpdates{CurrentTopic: &TopicRef{Title: "Trip"}})

	s.ApplyTopicUpdates(TopicUpdates{NewTopics: []Topic{{Title: "Other", Status: TopicActive}}})

	assertExclusive(t, s)
	assert.Equal(t, "Trip", s.CurrentTopic().Title)
}

func TestApplyTopicUpdates_TransitionResumesBacklogTopic(t *testing.T) {
	s := newTestSession()
	s.ApplyTopicUpdates(TopicUpdates{
		CurrentTopic: &TopicRef{Title: "Trip"},
		NewTopics:    []Topic{{Title: "Food", Questions: []string{"Favourite dish?"}}},
	})
	tripID := s.CurrentTopicID
	food := s.BacklogTopics()[0]

	s.ApplyTopicUpdates(TopicUpdates{CurrentTopic: &TopicRef{Title: "food"}})

	require.Len(t, s.Topics, 2)
	assert.Equal(t, food.ID, s.CurrentTopicID)
	assert.Equal(t, "Food", s.CurrentTopic().Title)
	assert.Equal(t, []string{"Favourite dish?"}, s.CurrentTopic().Questions)
	backlog := s.BacklogTopics()
	require.Len(t, backlog, 1)
	assert.Equal(t, tripID, backlog[0].ID)
	assertExclusive(t, s)
}

func TestApplyTopicUpdates_TransitionNeverReopensCompletedTopic(t *testing.T) {
	s := newTestSession()
	s.ApplyTopicUpdates(TopicUpdates{CurrentTopic: &TopicRef{Title: "Food"}})
	foodID := s.CurrentTopicID
	require.NoError(t, s.CompleteTopic(foodID))
	s.ApplyTopicUpdates(TopicUpdates{CurrentTopic: &TopicRef{Title: "Trip"}})

	s.ApplyTopicUpdates(TopicUpdates{CurrentTopic: &TopicRef{Title: "Food"}})

	require.Len(t, s.Topics, 3)
	assert.NotEqual(t, foodID, s.CurrentTopicID)
	assert.Equal(t, "Food", s.CurrentTopic().Title)
	assert.Len(t, s.CompletedTopics(), 1)
	assertExclusive(t, s)
}

func TestApplyTopicUpdates_RandomSequencesKeepExclusivity(t *testing.T) {
	titles := []string{"Trip", "trip", "Food", "Budget", "Work", "", "Family"}
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		s := newTestSession()
		for step := 0; step < 30; step++ {
			var u TopicUpdates
			if rng.Intn(3) > 0 {
				u.CurrentTopic = &TopicRef{Title: titles[rng.Intn(len(titles))]}
			}
			for n := rng.Intn(3); n > 0; n-- {
				u.NewTopics = append(u.NewTopics, Topic{Title: titles[rng.Intn(len(titles))]})
			}
			s.ApplyTopicUpdates(u)

			switch rng.Intn(6) {
			case 0:
				if len(s.Topics) > 0 {
					_ = s.CompleteTopic(s.Topics[rng.Intn(len(s.Topics))].ID)
				}
			case 1:
				if len(s.Topics) > 0 {
					_ = s.SetCurrentTopic(s.Topics[rng.Intn(len(s.Topics))].ID)
				}
			}
			assertExclusive(t, s)
		}
	}
}

func TestSetCurrentTopic(t *testing.T) {
	s := newTestSession()
	s.ApplyTopicUpdates(TopicUpdates{
		CurrentTopic: &TopicRef{Title: "Trip"},
		NewTopics:    []Topic{{Title: "Food"}},
	})
	food := s.BacklogTopics()[0]

	require.NoError(t, s.SetCurrentTopic(food.ID))

	assert.Equal(t, food.ID, s.CurrentTopicID)
	assertExclusive(t, s)
	assert.ErrorIs(t, s.SetCurrentTopic("missing"), ErrNotFound)
}

func TestCompleteTopicIsTerminal(t *testing.T) {
	s := newTestSession()
	s.ApplyTopicUpdates(TopicUpdates{CurrentTopic: &TopicRef{Title: "Trip"}})
	id := s.CurrentTopicID

	require.NoError(t, s.CompleteTopic(id))

	assert.Empty(t, s.CurrentTopicID)
	assert.Nil(t, s.CurrentTopic())
	assert.Len(t, s.CompletedTopics(), 1)
	assert.ErrorIs(t, s.SetCurrentTopic(id), ErrInvalidInput)
}

func TestAddTopic(t *testing.T) {
	s := newTestSession()

	first, err := s.AddTopic("Food")
	require.NoError(t, err)
	again, err := s.AddTopic("food ")
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, s.Topics, 1)
	_, err = s.AddTopic(" ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAppendMessageAndTagging(t *testing.T) {
	s := newTestSession()
	now := time.Now()
	user := s.AppendMessage(RoleUser, "I want to write about my trip to Japan.", now)
	assert.Empty(t, user.TopicID)

	s.ApplyTopicUpdates(TopicUpdates{CurrentTopic: &TopicRef{Title: "Trip to Japan"}})
	reply := s.AppendMessage(RoleAssistant, "Tell me more.", now)
	s.TagUntagged(user.ID, reply.ID)

	for _, m := range s.Messages {
		assert.Equal(t, s.CurrentTopicID, m.TopicID)
	}
}

func TestMessagesForTopic(t *testing.T) {
	msgs := []Message{
		{ID: "1", Content: "a", TopicID: "t1"},
		{ID: "2", Content: "b", TopicID: "t2"},
		{ID: "3", Content: "c", TopicID: "t1"},
	}
	got := MessagesForTopic(msgs, "t1")
	require.Len(t, got, 2)
	assert.Equal(t, MessageID("3"), got[1].ID)

	untagged := []Message{{ID: "1"}, {ID: "2"}}
	assert.Len(t, MessagesForTopic(untagged, "t1"), 2)
}

func TestSessionValidate(t *testing.T) {
	s := newTestSession()
	s.ApplyTopicUpdates(TopicUpdates{
		CurrentTopic: &TopicRef{Title: "Trip to Japan"},
		NewTopics:    []Topic{{Title: "Food"}},
	})
	assert.NoError(t, s.Validate())

	broken := s.Clone()
	broken.Topics[1].Status = TopicActive
	assert.ErrorIs(t, broken.Validate(), ErrInvalidInput)

	broken = s.Clone()
	broken.CurrentTopicID = broken.Topics[1].ID
	assert.ErrorIs(t, broken.Validate(), ErrInvalidInput)

	broken = s.Clone()
	broken.Topics[1].ID = broken.Topics[0].ID
	assert.ErrorIs(t, broken.Validate(), ErrInvalidInput)

	broken = s.Clone()
	broken.AppendMessage("system", "hi", time.Unix(0, 0))
	assert.ErrorIs(t, broken.Validate(), ErrInvalidInput)

	broken = s.Clone()
	broken.ID = "../x"
	assert.ErrorIs(t, broken.Validate(), ErrInvalidInput)
}
