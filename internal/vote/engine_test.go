package vote

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folkout/folkout/internal/apperr"
	"github.com/folkout/folkout/internal/election"
	"github.com/folkout/folkout/internal/models"
	"github.com/folkout/folkout/internal/storage/sqlite"
)

type scheduled struct {
	id string
	at time.Time
}

type fakeScheduler struct {
	mu    sync.Mutex
	armed []scheduled
}

func (f *fakeScheduler) Schedule(id string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = append(f.armed, scheduled{id, at})
}

type fakeAssets struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeAssets) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, path)
	return nil
}

type harness struct {
	engine    *Engine
	store     *sqlite.SQLiteStore
	election  *election.Service
	scheduler *fakeScheduler
	assets    *fakeAssets
	members   []*models.Member
	dbPath    string
}

// newHarness creates n members in one group. members[0] is made the
// group's representative.
func newHarness(t *testing.T, n int) *harness {
	t.Helper()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := sqlite.New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := &harness{
		dbPath:    dbPath,
		store:     store,
		election:  election.NewService(store, nil),
		scheduler: &fakeScheduler{},
		assets:    &fakeAssets{},
	}
	h.engine = NewEngine(store, h.scheduler, h.election, WithAssets(h.assets))

	for range n {
		m, err := store.CreateMember(ctx, models.GroupCapacity, "hash")
		require.NoError(t, err)
		h.members = append(h.members, m)
	}
	_, err = h.election.CastBallot(ctx, h.members[0].GroupID, h.members[0].ID, h.members[0].ID)
	require.NoError(t, err)
	return h
}

// setIcon writes an icon path directly; icon uploads have no API here.
func setIcon(t *testing.T, dbPath string, memberID int64, icon string) {
	t.Helper()

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("UPDATE members SET icon = ? WHERE id = ?", icon, memberID)
	require.NoError(t, err)
}

func (h *harness) rep() *models.Member { return h.members[0] }

func (h *harness) propose(t *testing.T, target *models.Member) string {
	t.Helper()
	id, err := h.engine.CreateProposal(context.Background(), CreateInput{
		GroupID:     h.rep().GroupID,
		InitiatorID: h.rep().ID,
		Kind:        models.KindExpel,
		Reason:      "off-topic",
		TargetID:    target.ID,
	})
	require.NoError(t, err)
	return id
}

func (h *harness) vote(t *testing.T, id string, m *models.Member, c models.Choice) models.Tally {
	t.Helper()
	tally, err := h.engine.CastBallot(context.Background(), id, m.ID, m.GroupID, c)
	require.NoError(t, err)
	return tally
}

func TestCreateProposal(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults the deadline to three days", func(t *testing.T) {
		h := newHarness(t, 2)
		before := time.Now()
		id := h.propose(t, h.members[1])

		p, err := h.store.GetProposal(ctx, id)
		require.NoError(t, err)
		assert.False(t, p.Resolved)
		assert.Equal(t, "off-topic", p.Reason)

		want := before.Add(72 * time.Hour)
		assert.GreaterOrEqual(t, p.Deadline, want.Unix()-1)
		assert.LessOrEqual(t, p.Deadline, want.Unix()+5)

		require.Len(t, h.scheduler.armed, 1)
		assert.Equal(t, id, h.scheduler.armed[0].id)
		assert.Equal(t, p.Deadline, h.scheduler.armed[0].at.Unix())
	})

	t.Run("uses an explicit deadline", func(t *testing.T) {
		h := newHarness(t, 2)
		deadline := time.Now().Add(time.Hour).Truncate(time.Second)
		id, err := h.engine.CreateProposal(ctx, CreateInput{
			GroupID: h.rep().GroupID, InitiatorID: h.rep().ID, Kind: models.KindExpel,
			Reason: "x", Deadline: &deadline, TargetID: h.members[1].ID,
		})
		require.NoError(t, err)

		p, err := h.store.GetProposal(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, deadline.Unix(), p.Deadline)
	})

	t.Run("validates before touching the store", func(t *testing.T) {
		h := newHarness(t, 2)
		past := time.Now().Add(-time.Minute)

		cases := map[string]CreateInput{
			"empty reason":   {Kind: models.KindExpel, Reason: "  ", TargetID: h.members[1].ID},
			"markup only":    {Kind: models.KindExpel, Reason: "<script>x</script>", TargetID: h.members[1].ID},
			"missing target": {Kind: models.KindExpel, Reason: "x"},
			"unknown kind":   {Kind: "rename", Reason: "x", TargetID: h.members[1].ID},
			"past deadline":  {Kind: models.KindExpel, Reason: "x", TargetID: h.members[1].ID, Deadline: &past},
		}
		for name, in := range cases {
			t.Run(name, func(t *testing.T) {
				in.GroupID, in.InitiatorID = h.rep().GroupID, h.rep().ID
				_, err := h.engine.CreateProposal(ctx, in)
				assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
			})
		}
		assert.Empty(t, h.scheduler.armed)
	})

	t.Run("requires the representative", func(t *testing.T) {
		h := newHarness(t, 3)
		_, err := h.engine.CreateProposal(ctx, CreateInput{
			GroupID: h.members[1].GroupID, InitiatorID: h.members[1].ID,
			Kind: models.KindExpel, Reason: "x", TargetID: h.members[2].ID,
		})
		assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	})

	t.Run("allows one open proposal per group", func(t *testing.T) {
		h := newHarness(t, 3)
		h.propose(t, h.members[1])

		_, err := h.engine.CreateProposal(ctx, CreateInput{
			GroupID: h.rep().GroupID, InitiatorID: h.rep().ID,
			Kind: models.KindExpel, Reason: "x", TargetID: h.members[2].ID,
		})
		assert.True(t, apperr.Is(err, apperr.KindConflict))
	})
}

func TestCastBallot(t *testing.T) {
	ctx := context.Background()

	t.Run("a second ballot replaces the first", func(t *testing.T) {
		h := newHarness(t, 2)
		id := h.propose(t, h.members[1])

		assert.Equal(t, models.Tally{Yes: 1}, h.vote(t, id, h.members[0], models.ChoiceYes))
		assert.Equal(t, models.Tally{No: 1}, h.vote(t, id, h.members[0], models.ChoiceNo))

		tally, err := h.engine.Tally(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.Tally{Yes: 0, No: 1}, tally)
	})

	t.Run("concurrent ballots from one member leave one ballot", func(t *testing.T) {
		h := newHarness(t, 2)
		id := h.propose(t, h.members[1])

		var wg sync.WaitGroup
		for i := range 10 {
			choice := models.ChoiceYes
			if i%2 == 1 {
				choice = models.ChoiceNo
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := h.engine.CastBallot(ctx, id, h.members[0].ID, h.members[0].GroupID, choice)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		tally, err := h.engine.Tally(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, tally.Yes+tally.No)
	})

	t.Run("rejects bad choices, other groups and closed proposals", func(t *testing.T) {
		h := newHarness(t, 2)
		id := h.propose(t, h.members[1])
		m := h.members[1]

		_, err := h.engine.CastBallot(ctx, id, m.ID, m.GroupID, "maybe")
		assert.True(t, apperr.Is(err, apperr.KindValidation))

		_, err = h.engine.CastBallot(ctx, id, m.ID, m.GroupID+1, models.ChoiceYes)
		assert.True(t, apperr.Is(err, apperr.KindAuthorization))

		_, err = h.engine.CastBallot(ctx, "missing", m.ID, m.GroupID, models.ChoiceYes)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))

		_, err = h.engine.Resolve(ctx, id)
		require.NoError(t, err)
		_, err = h.engine.CastBallot(ctx, id, m.ID, m.GroupID, models.ChoiceYes)
		assert.True(t, apperr.Is(err, apperr.KindConflict))
	})

	t.Run("an expelled member cannot vote with a stale identity", func(t *testing.T) {
		h := newHarness(t, 3)
		expelled := h.members[2]

		id := h.propose(t, expelled)
		h.vote(t, id, h.members[0], models.ChoiceYes)
		h.vote(t, id, h.members[1], models.ChoiceYes)
		res, err := h.engine.Resolve(ctx, id)
		require.NoError(t, err)
		require.True(t, res.TargetRemoved)

		next := h.propose(t, h.members[1])
		_, err = h.engine.CastBallot(ctx, next, expelled.ID, expelled.GroupID, models.ChoiceNo)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.KindAuthorization), "got %v", err)

		tally, err := h.engine.Tally(ctx, next)
		require.NoError(t, err)
		assert.Equal(t, models.Tally{}, tally)
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("passing vote expels the target", func(t *testing.T) {
		h := newHarness(t, 8)
		target := h.members[7]
		other := h.members[1]

		post := &models.Post{GroupID: target.GroupID, MemberID: target.ID, Body: "spam"}
		require.NoError(t, h.store.CreatePost(ctx, post))
		require.NoError(t, h.store.CreatePostComment(ctx, &models.PostComment{PostID: post.ID, MemberID: target.ID, Body: "more"}))
		_, err := h.election.CastBallot(ctx, target.GroupID, other.ID, target.ID)
		require.NoError(t, err)

		id := h.propose(t, target)
		_, err = h.engine.AddComment(ctx, id, target.ID, target.GroupID, "please no")
		require.NoError(t, err)

		for i, m := range h.members[:7] {
			choice := models.ChoiceYes
			if i >= 5 {
				choice = models.ChoiceNo
			}
			h.vote(t, id, m, choice)
		}

		res, err := h.engine.Resolve(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomePass, res.Outcome)
		assert.Equal(t, models.Tally{Yes: 5, No: 2}, res.Tally)
		assert.True(t, res.TargetRemoved)

		_, err = h.store.GetMember(ctx, target.ID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
		fp, err := h.store.MemberFootprint(ctx, target.ID)
		require.NoError(t, err)
		assert.True(t, fp.Empty(), "footprint left behind: %+v", fp)

		history, err := h.engine.ListHistory(ctx, target.GroupID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, 5, history[0].Yes)
		assert.Equal(t, 2, history[0].No)
		assert.True(t, history[0].Resolved)
		assert.Equal(t, target.Nickname, history[0].TargetName)
	})

	t.Run("tie keeps the target", func(t *testing.T) {
		h := newHarness(t, 5)
		target := h.members[4]
		id := h.propose(t, target)

		h.vote(t, id, h.members[0], models.ChoiceYes)
		h.vote(t, id, h.members[1], models.ChoiceYes)
		h.vote(t, id, h.members[2], models.ChoiceNo)
		h.vote(t, id, h.members[3], models.ChoiceNo)

		res, err := h.engine.Resolve(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeFail, res.Outcome)
		assert.False(t, res.TargetRemoved)

		_, err = h.store.GetMember(ctx, target.ID)
		assert.NoError(t, err)

		history, err := h.engine.ListHistory(ctx, target.GroupID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.True(t, history[0].Resolved)
	})

	t.Run("resolving twice records one history entry", func(t *testing.T) {
		h := newHarness(t, 2)
		id := h.propose(t, h.members[1])

		first, err := h.engine.Resolve(ctx, id)
		require.NoError(t, err)
		assert.False(t, first.Skipped)

		second, err := h.engine.Resolve(ctx, id)
		require.NoError(t, err)
		assert.True(t, second.Skipped)

		history, err := h.engine.ListHistory(ctx, h.rep().GroupID)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("concurrent resolves run the cascade once", func(t *testing.T) {
		h := newHarness(t, 3)
		target := h.members[2]
		id := h.propose(t, target)
		h.vote(t, id, h.members[0], models.ChoiceYes)

		var wg sync.WaitGroup
		var mu sync.Mutex
		removed := 0
		for range 6 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := h.engine.Resolve(ctx, id)
				if !assert.NoError(t, err) {
					return
				}
				if res.TargetRemoved {
					mu.Lock()
					removed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, removed)
		history, err := h.engine.ListHistory(ctx, h.rep().GroupID)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("outcome needs strictly more yes than no", func(t *testing.T) {
		for _, tc := range []struct {
			yes, no int
			want    models.Outcome
		}{
			{0, 0, models.OutcomeFail},
			{3, 3, models.OutcomeFail},
			{4, 3, models.OutcomePass},
			{1, 0, models.OutcomePass},
		} {
			h := newHarness(t, tc.yes+tc.no+1)
			target := h.members[len(h.members)-1]
			id := h.propose(t, target)
			for i := range tc.yes + tc.no {
				choice := models.ChoiceYes
				if i >= tc.yes {
					choice = models.ChoiceNo
				}
				h.vote(t, id, h.members[i], choice)
			}

			res, err := h.engine.Resolve(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Outcome, "%d yes / %d no", tc.yes, tc.no)
		}
	})

	t.Run("expelled member's icon is deleted", func(t *testing.T) {
		h := newHarness(t, 2)
		target := h.members[1]
		setIcon(t, h.dbPath, target.ID, "/uploads/t.png")

		id := h.propose(t, target)
		h.vote(t, id, h.rep(), models.ChoiceYes)

		_, err := h.engine.Resolve(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"/uploads/t.png"}, h.assets.deleted)
	})
}

func TestResolveEarly(t *testing.T) {
	ctx := context.Background()

	t.Run("representative closes with a new reason", func(t *testing.T) {
		h := newHarness(t, 3)
		id := h.propose(t, h.members[2])

		res, err := h.engine.ResolveEarly(ctx, ResolveInput{
			ProposalID: id, CallerID: h.rep().ID, CallerGroupID: h.rep().GroupID, Reason: "settled",
		})
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeFail, res.Outcome)

		history, err := h.engine.ListHistory(ctx, h.rep().GroupID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "settled", history[0].Reason)
		assert.Equal(t, h.rep().Nickname, history[0].RepresentativeName)
	})

	t.Run("checks caller and overrides", func(t *testing.T) {
		h := newHarness(t, 3)
		id := h.propose(t, h.members[2])

		_, err := h.engine.ResolveEarly(ctx, ResolveInput{
			ProposalID: id, CallerID: h.members[1].ID, CallerGroupID: h.members[1].GroupID,
		})
		assert.True(t, apperr.Is(err, apperr.KindAuthorization))

		_, err = h.engine.ResolveEarly(ctx, ResolveInput{
			ProposalID: id, CallerID: h.rep().ID, CallerGroupID: h.rep().GroupID + 1,
		})
		assert.True(t, apperr.Is(err, apperr.KindAuthorization))

		_, err = h.engine.ResolveEarly(ctx, ResolveInput{
			ProposalID: id, CallerID: h.rep().ID, CallerGroupID: h.rep().GroupID, TargetID: h.members[1].ID,
		})
		assert.True(t, apperr.Is(err, apperr.KindValidation))

		_, err = h.engine.ResolveEarly(ctx, ResolveInput{
			ProposalID: "missing", CallerID: h.rep().ID, CallerGroupID: h.rep().GroupID,
		})
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func TestDeleteProposal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 3)
	id := h.propose(t, h.members[2])

	err := h.engine.DeleteProposal(ctx, id, h.members[1].ID, h.members[1].GroupID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	require.NoError(t, h.engine.DeleteProposal(ctx, id, h.rep().ID, h.rep().GroupID))

	summaries, err := h.engine.ListProposals(ctx, h.rep().GroupID)
	require.NoError(t, err)
	assert.Empty(t, summaries)

	// The slot is free again.
	h.propose(t, h.members[2])
}

func TestComments(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 2)
	id := h.propose(t, h.members[1])

	c, err := h.engine.AddComment(ctx, id, h.members[1].ID, h.members[1].GroupID, " <i>why</i> me ")
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.NotZero(t, c.CreatedAt)
	assert.Equal(t, "why me", c.Body)
	assert.Equal(t, h.members[1].Nickname, c.Nickname)

	_, err = h.engine.AddComment(ctx, id, h.members[1].ID, h.members[1].GroupID, "   ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = h.engine.AddComment(ctx, "missing", h.members[1].ID, h.members[1].GroupID, "x")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = h.engine.AddComment(ctx, id, h.members[1].ID, h.members[1].GroupID+1, "x")
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	comments, err := h.engine.ListComments(ctx, id, h.rep().GroupID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, c.ID, comments[0].ID)
}
