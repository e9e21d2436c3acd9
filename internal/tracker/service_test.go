package tracker

import (
	"context"
	"math"
	"testing"
	"time"

	"ap-tracker/internal/clock"
	"ap-tracker/internal/models"
	"ap-tracker/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ServiceTestSuite runs the rule engine against an in-memory database.
type ServiceTestSuite struct {
	suite.Suite
	ctx   context.Context
	db    *storage.DB
	clock *clock.FakeClock
	loc   *time.Location
	svc   *Service
	user  *models.User
}

// wednesdayNoon is a Wednesday; 2025-03-08 is the following Saturday.
func (suite *ServiceTestSuite) wednesdayNoon() time.Time {
	return time.Date(2025, time.March, 5, 12, 0, 0, 0, suite.loc)
}

// SetupTest runs before each test
func (suite *ServiceTestSuite) SetupTest() {
	db, err := storage.NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
	suite.ctx = context.Background()
	suite.loc = time.FixedZone("UTC-5", -5*3600)
	suite.clock = clock.Fake(suite.wednesdayNoon())
	suite.svc = NewService(db, WithClock(suite.clock), WithLocation(suite.loc))

	user, err := suite.svc.RegisterUser(suite.ctx, "tester", "hash")
	require.NoError(suite.T(), err, "failed to register test user")
	suite.user = user
}

// TearDownTest runs after each test
func (suite *ServiceTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *ServiceTestSuite) earn(ap int) {
	_, err := suite.svc.CreateCustomEarn(suite.ctx, suite.user.ID, "test earn", models.CategoryBase, ap)
	require.NoError(suite.T(), err)
}

func (suite *ServiceTestSuite) activeQuest(name string) *models.Quest {
	q, err := suite.svc.CreateQuest(suite.ctx, suite.user.ID, name)
	require.NoError(suite.T(), err)
	q, err = suite.svc.SetActiveQuest(suite.ctx, suite.user.ID, q.ID)
	require.NoError(suite.T(), err)
	return q
}

func (suite *ServiceTestSuite) balance() int {
	b, err := suite.svc.Balance(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	return b
}

func (suite *ServiceTestSuite) quest(id int64) *models.Quest {
	q, err := suite.db.GetQuest(suite.ctx, suite.user.ID, id)
	require.NoError(suite.T(), err)
	return q
}

func (suite *ServiceTestSuite) updateSettings(mut func(in *SettingsInput)) {
	s, err := suite.svc.GetSettings(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	in := SettingsInput{
		SaturdayLockEnabled: s.SaturdayLockEnabled,
		SaturdayUnlockTime:  s.SaturdayUnlockTime,
		DailyEarnCap:        s.DailyEarnCap,
		UnlockNetAPToday:    s.UnlockNetAPToday,
	}
	mut(&in)
	_, err = suite.svc.UpdateSettings(suite.ctx, suite.user.ID, in)
	require.NoError(suite.T(), err)
}

func (suite *ServiceTestSuite) requireValidation(err error, contains string) {
	require.Error(suite.T(), err)
	assert.True(suite.T(), IsValidation(err), "expected validation error, got %v", err)
	assert.Contains(suite.T(), err.Error(), contains)
}

func (suite *ServiceTestSuite) TestRegisterUserCreatesDefaults() {
	settings, err := suite.svc.GetSettings(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), settings.SaturdayLockEnabled)
	assert.Equal(suite.T(), "10:30", settings.SaturdayUnlockTime.String())
	assert.Equal(suite.T(), 65, settings.DailyEarnCap)
	assert.Equal(suite.T(), 15, settings.UnlockNetAPToday)

	presets, err := suite.db.ListPresets(suite.ctx, suite.user.ID, false)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), presets, len(DefaultPresets))
	assert.Equal(suite.T(), "Dog walk before phone", presets[0].Label)
	assert.Equal(suite.T(), "Savings transfer", presets[len(presets)-1].Label)

	// Initializing again must not duplicate anything.
	require.NoError(suite.T(), suite.svc.InitializeUser(suite.ctx, suite.user.ID))
	n, err := suite.db.CountPresets(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), len(DefaultPresets), n)
}

func (suite *ServiceTestSuite) TestRegisterDuplicateUser() {
	_, err := suite.svc.RegisterUser(suite.ctx, "tester", "hash")
	suite.requireValidation(err, "already exists")

	count, err := suite.db.UserCount(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func (suite *ServiceTestSuite) TestTotalsWindowAndKinds() {
	// Yesterday's earn is outside today's window but inside the week and balance.
	suite.clock.Set(suite.wednesdayNoon().AddDate(0, 0, -1))
	suite.earn(20)

	suite.clock.Set(suite.wednesdayNoon())
	suite.earn(15)
	suite.activeQuest("Dragon Slayer")
	_, err := suite.svc.SpendAP(suite.ctx, suite.user.ID, 10)
	require.NoError(suite.T(), err)

	today, err := suite.svc.TodayTotals(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.Totals{Earned: 15, Spent: 10, Net: 5}, today)

	week, err := suite.svc.WeekTotals(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.Totals{Earned: 35, Spent: 10, Net: 25}, week)

	assert.Equal(suite.T(), 25, suite.balance())

	// Next Monday starts a new week; the balance is not windowed.
	suite.clock.Set(time.Date(2025, time.March, 10, 8, 0, 0, 0, suite.loc))
	week, err = suite.svc.WeekTotals(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.Totals{}, week)
	assert.Equal(suite.T(), 25, suite.balance())
}

func (suite *ServiceTestSuite) TestDailyCapNeverExceeded() {
	presets, err := suite.db.ListPresets(suite.ctx, suite.user.ID, true)
	require.NoError(suite.T(), err)

	// Earn every preset repeatedly; writes past the cap must be rejected.
	rejected := 0
	for round := 0; round < 3; round++ {
		for _, p := range presets {
			_, err := suite.svc.EarnFromPreset(suite.ctx, suite.user.ID, p.ID)
			if err != nil {
				suite.requireValidation(err, "Daily AP cap reached")
				rejected++
			}
			today, err := suite.svc.TodayTotals(suite.ctx, suite.user.ID)
			require.NoError(suite.T(), err)
			assert.LessOrEqual(suite.T(), today.Earned, 65)
		}
	}
	assert.Positive(suite.T(), rejected)

	// The cap resets at local midnight.
	suite.clock.Set(time.Date(2025, time.March, 6, 0, 0, 1, 0, suite.loc))
	ok, err := suite.svc.CanEarn(suite.ctx, suite.user.ID, 65)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
}

func (suite *ServiceTestSuite) TestCapReachedExactly() {
	suite.earn(60)
	ok, err := suite.svc.CanEarn(suite.ctx, suite.user.ID, 5)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	suite.earn(5)
	_, err = suite.svc.CreateCustomEarn(suite.ctx, suite.user.ID, "one more", models.CategoryHealth, 1)
	suite.requireValidation(err, "Daily AP cap reached")
}

func (suite *ServiceTestSuite) TestOversizedEarnRejected() {
	suite.earn(5)

	_, err := suite.svc.CreateCustomEarn(suite.ctx, suite.user.ID, "jackpot", models.CategoryBase, math.MaxInt-2)
	suite.requireValidation(err, "AP cannot exceed 1000")
	_, err = suite.svc.CreatePreset(suite.ctx, suite.user.ID, PresetInput{
		Label: "jackpot", Category: models.CategoryBase, AP: math.MaxInt,
	})
	suite.requireValidation(err, "AP cannot exceed 1000")

	ok, err := suite.svc.CanEarn(suite.ctx, suite.user.ID, math.MaxInt)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)

	// A raised cap still bounds a single entry.
	suite.updateSettings(func(in *SettingsInput) { in.DailyEarnCap = 1_000_000 })
	_, err = suite.svc.CreateCustomEarn(suite.ctx, suite.user.ID, "jackpot", models.CategoryBase, MaxEarnAP+1)
	suite.requireValidation(err, "AP cannot exceed 1000")

	today, err := suite.svc.TodayTotals(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.Totals{Earned: 5, Net: 5}, today)
	assert.Equal(suite.T(), 5, suite.balance())
	st, err := suite.svc.Status(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 5, st.Balance)
}

func (suite *ServiceTestSuite) TestEarnFromPreset() {
	presets, err := suite.db.ListPresets(suite.ctx, suite.user.ID, true)
	require.NoError(suite.T(), err)
	p := presets[0]

	entry, err := suite.svc.EarnFromPreset(suite.ctx, suite.user.ID, p.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.KindEarn, entry.Kind)
	assert.Equal(suite.T(), p.Label, entry.Label)
	assert.Equal(suite.T(), p.Category, entry.Category)
	assert.Equal(suite.T(), p.AP, entry.AP)

	_, err = suite.svc.EarnFromPreset(suite.ctx, suite.user.ID, 99999)
	suite.requireValidation(err, "Preset not found")
}

func (suite *ServiceTestSuite) TestCustomEarnValidation() {
	_, err := suite.svc.CreateCustomEarn(suite.ctx, suite.user.ID, "  ", models.CategoryBase, 5)
	suite.requireValidation(err, "Label is required")

	_, err = suite.svc.CreateCustomEarn(suite.ctx, suite.user.ID, "Read", models.CategoryBase, 0)
	suite.requireValidation(err, "positive")

	_, err = suite.svc.CreateCustomEarn(suite.ctx, suite.user.ID, "Read", models.CategoryOSRS, 5)
	suite.requireValidation(err, "valid category")
}

func (suite *ServiceTestSuite) TestSpendRequiresActiveQuest() {
	suite.earn(10)
	_, err := suite.svc.SpendAP(suite.ctx, suite.user.ID, 10)
	suite.requireValidation(err, "Select an active quest")
	assert.Equal(suite.T(), 10, suite.balance())
}

func (suite *ServiceTestSuite) TestSpendInvalidCost() {
	suite.earn(30)
	suite.activeQuest("Dragon Slayer")
	_, err := suite.svc.SpendAP(suite.ctx, suite.user.ID, 12)
	suite.requireValidation(err, "invalid cost")
	assert.Equal(suite.T(), 30, suite.balance())
}

func (suite *ServiceTestSuite) TestUnlockThreshold() {
	suite.updateSettings(func(in *SettingsInput) { in.UnlockNetAPToday = 15 })
	suite.earn(10)

	unlocked, err := suite.svc.IsUnlockedToday(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), unlocked)

	suite.activeQuest("Dragon Slayer")
	_, err = suite.svc.SpendAP(suite.ctx, suite.user.ID, 10)
	suite.requireValidation(err, "unlock threshold")

	suite.earn(5)
	unlocked, err = suite.svc.IsUnlockedToday(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), unlocked)
}

func (suite *ServiceTestSuite) TestInsufficientBalance() {
	suite.updateSettings(func(in *SettingsInput) { in.UnlockNetAPToday = 0 })
	suite.earn(15)
	suite.activeQuest("Dragon Slayer")

	_, err := suite.svc.SpendAP(suite.ctx, suite.user.ID, 18)
	suite.requireValidation(err, "Insufficient AP balance")
	assert.Equal(suite.T(), 15, suite.balance())
}

func (suite *ServiceTestSuite) TestSaturdayLock() {
	suite.updateSettings(func(in *SettingsInput) {
		in.SaturdayLockEnabled = true
		in.SaturdayUnlockTime = models.TimeOfDay(10*60 + 30)
	})

	suite.clock.Set(time.Date(2025, time.March, 8, 9, 0, 0, 0, suite.loc))
	suite.earn(30)
	q := suite.activeQuest("Dragon Slayer")

	locked, err := suite.svc.IsSaturdayLockedNow(suite.ctx, suite.user.ID, suite.clock.Now())
	require.NoError(suite.T(), err)
	assert.True(suite.T(), locked)

	_, err = suite.svc.SpendAP(suite.ctx, suite.user.ID, 10)
	suite.requireValidation(err, "Saturday unlock time")
	assert.Equal(suite.T(), 30, suite.balance())

	suite.clock.Set(time.Date(2025, time.March, 8, 10, 31, 0, 0, suite.loc))
	quest, err := suite.svc.SpendAP(suite.ctx, suite.user.ID, 10)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), q.ID, quest.ID)
	assert.Equal(suite.T(), 30, quest.MinutesLogged)
	assert.Equal(suite.T(), 20, suite.balance())
}

func (suite *ServiceTestSuite) TestSpendThenUndoRestoresState() {
	suite.earn(40)
	q := suite.activeQuest("Dragon Slayer")

	for _, cost := range []int{10, 18, 30} {
		beforeBalance := suite.balance()
		beforeMinutes := suite.quest(q.ID).MinutesLogged

		if beforeBalance < cost {
			continue
		}
		_, err := suite.svc.SpendAP(suite.ctx, suite.user.ID, cost)
		require.NoError(suite.T(), err, "spend %d", cost)

		minutes, _ := MinutesFor(cost)
		assert.Equal(suite.T(), beforeBalance-cost, suite.balance())
		assert.Equal(suite.T(), beforeMinutes+minutes, suite.quest(q.ID).MinutesLogged)

		undone, err := suite.svc.UndoLastSpend(suite.ctx, suite.user.ID)
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), cost, undone.AP)

		assert.Equal(suite.T(), beforeBalance, suite.balance())
		assert.Equal(suite.T(), beforeMinutes, suite.quest(q.ID).MinutesLogged)
	}
}

func (suite *ServiceTestSuite) TestUndoRemovesMostRecentSpend() {
	suite.earn(50)
	first := suite.activeQuest("Dragon Slayer")
	_, err := suite.svc.SpendAP(suite.ctx, suite.user.ID, 10)
	require.NoError(suite.T(), err)

	suite.clock.Advance(time.Minute)
	second := suite.activeQuest("Monkey Madness")
	_, err = suite.svc.SpendAP(suite.ctx, suite.user.ID, 18)
	require.NoError(suite.T(), err)

	_, err = suite.svc.UndoLastSpend(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, suite.quest(second.ID).MinutesLogged)
	assert.Equal(suite.T(), 30, suite.quest(first.ID).MinutesLogged)
	assert.Equal(suite.T(), 40, suite.balance())
}

func (suite *ServiceTestSuite) TestUndoFloorsMinutesAtZero() {
	suite.earn(20)
	q := suite.activeQuest("Dragon Slayer")
	_, err := suite.svc.SpendAP(suite.ctx, suite.user.ID, 10)
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.db.AddQuestMinutes(suite.ctx, suite.user.ID, q.ID, -20))
	assert.Equal(suite.T(), 10, suite.quest(q.ID).MinutesLogged)

	_, err = suite.svc.UndoLastSpend(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, suite.quest(q.ID).MinutesLogged)
}

func (suite *ServiceTestSuite) TestUndoWithoutSpend() {
	suite.earn(10)
	_, err := suite.svc.UndoLastSpend(suite.ctx, suite.user.ID)
	suite.requireValidation(err, "No spend entries to undo")
	assert.Equal(suite.T(), 10, suite.balance())
}

func (suite *ServiceTestSuite) TestSingleActiveQuest() {
	var ids []int64
	for _, name := range []string{"A", "B", "C"} {
		q, err := suite.svc.CreateQuest(suite.ctx, suite.user.ID, name)
		require.NoError(suite.T(), err)
		ids = append(ids, q.ID)
	}

	for _, id := range []int64{ids[0], ids[1], ids[2], ids[0]} {
		_, err := suite.svc.SetActiveQuest(suite.ctx, suite.user.ID, id)
		require.NoError(suite.T(), err)

		quests, err := suite.db.ListQuests(suite.ctx, suite.user.ID)
		require.NoError(suite.T(), err)
		active := 0
		for _, q := range quests {
			if q.Status == models.QuestActive {
				active++
				assert.Equal(suite.T(), id, q.ID)
			}
		}
		assert.Equal(suite.T(), 1, active)
	}
	assert.Equal(suite.T(), models.QuestNotStarted, suite.quest(ids[1]).Status)

	_, err := suite.svc.SetActiveQuest(suite.ctx, suite.user.ID, 4242)
	suite.requireValidation(err, "Quest not found")
}

func (suite *ServiceTestSuite) TestCompleteQuest() {
	q := suite.activeQuest("Dragon Slayer")

	done, err := suite.svc.MarkQuestComplete(suite.ctx, suite.user.ID, q.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.QuestCompleted, done.Status)

	entries, err := suite.db.ListEntries(suite.ctx, suite.user.ID, 0)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), entries, 1)
	assert.Equal(suite.T(), models.KindQuestComplete, entries[0].Kind)
	assert.Equal(suite.T(), 0, entries[0].AP)
	require.NotNil(suite.T(), entries[0].QuestID)
	assert.Equal(suite.T(), q.ID, *entries[0].QuestID)
	assert.Equal(suite.T(), "Dragon Slayer", entries[0].QuestName)

	_, err = suite.svc.SetActiveQuest(suite.ctx, suite.user.ID, q.ID)
	suite.requireValidation(err, "Completed quests cannot be set active")

	_, err = suite.svc.MarkQuestComplete(suite.ctx, suite.user.ID, 4242)
	suite.requireValidation(err, "Quest not found")
}

func (suite *ServiceTestSuite) TestQuestManagement() {
	q, err := suite.svc.CreateQuest(suite.ctx, suite.user.ID, "Dragon Slayer")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.QuestNotStarted, q.Status)

	_, err = suite.svc.CreateQuest(suite.ctx, suite.user.ID, "Dragon Slayer")
	suite.requireValidation(err, "Quest name must be unique")

	_, err = suite.svc.CreateQuest(suite.ctx, suite.user.ID, " ")
	suite.requireValidation(err, "Quest name is required")

	require.NoError(suite.T(), suite.svc.UpdateQuestNotes(suite.ctx, suite.user.ID, q.ID, "Need anti-dragon shield"))
	assert.Equal(suite.T(), "Need anti-dragon shield", suite.quest(q.ID).Notes)

	err = suite.svc.UpdateQuestNotes(suite.ctx, suite.user.ID, 4242, "x")
	suite.requireValidation(err, "Quest not found")
}

func (suite *ServiceTestSuite) TestDeleteQuestKeepsEntries() {
	suite.earn(20)
	q := suite.activeQuest("Dragon Slayer")
	_, err := suite.svc.SpendAP(suite.ctx, suite.user.ID, 10)
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.svc.DeleteQuest(suite.ctx, suite.user.ID, q.ID))

	spend, err := suite.db.LatestSpend(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), spend.QuestID)
	assert.Equal(suite.T(), 10, suite.balance())

	// Undo still works once the quest is gone.
	_, err = suite.svc.UndoLastSpend(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 20, suite.balance())
}

func (suite *ServiceTestSuite) TestPresetManagement() {
	p, err := suite.svc.CreatePreset(suite.ctx, suite.user.ID, PresetInput{
		Label: "Read 20 pages", Category: models.CategoryCareer, AP: 4,
	})
	require.NoError(suite.T(), err)
	assert.True(suite.T(), p.IsActive)
	assert.Equal(suite.T(), 130, p.SortOrder)

	_, err = suite.svc.CreatePreset(suite.ctx, suite.user.ID, PresetInput{
		Label: "Read 20 pages", Category: models.CategoryCareer, AP: 4,
	})
	suite.requireValidation(err, "Preset label must be unique")

	toggled, err := suite.svc.TogglePreset(suite.ctx, suite.user.ID, p.ID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), toggled.IsActive)

	active, err := suite.db.ListPresets(suite.ctx, suite.user.ID, true)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), active, len(DefaultPresets))

	require.NoError(suite.T(), suite.svc.DeletePreset(suite.ctx, suite.user.ID, p.ID))
	err = suite.svc.DeletePreset(suite.ctx, suite.user.ID, p.ID)
	suite.requireValidation(err, "Preset not found")
}

func (suite *ServiceTestSuite) TestMovePreset() {
	presets, err := suite.db.ListPresets(suite.ctx, suite.user.ID, false)
	require.NoError(suite.T(), err)
	first, second := presets[0], presets[1]
	last := presets[len(presets)-1]

	// First preset upward is a no-op.
	require.NoError(suite.T(), suite.svc.MovePreset(suite.ctx, suite.user.ID, first.ID, Up))
	got, err := suite.db.ListPresets(suite.ctx, suite.user.ID, false)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), presets, got)

	// Last preset downward is a no-op.
	require.NoError(suite.T(), suite.svc.MovePreset(suite.ctx, suite.user.ID, last.ID, Down))

	// Moving the second preset up swaps sort orders exactly with the first.
	require.NoError(suite.T(), suite.svc.MovePreset(suite.ctx, suite.user.ID, second.ID, Up))
	movedSecond, err := suite.db.GetPreset(suite.ctx, suite.user.ID, second.ID)
	require.NoError(suite.T(), err)
	movedFirst, err := suite.db.GetPreset(suite.ctx, suite.user.ID, first.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), first.SortOrder, movedSecond.SortOrder)
	assert.Equal(suite.T(), second.SortOrder, movedFirst.SortOrder)

	got, err = suite.db.ListPresets(suite.ctx, suite.user.ID, false)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), second.ID, got[0].ID)
	assert.Equal(suite.T(), first.ID, got[1].ID)

	err = suite.svc.MovePreset(suite.ctx, suite.user.ID, 4242, Up)
	suite.requireValidation(err, "Preset not found")
}

func (suite *ServiceTestSuite) TestMovePresetWithTiedOrders() {
	presets, err := suite.db.ListPresets(suite.ctx, suite.user.ID, false)
	require.NoError(suite.T(), err)
	for _, p := range presets {
		require.NoError(suite.T(), suite.db.SetPresetSortOrder(suite.ctx, suite.user.ID, p.ID, 0))
	}
	tied, err := suite.db.ListPresets(suite.ctx, suite.user.ID, false)
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.svc.MovePreset(suite.ctx, suite.user.ID, tied[1].ID, Up))

	got, err := suite.db.ListPresets(suite.ctx, suite.user.ID, false)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), tied[1].ID, got[0].ID)
	assert.Equal(suite.T(), tied[0].ID, got[1].ID)
	assert.Equal(suite.T(), 10, got[0].SortOrder)
	assert.Equal(suite.T(), 20, got[1].SortOrder)
}

func (suite *ServiceTestSuite) TestUpdateSettingsValidation() {
	_, err := suite.svc.UpdateSettings(suite.ctx, suite.user.ID, SettingsInput{DailyEarnCap: -1})
	suite.requireValidation(err, "cannot be negative")

	_, err = suite.svc.UpdateSettings(suite.ctx, suite.user.ID, SettingsInput{UnlockNetAPToday: -1})
	suite.requireValidation(err, "cannot be negative")

	updated, err := suite.svc.UpdateSettings(suite.ctx, suite.user.ID, SettingsInput{
		SaturdayLockEnabled: true,
		SaturdayUnlockTime:  models.TimeOfDay(9 * 60),
		DailyEarnCap:        80,
		UnlockNetAPToday:    20,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 80, updated.DailyEarnCap)

	stored, err := suite.svc.GetSettings(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), stored.SaturdayLockEnabled)
	assert.Equal(suite.T(), "09:00", stored.SaturdayUnlockTime.String())
	assert.Equal(suite.T(), 20, stored.UnlockNetAPToday)
}

func (suite *ServiceTestSuite) TestStatus() {
	st, err := suite.svc.Status(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), st.ActiveQuest)
	assert.False(suite.T(), st.CanSpend())
	assert.Equal(suite.T(), 65, st.RemainingEarn())
	assert.Zero(suite.T(), st.QuestsTotal)
	for _, opt := range st.SpendOptions {
		assert.False(suite.T(), opt.Enabled)
	}

	suite.earn(20)
	suite.activeQuest("Dragon Slayer")
	st, err = suite.svc.Status(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), st.ActiveQuest)
	assert.True(suite.T(), st.CanSpend())
	assert.Equal(suite.T(), 20, st.Balance)
	assert.Equal(suite.T(), 45, st.RemainingEarn())
	assert.Equal(suite.T(), 1, st.QuestsTotal)
	assert.Zero(suite.T(), st.QuestsCompleted)
	require.Len(suite.T(), st.SpendOptions, 3)
	assert.True(suite.T(), st.SpendOptions[0].Enabled)
	assert.True(suite.T(), st.SpendOptions[1].Enabled)
	assert.False(suite.T(), st.SpendOptions[2].Enabled)
	assert.Equal(suite.T(), suite.loc, st.Now.Location())

	_, err = suite.svc.MarkQuestComplete(suite.ctx, suite.user.ID, st.ActiveQuest.ID)
	require.NoError(suite.T(), err)
	st, err = suite.svc.Status(suite.ctx, suite.user.ID)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), st.ActiveQuest)
	assert.Equal(suite.T(), 1, st.QuestsCompleted)
}

func (suite *ServiceTestSuite) TestCategoryTotals() {
	suite.earn(10)
	_, err := suite.svc.CreateCustomEarn(suite.ctx, suite.user.ID, "Run", models.CategoryHealth, 12)
	require.NoError(suite.T(), err)
	_, err = suite.svc.CreateCustomEarn(suite.ctx, suite.user.ID, "Walk", models.CategoryHealth, 3)
	require.NoError(suite.T(), err)

	totals, err := suite.svc.CategoryTotals(suite.ctx, suite.user.ID, 2025, time.March)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), totals, 2)
	assert.Equal(suite.T(), models.CategoryTotal{Category: models.CategoryHealth, Total: 15, Count: 2}, totals[0])
	assert.Equal(suite.T(), models.CategoryTotal{Category: models.CategoryBase, Total: 10, Count: 1}, totals[1])

	entries, err := suite.svc.MonthEntries(suite.ctx, suite.user.ID, 2025, time.March)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), entries, 3)

	totals, err = suite.svc.CategoryTotals(suite.ctx, suite.user.ID, 2025, time.February)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), totals)
}

func (suite *ServiceTestSuite) TestExport() {
	suite.earn(20)
	q := suite.activeQuest("Dragon Slayer")
	_, err := suite.svc.SpendAP(suite.ctx, suite.user.ID, 10)
	require.NoError(suite.T(), err)

	export, err := suite.svc.Export(suite.ctx, suite.user)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "tester", export.User)
	assert.True(suite.T(), suite.wednesdayNoon().Equal(export.ExportedAt))
	assert.Equal(suite.T(), 10, export.Balance)
	assert.Equal(suite.T(), 65, export.Settings.DailyEarnCap)
	assert.Len(suite.T(), export.Presets, len(DefaultPresets))
	require.Len(suite.T(), export.Quests, 1)
	assert.Equal(suite.T(), 30, export.Quests[0].MinutesLogged)
	require.Len(suite.T(), export.Entries, 2)
	assert.Equal(suite.T(), models.KindSpend, export.Entries[0].Kind)
	assert.Equal(suite.T(), q.ID, *export.Entries[0].QuestID)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
