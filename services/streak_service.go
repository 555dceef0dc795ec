package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Hopium-Future/hackathon-be/models"
	"github.com/Hopium-Future/hackathon-be/utils"
)

const (
	streakTrackKey        = "task:streak:track"
	dailyClaimedKeyPrefix = "task:streak:claimed:"
	maxStreak             = 7
	firstStreakCode       = "DS1"

	// Credited-today sets live three days so the daily reset can look back
	// two days and the hard reset three.
	dailyClaimedTTL = 3 * 24 * time.Hour
)

// StreakService maintains the rolling 1-7 day check-in cycle: a per-user
// counter hash plus a per-day credited set in the TrackStore, and the
// DAILY_STREAK user task rows in the database.
type StreakService struct {
	db    *gorm.DB
	store utils.TrackStore
	now   func() time.Time
}

// NewStreakService wires the tracker over the shared store.
func NewStreakService(db *gorm.DB, store utils.TrackStore) *StreakService {
	return &StreakService{db: db, store: store, now: time.Now}
}

func dayKey(t time.Time) string {
	return dailyClaimedKeyPrefix + t.UTC().Format("2006-01-02")
}

// CurrentStreak returns the stored consecutive check-in count for a user.
func (s *StreakService) CurrentStreak(ctx context.Context, userID uint) (int, error) {
	v, err := s.store.HGet(ctx, streakTrackKey, formatUserID(userID))
	if err != nil {
		return 0, errors.Wrap(err, "read streak counter")
	}
	n, _ := strconv.Atoi(v)
	return n, nil
}

// ActiveStreakStep is the streak step the user is working toward today:
// current+1, wrapping back to 1 after a full 7 day cycle.
func (s *StreakService) ActiveStreakStep(ctx context.Context, userID uint) (int, error) {
	cur, err := s.CurrentStreak(ctx, userID)
	if err != nil {
		return 0, err
	}
	if cur >= maxStreak {
		return 1, nil
	}
	return cur + 1, nil
}

// CreditedOn lists the users credited on the given day.
func (s *StreakService) CreditedOn(ctx context.Context, day time.Time) ([]uint, error) {
	members, err := s.store.SMembers(ctx, dayKey(day))
	if err != nil {
		return nil, errors.Wrap(err, "read credited set")
	}
	out := make([]uint, 0, len(members))
	for _, m := range members {
		if n, err := strconv.ParseUint(m, 10, 64); err == nil {
			out = append(out, uint(n))
		}
	}
	return out, nil
}

// IsCreditedToday reports whether the user's check-in already counted today.
func (s *StreakService) IsCreditedToday(ctx context.Context, userID uint) (bool, error) {
	users, err := s.CreditedOn(ctx, s.now())
	if err != nil {
		return false, err
	}
	for _, id := range users {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// CreditCheckIn advances the user's streak by one step. Calling it more
// than once per day is a no-op. After a full 7-day cycle the streak wraps
// to 1 and every streak task except the first is pushed back to LOCKED.
// The next step's user task row becomes CLAIMABLE.
func (s *StreakService) CreditCheckIn(ctx context.Context, userID uint) error {
	credited, err := s.IsCreditedToday(ctx, userID)
	if err != nil {
		return err
	}
	if credited {
		return nil
	}

	cur, err := s.CurrentStreak(ctx, userID)
	if err != nil {
		return err
	}

	next := cur + 1
	if next > maxStreak {
		next = 1
		if err := s.resetStreakTasks(ctx, []uint{userID}); err != nil {
			return err
		}
	}

	var task models.Task
	err = s.db.WithContext(ctx).
		Where("type = ? AND code = ?", models.TypeDailyStreak, fmt.Sprintf("DS%d", next)).
		First(&task).Error
	if err != nil {
		return errors.Wrapf(err, "find streak task DS%d", next)
	}

	if err := upsertUserTaskStatus(s.db.WithContext(ctx), userID, &task, models.StatusClaimable); err != nil {
		return err
	}

	todayKey := dayKey(s.now())
	if err := s.store.SAdd(ctx, todayKey, formatUserID(userID)); err != nil {
		return errors.Wrap(err, "mark credited today")
	}
	if err := s.store.Expire(ctx, todayKey, dailyClaimedTTL); err != nil {
		utils.Sugar.Warnf("set credited set ttl: %v", err)
	}
	if err := s.store.HSet(ctx, streakTrackKey, formatUserID(userID), strconv.Itoa(next)); err != nil {
		return errors.Wrap(err, "persist streak counter")
	}
	return nil
}

// ResetStaleUsers runs right after midnight UTC. Users credited yesterday
// get their next streak step pre-activated as AVAILABLE; users credited two
// days ago but not yesterday stopped checking in, so their counter is
// zeroed and their streak tasks fall back to LOCKED with step one AVAILABLE.
// Failures are isolated per user so one bad record cannot abort the batch.
func (s *StreakService) ResetStaleUsers(ctx context.Context) error {
	now := s.now()
	oneDayAgo, err := s.CreditedOn(ctx, now.AddDate(0, 0, -1))
	if err != nil {
		return err
	}
	twoDaysAgo, err := s.CreditedOn(ctx, now.AddDate(0, 0, -2))
	if err != nil {
		return err
	}

	for _, userID := range oneDayAgo {
		if err := s.activateNextStep(ctx, userID); err != nil {
			utils.Sugar.Errorf("activate next streak step user=%d: %v", userID, err)
		}
	}

	yesterday := map[uint]struct{}{}
	for _, id := range oneDayAgo {
		yesterday[id] = struct{}{}
	}
	var stale []uint
	for _, id := range twoDaysAgo {
		if _, ok := yesterday[id]; !ok {
			stale = append(stale, id)
		}
	}

	if len(stale) == 0 {
		return nil
	}

	for _, userID := range stale {
		if err := s.store.HSet(ctx, streakTrackKey, formatUserID(userID), "0"); err != nil {
			utils.Sugar.Errorf("zero streak counter user=%d: %v", userID, err)
		}
	}

	return s.resetStreakTasks(ctx, stale)
}

// HardReset reconciles counters against a 3-day activity window: any user
// holding a streak counter without activity in the last three lookback days
// loses the counter and falls back to step one. Returns the number of
// reset users.
func (s *StreakService) HardReset(ctx context.Context) (int, error) {
	now := s.now()
	var active []uint
	for offset := 0; offset >= -2; offset-- {
		ids, err := s.CreditedOn(ctx, now.AddDate(0, 0, offset))
		if err != nil {
			return 0, err
		}
		active = append(active, ids...)
	}
	active = utils.UniqueUint(active)

	activeSet := map[uint]struct{}{}
	for _, id := range active {
		activeSet[id] = struct{}{}
	}

	fields, err := s.store.HKeys(ctx, streakTrackKey)
	if err != nil {
		return 0, errors.Wrap(err, "list streak counters")
	}

	var reset []uint
	for _, field := range fields {
		n, err := strconv.ParseUint(field, 10, 64)
		if err != nil {
			continue
		}
		userID := uint(n)
		if _, ok := activeSet[userID]; ok {
			continue
		}
		if err := s.store.HDel(ctx, streakTrackKey, field); err != nil {
			utils.Sugar.Errorf("delete streak counter user=%d: %v", userID, err)
			continue
		}
		reset = append(reset, userID)
	}

	if len(reset) == 0 {
		return 0, nil
	}

	if err := s.resetStreakTasks(ctx, reset); err != nil {
		return 0, err
	}
	return len(reset), nil
}

// activateNextStep pre-activates the user's upcoming streak task so it is
// ready to claim today.
func (s *StreakService) activateNextStep(ctx context.Context, userID uint) error {
	step, err := s.ActiveStreakStep(ctx, userID)
	if err != nil {
		return err
	}
	var task models.Task
	err = s.db.WithContext(ctx).
		Where("type = ? AND code = ?", models.TypeDailyStreak, fmt.Sprintf("DS%d", step)).
		First(&task).Error
	if err != nil {
		return errors.Wrapf(err, "find streak task DS%d", step)
	}
	return upsertUserTaskStatus(s.db.WithContext(ctx), userID, &task, models.StatusAvailable)
}

// resetStreakTasks is the shared cycle-restart routine used by check-in
// wrap, the daily reset and the hard reset: every DAILY_STREAK row goes to
// LOCKED except step one, which becomes AVAILABLE.
func (s *StreakService) resetStreakTasks(ctx context.Context, userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Model(&models.UserTask{}).
		Where("type = ? AND user_id IN ?", models.TypeDailyStreak, userIDs).
		Update("status", models.StatusLocked).Error
	if err != nil {
		return errors.Wrap(err, "lock streak tasks")
	}

	var first models.Task
	err = s.db.WithContext(ctx).
		Where("type = ? AND code = ?", models.TypeDailyStreak, firstStreakCode).
		First(&first).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return errors.Wrap(err, "find first streak task")
	}

	err = s.db.WithContext(ctx).Model(&models.UserTask{}).
		Where("task_id = ? AND user_id IN ?", first.ID, userIDs).
		Update("status", models.StatusAvailable).Error
	return errors.Wrap(err, "unlock first streak task")
}

func formatUserID(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
