package services

import (
	"context"
	"math/rand"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/Hopium-Future/hackathon-be/utils"
)

const spinTrackKey = "task:trade2airdrop:track"

// RewardTier is one slot of the spin catalog. WinningRate values are raw
// probability mass; catalog authors keep the sum at or below 1 and no
// normalization is applied at runtime.
type RewardTier struct {
	ID             int
	Title          string
	WinningRate    float64
	RewardAsset    string
	RewardQuantity float64
	MaxSpin        int64
}

// SpinResult is the awarded asset and quantity of one spin.
type SpinResult struct {
	RewardAsset    string  `json:"reward_asset"`
	RewardQuantity float64 `json:"reward_quantity"`
}

func initialRewards() []RewardTier {
	return []RewardTier{
		{ID: 1, Title: "5 TON", WinningRate: 0.002, RewardAsset: AssetTON, RewardQuantity: 5, MaxSpin: 10},
		{ID: 2, Title: "1 TON", WinningRate: 0.01, RewardAsset: AssetTON, RewardQuantity: 1, MaxSpin: 50},
		{ID: 3, Title: "0.5 TON", WinningRate: 0.02, RewardAsset: AssetTON, RewardQuantity: 0.5, MaxSpin: 100},
		{ID: 4, Title: "5000 HOPIUM", WinningRate: 0.168, RewardAsset: AssetHOPIUM, RewardQuantity: 5000, MaxSpin: 840},
		{ID: 5, Title: "1000 HOPIUM", WinningRate: 0.3, RewardAsset: AssetHOPIUM, RewardQuantity: 1000, MaxSpin: 1500},
		{ID: 6, Title: "500 HOPIUM", WinningRate: 0.5, RewardAsset: AssetHOPIUM, RewardQuantity: 500, MaxSpin: 2500},
	}
}

func stableRewards() []RewardTier {
	return []RewardTier{
		{ID: 7, Title: "5000 HOPIUM", WinningRate: 0.17355, RewardAsset: AssetHOPIUM, RewardQuantity: 5000, MaxSpin: 17355},
		{ID: 8, Title: "1000 HOPIUM", WinningRate: 0.30992, RewardAsset: AssetHOPIUM, RewardQuantity: 1000, MaxSpin: 30992},
		{ID: 9, Title: "500 HOPIUM", WinningRate: 0.51653, RewardAsset: AssetHOPIUM, RewardQuantity: 500, MaxSpin: 51653},
	}
}

// RewardSpinner draws weighted-random rewards from a mutable catalog.
// The catalog starts promotional and switches once to the stable catalog
// after the global spin count crosses initThreshold; the switch is
// irreversible for the process. Per-tier award counts live in the shared
// TrackStore so multiple instances exhaust tiers consistently.
type RewardSpinner struct {
	mu            sync.Mutex
	store         utils.TrackStore
	initThreshold int64
	current       []RewardTier
	switched      bool
	rand          func() float64
}

// NewRewardSpinner creates a spinner over the shared counter store.
func NewRewardSpinner(store utils.TrackStore, initThreshold int64) *RewardSpinner {
	return &RewardSpinner{
		store:         store,
		initThreshold: initThreshold,
		current:       initialRewards(),
		rand:          rand.Float64,
	}
}

// Spin draws one reward and commits the award to the tier counter. The
// draw, the catalog view and the increment are atomic relative to other
// spins on this instance.
func (s *RewardSpinner) Spin(ctx context.Context) (SpinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts, err := s.store.HGetAll(ctx, spinTrackKey)
	if err != nil {
		return SpinResult{}, errors.Wrap(err, "read spin track")
	}

	if !s.switched && totalSpins(counts) >= s.initThreshold {
		s.current = stableRewards()
		s.switched = true
	}

	// Drop tiers whose award count reached their cap. Removal is permanent
	// for the current catalog, matching the exhaustion semantics.
	valid := s.current[:0]
	for _, tier := range s.current {
		if countFor(counts, tier.ID) < tier.MaxSpin {
			valid = append(valid, tier)
		}
	}
	s.current = valid

	if len(s.current) == 0 {
		if s.switched {
			return SpinResult{}, errors.New("reward catalog exhausted")
		}
		// Promotional catalog ran dry before the threshold; move to the
		// stable catalog rather than failing the claim.
		s.current = stableRewards()
		s.switched = true
	}

	draw := s.rand()
	total := 0.0
	for _, tier := range s.current {
		total += tier.WinningRate
		if draw <= total {
			return s.award(ctx, tier)
		}
	}

	// Rounding edge or probability mass below 1: fall back to the last
	// remaining tier.
	return s.award(ctx, s.current[len(s.current)-1])
}

func (s *RewardSpinner) award(ctx context.Context, tier RewardTier) (SpinResult, error) {
	if _, err := s.store.HIncrBy(ctx, spinTrackKey, strconv.Itoa(tier.ID), 1); err != nil {
		return SpinResult{}, errors.Wrap(err, "increment tier count")
	}
	return SpinResult{RewardAsset: tier.RewardAsset, RewardQuantity: tier.RewardQuantity}, nil
}

func totalSpins(counts map[string]string) int64 {
	var total int64
	for _, v := range counts {
		n, _ := strconv.ParseInt(v, 10, 64)
		total += n
	}
	return total
}

func countFor(counts map[string]string, tierID int) int64 {
	n, _ := strconv.ParseInt(counts[strconv.Itoa(tierID)], 10, 64)
	return n
}
