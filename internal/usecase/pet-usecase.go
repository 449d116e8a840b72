package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iamvkosarev/study-energy-bot/config"
	"github.com/iamvkosarev/study-energy-bot/internal/model"
	"github.com/iamvkosarev/study-energy-bot/pkg/local"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

const (
	petStartEnergy    = 80
	petStartHappiness = 75
	petStartNextLevel = 100
)

var (
	petFeedReply = local.NewSet(
		"谢谢你的食物！好好吃～",
		local.NewTrans(local.Eng, "Thanks for the food! Yummy~"),
	)
	petPlayReply = local.NewSet(
		"太好玩了！谢谢你陪我～",
		local.NewTrans(local.Eng, "That was fun! Thanks for playing with me~"),
	)
	petStudyReply = local.NewSet(
		"一起学习真开心！加油！",
		local.NewTrans(local.Eng, "Studying together is great! Keep going!"),
	)
)

type petState struct {
	pet       model.Pet
	lastDecay time.Time
}

// PetUsecase keeps one virtual pet per user. Energy decays while the pet
// is idle; elapsed decay ticks are recomputed from the last settled
// instant instead of accumulating per-tick deltas, so the decay never
// drifts, however late the ticker fires.
type PetUsecase struct {
	cfg      config.Pet
	language local.Language
	logger   *zap.Logger
	wg       *conc.WaitGroup

	mu   sync.Mutex
	pets map[uuid.UUID]*petState
}

func NewPetUsecase(cfg config.Pet, language local.Language, logger *zap.Logger) *PetUsecase {
	return &PetUsecase{
		cfg:      cfg,
		language: language,
		logger:   logger,
		wg:       conc.NewWaitGroup(),
		pets:     make(map[uuid.UUID]*petState),
	}
}

func (p *PetUsecase) GetPet(userID uuid.UUID) model.Pet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settled(userID).pet
}

func (p *PetUsecase) Feed(userID uuid.UUID) (model.Pet, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := p.settled(userID)
	state.pet.Energy = clampStat(state.pet.Energy + 20)
	state.pet.Happiness = clampStat(state.pet.Happiness + 5)
	state.pet.Status = petStatus(state.pet)
	return state.pet, petFeedReply.Text(p.language)
}

func (p *PetUsecase) Play(userID uuid.UUID) (model.Pet, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := p.settled(userID)
	state.pet.Energy = clampStat(state.pet.Energy - 10)
	state.pet.Happiness = clampStat(state.pet.Happiness + 15)
	state.pet.Status = petStatus(state.pet)
	return state.pet, petPlayReply.Text(p.language)
}

func (p *PetUsecase) Study(userID uuid.UUID) (model.Pet, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := p.settled(userID)
	state.pet.Energy = clampStat(state.pet.Energy - 15)
	state.pet.Happiness = clampStat(state.pet.Happiness - 5)
	state.pet.Experience += 25
	if state.pet.Experience >= state.pet.NextLevel {
		state.pet.Level++
		state.pet.Experience -= state.pet.NextLevel
		state.pet.NextLevel += 50
	}
	state.pet.Status = petStatus(state.pet)
	return state.pet, petStudyReply.Text(p.language)
}

// GiftEnergy adds gifted energy to the receiver's pet (the buddy feature's
// "send energy" action lands here).
func (p *PetUsecase) GiftEnergy(userID uuid.UUID, amount int) model.Pet {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := p.settled(userID)
	state.pet.Energy = clampStat(state.pet.Energy + amount)
	state.pet.Status = petStatus(state.pet)
	return state.pet
}

// StartDecay runs the idle-decay task until the returned stop function is
// called (or ctx is cancelled).
func (p *PetUsecase) StartDecay(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	p.wg.Go(
		func() {
			ticker := time.NewTicker(p.cfg.DecayInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.settleAll()
				}
			}
		},
	)
	return func() {
		cancel()
		p.wg.Wait()
	}
}

func (p *PetUsecase) settleAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for userID := range p.pets {
		p.settled(userID)
	}
}

// settled returns the user's pet state with idle decay applied up to now.
// Callers must hold p.mu.
func (p *PetUsecase) settled(userID uuid.UUID) *petState {
	state, ok := p.pets[userID]
	if !ok {
		state = &petState{
			pet: model.Pet{
				Energy:    petStartEnergy,
				Happiness: petStartHappiness,
				Level:     1,
				NextLevel: petStartNextLevel,
				Status:    model.PetStatusHappy,
			},
			lastDecay: time.Now(),
		}
		p.pets[userID] = state
		return state
	}

	ticks := int(time.Since(state.lastDecay) / p.cfg.DecayInterval)
	for i := 0; i < ticks; i++ {
		state.pet.Energy = clampStat(state.pet.Energy - 1)
		if state.pet.Energy < 20 {
			state.pet.Happiness = clampStat(state.pet.Happiness - 2)
		}
	}
	if ticks > 0 {
		state.lastDecay = state.lastDecay.Add(time.Duration(ticks) * p.cfg.DecayInterval)
		state.pet.Status = petStatus(state.pet)
	}
	return state
}

func petStatus(pet model.Pet) model.PetStatus {
	switch {
	case pet.Energy < 20:
		return model.PetStatusTired
	case pet.Happiness < 30:
		return model.PetStatusSad
	default:
		return model.PetStatusHappy
	}
}

func clampStat(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
